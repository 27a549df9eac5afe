package noteservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/starford/sift/internal/checksum"
	"github.com/starford/sift/internal/index"
	"github.com/starford/sift/internal/models"
	"github.com/starford/sift/internal/parser"
	"github.com/starford/sift/internal/query"
	"github.com/starford/sift/internal/search"
)

// frequentTermSample bounds how many note bodies feed term suggestions.
const frequentTermSample = 200

var (
	shapeGetNote = query.Shape{Name: "notes.get", Kind: query.KindRead, Entity: query.EntityNotes, Statement: index.QueryGetNote}
	shapeAll     = query.Shape{Name: "notes.all", Kind: query.KindRead, Entity: query.EntityNotes, Statement: index.QueryAllNotes}
	shapeTitles  = query.Shape{Name: "notes.titles", Kind: query.KindRead, Entity: query.EntityNotes, Statement: index.QueryTitlesContaining}
	shapeBodies  = query.Shape{Name: "notes.bodies", Kind: query.KindRead, Entity: query.EntityNotes, Statement: index.QueryBodiesContaining}
	shapeTags    = query.Shape{Name: "tags.list", Kind: query.KindRead, Entity: query.EntityTags, Statement: index.QueryTags}
	shapePrefix  = query.Shape{Name: "tags.prefix", Kind: query.KindRead, Entity: query.EntityTags, Statement: index.QueryTagsWithPrefix}
	shapeLinks   = query.Shape{Name: "links.backlinks", Kind: query.KindRead, Entity: query.EntityLinks, Statement: index.QueryBacklinks}
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID          string         `json:"id,omitempty"`
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []string       `json:"backlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	ID        string    `json:"id,omitempty"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchRequest is a ranked full-text query.
type SearchRequest struct {
	Query         string
	Limit         int
	Fuzzy         bool
	CaseSensitive bool
	Snippets      bool
}

// Related groups the notes connected to one note.
type Related struct {
	Path      string                    `json:"path"`
	Similar   []search.SimilarityResult `json:"similar"`
	Backlinks []string                  `json:"backlinks"`
}

type notePage struct {
	Items []models.NoteRecord
	Total int
}

// GetNote reads a note from the vault and enriches it with backlinks.
func (s *Service) GetNote(ctx context.Context, path string) (*NoteDetail, error) {
	path = cleanPath(path)
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(ctx, path, data)
}

// ListNotes returns a page of note metadata and the total match count.
func (s *Service) ListNotes(ctx context.Context, f index.ListFilter) ([]NoteListItem, int, error) {
	shape := query.Shape{Name: "notes.list", Kind: query.KindRead, Entity: query.EntityNotes, Statement: index.ListStatement(f)}
	page, err := query.Read(ctx, s.exec, shape, []any{f}, func(ctx context.Context) (notePage, error) {
		items, total, err := s.idx.ListNotes(ctx, f)
		return notePage{Items: items, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(page.Items))
	for i, n := range page.Items {
		items[i] = listItem(n)
	}
	return items, page.Total, nil
}

// NotesByTag lists every note carrying tag.
func (s *Service) NotesByTag(ctx context.Context, tag string) ([]NoteListItem, error) {
	items, _, err := s.ListNotes(ctx, index.ListFilter{Tag: tag})
	return items, err
}

// ListTags returns every tag with its note count.
func (s *Service) ListTags(ctx context.Context) ([]models.TagCount, error) {
	return query.Read(ctx, s.exec, shapeTags, nil, s.idx.Tags)
}

// Backlinks returns the paths of notes linking to path.
func (s *Service) Backlinks(ctx context.Context, path string) ([]string, error) {
	path = cleanPath(path)
	return query.Read(ctx, s.exec, shapeLinks, []any{path}, func(ctx context.Context) ([]string, error) {
		return s.idx.Backlinks(ctx, path)
	})
}

// Search ranks notes against req.Query. Candidates are prefiltered in the
// index by the query terms; ranking happens in the search engine.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]search.SearchResult, error) {
	opts := search.SearchOptions{
		FuzzyMatch:      req.Fuzzy,
		CaseSensitive:   req.CaseSensitive,
		IncludeSnippets: req.Snippets,
		Limit:           req.Limit,
	}
	if opts.Limit <= 0 {
		opts.Limit = s.defaults.SearchLimit
	}

	terms := s.engine.Terms(req.Query, opts)
	shape := query.Shape{
		Name:      "notes.candidates",
		Kind:      query.KindRead,
		Entity:    query.EntityNotes,
		Statement: index.CandidatesStatement(len(terms), req.CaseSensitive),
	}
	notes, err := query.Read(ctx, s.exec, shape, []any{terms, req.CaseSensitive}, func(ctx context.Context) ([]models.NoteRecord, error) {
		return s.idx.Candidates(ctx, terms, req.CaseSensitive)
	})
	if err != nil {
		return nil, err
	}

	results := s.engine.Search(req.Query, notes, opts)
	for i := range results {
		results[i].Body = ""
	}
	return results, nil
}

// FindSimilar ranks notes by keyword overlap with text.
func (s *Service) FindSimilar(ctx context.Context, text string, opts search.SimilarOptions) ([]search.SimilarityResult, error) {
	if opts.MinSimilarity == 0 {
		opts.MinSimilarity = s.defaults.MinSimilarity
	}
	if opts.Limit <= 0 {
		opts.Limit = s.defaults.SearchLimit
	}
	notes, err := s.allNotes(ctx)
	if err != nil {
		return nil, err
	}
	results := s.engine.FindSimilar(text, notes, opts)
	for i := range results {
		results[i].Body = ""
	}
	return results, nil
}

// RelatedNotes returns the notes most similar to the note at path together
// with the notes linking to it.
func (s *Service) RelatedNotes(ctx context.Context, path string, limit int) (*Related, error) {
	if limit <= 0 {
		limit = s.defaults.RelatedLimit
	}
	path = cleanPath(path)
	note, err := query.Read(ctx, s.exec, shapeGetNote, []any{path}, func(ctx context.Context) (models.NoteRecord, error) {
		return s.idx.GetNote(ctx, path)
	})
	if err != nil {
		return nil, err
	}

	similar, err := s.FindSimilar(ctx, note.Title+"\n"+note.Body, search.SimilarOptions{Limit: limit, ExcludePath: path})
	if err != nil {
		return nil, err
	}
	backlinks, err := s.Backlinks(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Related{Path: path, Similar: similar, Backlinks: nonNilSlice(backlinks)}, nil
}

// Suggest returns auto-complete candidates for a partial query.
func (s *Service) Suggest(ctx context.Context, partial string, limit int) (search.Suggestions, error) {
	if limit <= 0 {
		limit = s.defaults.SuggestionLimit
	}
	return search.Suggest(ctx, s, partial, limit)
}

// FrequentTerms implements search.SuggestionSource.
func (s *Service) FrequentTerms(ctx context.Context, prefix string, limit int) ([]string, error) {
	bodies, err := query.Read(ctx, s.exec, shapeBodies, []any{prefix, frequentTermSample}, func(ctx context.Context) ([]string, error) {
		return s.idx.BodiesContaining(ctx, prefix, frequentTermSample)
	})
	if err != nil {
		return nil, err
	}
	return search.FrequentTerms(bodies, prefix, limit), nil
}

// TitlesContaining implements search.SuggestionSource.
func (s *Service) TitlesContaining(ctx context.Context, fragment string, limit int) ([]string, error) {
	return query.Read(ctx, s.exec, shapeTitles, []any{fragment, limit}, func(ctx context.Context) ([]string, error) {
		return s.idx.TitlesContaining(ctx, fragment, limit)
	})
}

// TagsWithPrefix implements search.SuggestionSource.
func (s *Service) TagsWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return query.Read(ctx, s.exec, shapePrefix, []any{prefix, limit}, func(ctx context.Context) ([]string, error) {
		return s.idx.TagsWithPrefix(ctx, prefix, limit)
	})
}

var _ search.SuggestionSource = (*Service)(nil)

func (s *Service) allNotes(ctx context.Context) ([]models.NoteRecord, error) {
	return query.Read(ctx, s.exec, shapeAll, nil, s.idx.AllNotes)
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading
// the file.
func (s *Service) buildNoteDetail(ctx context.Context, path string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("noteservice: parse %s: %w", path, err)
	}
	bl, err := s.Backlinks(ctx, path)
	if err != nil {
		return nil, err
	}
	updated := s.now()
	if rec, err := s.idx.GetNote(ctx, path); err == nil {
		updated = rec.UpdatedAt
	}
	return &NoteDetail{
		ID:          res.ID,
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   updated,
	}, nil
}

func listItem(n models.NoteRecord) NoteListItem {
	return NoteListItem{
		ID:        n.ID,
		Path:      n.Path,
		Title:     n.Title,
		Checksum:  n.Checksum,
		Tags:      nonNilSlice(n.Tags),
		UpdatedAt: n.UpdatedAt,
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// cleanPath normalises a vault-relative note path.
func cleanPath(p string) string {
	p = strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(p), "\\", "/"), "/")
	if p != "" && !strings.HasSuffix(p, ".md") {
		p += ".md"
	}
	return p
}
