package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/sift/internal/apperr"
	"github.com/starford/sift/internal/checksum"
	"github.com/starford/sift/internal/index"
	"github.com/starford/sift/internal/parser"
	"github.com/starford/sift/internal/query"
)

var (
	shapeUpsert = query.Shape{Name: "notes.upsert", Kind: query.KindWrite, Entity: query.EntityNotes, Statement: "INSERT INTO notes"}
	shapeRemove = query.Shape{Name: "notes.delete", Kind: query.KindWrite, Entity: query.EntityNotes, Statement: "DELETE FROM notes"}
)

// CreateRequest describes a new note. The file name is derived from Title.
type CreateRequest struct {
	Title   string
	Content string
	Tags    []string
	Folder  string
}

// CreateNote writes a new note with generated frontmatter and indexes it.
func (s *Service) CreateNote(ctx context.Context, req CreateRequest) (*NoteDetail, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("noteservice: title is required: %w", apperr.ErrInvalidInput)
	}
	slug := parser.Slug(title)
	if slug == "" {
		return nil, fmt.Errorf("noteservice: title %q has no usable characters: %w", title, apperr.ErrInvalidInput)
	}
	p := cleanPath(path.Join(strings.Trim(req.Folder, "/"), slug))

	data, err := parser.Render(parser.NewHeader(uuid.NewString(), title, req.Tags, s.now()), req.Content)
	if err != nil {
		return nil, err
	}
	return s.CreateRaw(ctx, p, data)
}

// CreateRaw writes content verbatim to a new path.
func (s *Service) CreateRaw(ctx context.Context, p string, content []byte) (*NoteDetail, error) {
	return s.mutate(ctx, cleanPath(p), "created", func([]byte) ([]byte, error) {
		return content, nil
	}, mustNotExist)
}

// UpdateNote replaces a note's content. ifMatch, when set, must name the
// current checksum (see checksum.Match).
func (s *Service) UpdateNote(ctx context.Context, p string, content []byte, ifMatch string) (*NoteDetail, error) {
	return s.mutate(ctx, cleanPath(p), "updated", func(existing []byte) ([]byte, error) {
		if !checksum.Match(ifMatch, checksum.Sum(existing)) {
			return nil, fmt.Errorf("noteservice: %s changed since it was read: %w", p, apperr.ErrConflict)
		}
		return content, nil
	}, mustExist)
}

// AppendText appends text to a note on a new line.
func (s *Service) AppendText(ctx context.Context, p, text string) (*NoteDetail, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("noteservice: text is required: %w", apperr.ErrInvalidInput)
	}
	return s.mutate(ctx, cleanPath(p), "updated", func(existing []byte) ([]byte, error) {
		var b strings.Builder
		b.Write(existing)
		if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(text, "\n"))
		b.WriteByte('\n')
		return []byte(b.String()), nil
	}, mustExist)
}

// AddTags merges tags into a note's frontmatter.
func (s *Service) AddTags(ctx context.Context, p string, tags []string) (*NoteDetail, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("noteservice: tags are required: %w", apperr.ErrInvalidInput)
	}
	return s.mutate(ctx, cleanPath(p), "updated", func(existing []byte) ([]byte, error) {
		return parser.MergeTags(existing, tags)
	}, mustExist)
}

// TrashNote moves a note into the vault trash and returns its new path.
func (s *Service) TrashNote(ctx context.Context, p string) (string, error) {
	p = cleanPath(p)
	var dest string
	err := s.remove(ctx, p, func() error {
		var err error
		dest, err = s.store.Trash(p, s.now())
		return err
	})
	return dest, err
}

// DeleteNote removes a note from the vault and the index.
func (s *Service) DeleteNote(ctx context.Context, p string) error {
	p = cleanPath(p)
	return s.remove(ctx, p, func() error { return s.store.Delete(p) })
}

type existence int

const (
	mustExist existence = iota
	mustNotExist
)

// mutate serialises a read-modify-write of one note: it waits for the write
// limiter, checks existence, computes the new content, writes and indexes
// it, invalidates cached reads and publishes the change.
func (s *Service) mutate(ctx context.Context, p, kind string, build func(existing []byte) ([]byte, error), want existence) (*NoteDetail, error) {
	if p == "" {
		return nil, fmt.Errorf("noteservice: path is required: %w", apperr.ErrInvalidInput)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("noteservice: write throttled: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	exists, err := s.store.Exists(p)
	if err != nil {
		return nil, err
	}
	switch {
	case want == mustExist && !exists:
		return nil, fmt.Errorf("noteservice: %s: %w", p, apperr.ErrNotFound)
	case want == mustNotExist && exists:
		return nil, fmt.Errorf("noteservice: %s: %w", p, apperr.ErrAlreadyExists)
	}

	var existing []byte
	if exists {
		if existing, err = s.store.Read(p); err != nil {
			return nil, err
		}
	}
	data, err := build(existing)
	if err != nil {
		return nil, err
	}

	removed, err := s.exec.Write(ctx, shapeUpsert, func(ctx context.Context) error {
		if err := s.store.Write(p, data); err != nil {
			return err
		}
		return index.IndexFile(ctx, s.idx, p, data, s.now())
	}, query.EntityTags, query.EntityLinks)
	if err != nil {
		return nil, err
	}

	s.published(kind, p, removed)
	return s.buildNoteDetail(ctx, p, data)
}

func (s *Service) remove(ctx context.Context, p string, fn func() error) error {
	if p == "" {
		return fmt.Errorf("noteservice: path is required: %w", apperr.ErrInvalidInput)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("noteservice: write throttled: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	removed, err := s.exec.Write(ctx, shapeRemove, func(ctx context.Context) error {
		if err := fn(); err != nil {
			return err
		}
		return s.idx.DeleteNote(ctx, p)
	}, query.EntityTags, query.EntityLinks)
	if err != nil {
		return err
	}
	s.published("deleted", p, removed)
	return nil
}

func (s *Service) published(kind, p string, removed int) {
	s.logger.Info("note: "+kind, slog.String("path", p), slog.Int("invalidated", removed))
	if removed > 0 {
		s.events.PublishCacheInvalidated(allEntities, removed)
	}
	s.events.PublishNoteEvent(kind, p)
}
