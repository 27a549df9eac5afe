package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/sift/internal/apperr"
	"github.com/starford/sift/internal/models"
)

// Read statements. They double as the statement part of query-cache keys.
const (
	noteColumns = `path, uid, title, checksum, tags, body, created_at, updated_at`

	QueryGetNote  = `SELECT ` + noteColumns + ` FROM notes WHERE path = ?`
	QueryAllNotes = `SELECT ` + noteColumns + ` FROM notes ORDER BY path`
	// QueryCandidates is completed with one predicate group per term.
	QueryCandidates = `SELECT ` + noteColumns + ` FROM notes WHERE %s ORDER BY path`
	QueryListNotes  = `SELECT path, uid, title, checksum, tags, '', created_at, updated_at FROM notes %s ORDER BY %s LIMIT ? OFFSET ?`
	QueryCountNotes = `SELECT count(*) FROM notes %s`

	QueryTags             = `SELECT name, count(*) FROM note_tags GROUP BY name ORDER BY count(*) DESC, name`
	QueryTagsWithPrefix   = `SELECT name FROM note_tags WHERE instr(casefold(name), ?) = 1 GROUP BY name ORDER BY count(*) DESC, name LIMIT ?`
	QueryTitlesContaining = `SELECT title FROM notes WHERE title <> '' AND instr(casefold(title), ?) > 0 ORDER BY updated_at DESC, path LIMIT ?`
	QueryBodiesContaining = `SELECT body FROM notes WHERE instr(casefold(body), ?) > 0 ORDER BY updated_at DESC, path LIMIT ?`
	QueryBacklinks        = `SELECT DISTINCT source FROM links WHERE target IN (?, ?, ?) AND source <> ? ORDER BY source`
)

// ListFilter narrows ListNotes.
type ListFilter struct {
	Folder string
	Tag    string
	// Sort is "updated" (newest first, default), "title" or "path".
	Sort   string
	Limit  int
	Offset int
}

// UpsertNote inserts or replaces a note with its tags and outgoing links in
// one transaction. An existing created_at is kept unless n carries one.
func (db *DB) UpsertNote(ctx context.Context, n models.NoteRecord, links []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("index: encode tags: %w", err)
	}
	updated := n.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	created := n.CreatedAt
	if created.IsZero() {
		created = updated
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (path, uid, title, checksum, tags, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			uid        = excluded.uid,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			created_at = CASE WHEN ? THEN excluded.created_at ELSE notes.created_at END,
			updated_at = excluded.updated_at
	`, n.Path, n.ID, n.Title, n.Checksum, string(tagsJSON), n.Body, created.UTC(), updated.UTC(), !n.CreatedAt.IsZero())
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO note_tags (path, name) VALUES (?, ?)`, n.Path, tag); err != nil {
			return fmt.Errorf("index: insert tag: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE source = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.ExecContext(ctx, n.Path, target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note; tags and outgoing links cascade.
func (db *DB) DeleteNote(ctx context.Context, path string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a note, or "" if it is not
// indexed.
func (db *DB) GetChecksum(ctx context.Context, path string) (string, error) {
	var cs string
	err := db.conn.QueryRowContext(ctx, `SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// GetNote returns one indexed note, wrapping apperr.ErrNotFound when absent.
func (db *DB) GetNote(ctx context.Context, path string) (models.NoteRecord, error) {
	n, err := scanNote(db.conn.QueryRowContext(ctx, QueryGetNote, path))
	if errors.Is(err, sql.ErrNoRows) {
		return models.NoteRecord{}, fmt.Errorf("index: note %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return models.NoteRecord{}, fmt.Errorf("index: get note: %w", err)
	}
	return n, nil
}

// AllNotes returns every indexed note with its body.
func (db *DB) AllNotes(ctx context.Context) ([]models.NoteRecord, error) {
	return db.queryNotes(ctx, QueryAllNotes)
}

// Candidates returns notes whose title, body or tags contain at least one of
// terms. It is a superset prefilter for ranking; matching folds case unless
// caseSensitive is set. No terms means every note.
func (db *DB) Candidates(ctx context.Context, terms []string, caseSensitive bool) ([]models.NoteRecord, error) {
	if len(terms) == 0 {
		return db.AllNotes(ctx)
	}
	where, args := candidatePredicate(terms, caseSensitive)
	return db.queryNotes(ctx, fmt.Sprintf(QueryCandidates, where), args...)
}

func candidatePredicate(terms []string, caseSensitive bool) (string, []any) {
	col := func(name string) string {
		if caseSensitive {
			return name
		}
		return "casefold(" + name + ")"
	}
	group := "(instr(" + col("title") + ", ?) > 0 OR instr(" + col("body") + ", ?) > 0 OR instr(" + col("tags") + ", ?) > 0)"

	parts := make([]string, 0, len(terms))
	args := make([]any, 0, 3*len(terms))
	for _, t := range terms {
		if !caseSensitive {
			t = strings.ToLower(t)
		}
		parts = append(parts, group)
		args = append(args, t, t, t)
	}
	return strings.Join(parts, " OR "), args
}

// CandidatesStatement is the statement Candidates runs for the given shape
// of input, for use as a cache-key statement.
func CandidatesStatement(termCount int, caseSensitive bool) string {
	if termCount == 0 {
		return QueryAllNotes
	}
	where, _ := candidatePredicate(make([]string, termCount), caseSensitive)
	return fmt.Sprintf(QueryCandidates, where)
}

// ListNotes returns note metadata (without bodies) matching f and the total
// number of matches ignoring limit and offset.
func (db *DB) ListNotes(ctx context.Context, f ListFilter) ([]models.NoteRecord, int, error) {
	where, args := listPredicate(f)

	var total int
	if err := db.conn.QueryRowContext(ctx, fmt.Sprintf(QueryCountNotes, where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	q := fmt.Sprintf(QueryListNotes, where, listOrder(f.Sort))
	notes, err := db.queryNotes(ctx, q, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

// ListStatement returns the statement ListNotes runs for f.
func ListStatement(f ListFilter) string {
	where, _ := listPredicate(f)
	return fmt.Sprintf(QueryListNotes, where, listOrder(f.Sort))
}

func listPredicate(f ListFilter) (string, []any) {
	var conds []string
	var args []any
	if folder := strings.Trim(f.Folder, "/"); folder != "" {
		conds = append(conds, `substr(path, 1, ?) = ?`)
		prefix := folder + "/"
		args = append(args, len(prefix), prefix)
	}
	if f.Tag != "" {
		conds = append(conds, `path IN (SELECT path FROM note_tags WHERE name = ?)`)
		args = append(args, f.Tag)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func listOrder(sort string) string {
	switch sort {
	case "title":
		return "title COLLATE NOCASE, path"
	case "path":
		return "path"
	default:
		return "updated_at DESC, path"
	}
}

// Tags returns every tag with the number of notes carrying it, most used
// first.
func (db *DB) Tags(ctx context.Context) ([]models.TagCount, error) {
	rows, err := db.conn.QueryContext(ctx, QueryTags)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	out := []models.TagCount{}
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// TagsWithPrefix returns tag names starting with prefix (case-folded).
func (db *DB) TagsWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return db.queryStrings(ctx, QueryTagsWithPrefix, strings.ToLower(prefix), limit)
}

// TitlesContaining returns note titles containing fragment (case-folded),
// most recently updated first.
func (db *DB) TitlesContaining(ctx context.Context, fragment string, limit int) ([]string, error) {
	return db.queryStrings(ctx, QueryTitlesContaining, strings.ToLower(fragment), limit)
}

// BodiesContaining returns up to limit note bodies containing fragment
// (case-folded), most recently updated first.
func (db *DB) BodiesContaining(ctx context.Context, fragment string, limit int) ([]string, error) {
	return db.queryStrings(ctx, QueryBodiesContaining, strings.ToLower(fragment), limit)
}

// Backlinks returns the paths of notes linking to the note at notePath.
// A wikilink may name the note by path, by path without extension or by
// bare file stem.
func (db *DB) Backlinks(ctx context.Context, notePath string) ([]string, error) {
	noExt := strings.TrimSuffix(notePath, ".md")
	stem := path.Base(noExt)
	out, err := db.queryStrings(ctx, QueryBacklinks, notePath, noExt, stem, notePath)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	return out, nil
}

// AllChecksums returns the stored checksum of every indexed note by path.
func (db *DB) AllChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (models.NoteRecord, error) {
	var (
		n        models.NoteRecord
		tagsJSON string
	)
	if err := r.Scan(&n.Path, &n.ID, &n.Title, &n.Checksum, &tagsJSON, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return n, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
		return n, fmt.Errorf("decode tags of %s: %w", n.Path, err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n, nil
}

func (db *DB) queryNotes(ctx context.Context, q string, args ...any) ([]models.NoteRecord, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query notes: %w", err)
	}
	defer rows.Close()

	out := []models.NoteRecord{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (db *DB) queryStrings(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
