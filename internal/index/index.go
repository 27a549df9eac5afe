package index

import (
	"context"

	"github.com/starford/sift/internal/models"
)

// NoteIndex is the backing store as seen by the note service. Consumers
// depend on it rather than on *DB so tests can substitute fakes.
type NoteIndex interface {
	UpsertNote(ctx context.Context, n models.NoteRecord, links []string) error
	DeleteNote(ctx context.Context, path string) error
	GetChecksum(ctx context.Context, path string) (string, error)
	GetNote(ctx context.Context, path string) (models.NoteRecord, error)
	AllNotes(ctx context.Context) ([]models.NoteRecord, error)
	Candidates(ctx context.Context, terms []string, caseSensitive bool) ([]models.NoteRecord, error)
	ListNotes(ctx context.Context, f ListFilter) ([]models.NoteRecord, int, error)
	Tags(ctx context.Context) ([]models.TagCount, error)
	TagsWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	TitlesContaining(ctx context.Context, fragment string, limit int) ([]string, error)
	BodiesContaining(ctx context.Context, fragment string, limit int) ([]string, error)
	Backlinks(ctx context.Context, notePath string) ([]string, error)
	AllChecksums(ctx context.Context) (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
