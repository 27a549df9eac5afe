// Package storage defines the vault file-system abstraction. Paths are
// vault-relative with forward slashes; missing files wrap apperr.ErrNotFound.
package storage

import (
	"time"

	"github.com/starford/sift/internal/models"
)

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every visible .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Move renames oldPath to newPath (both relative to vault root).
	Move(oldPath, newPath string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Trash moves path into the vault trash and returns its new path.
	Trash(path string, now time.Time) (string, error)
}
