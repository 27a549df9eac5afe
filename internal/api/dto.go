package api

import (
	"github.com/starford/sift/internal/noteservice"
	"github.com/starford/sift/internal/search"
)

// CreateNoteRequest is the request body for creating a note. Either Title
// (frontmatter and file name are generated) or Path with full Content
// (stored verbatim) must be set.
type CreateNoteRequest struct {
	Title   string   `json:"title,omitempty" example:"Weekly standup"`
	Folder  string   `json:"folder,omitempty" example:"meetings"`
	Tags    []string `json:"tags,omitempty" example:"meeting-notes"`
	Path    string   `json:"path,omitempty" example:"notes/hello.md"`
	Content string   `json:"content" example:"# Hello\nWorld"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// AppendRequest is the request body for appending to a note.
type AppendRequest struct {
	Text string `json:"text" example:"- new item" validate:"required"`
}

// AddTagsRequest is the request body for tagging a note.
type AddTagsRequest struct {
	Tags []string `json:"tags" example:"project-x" validate:"required"`
}

// SimilarRequest is the request body for similarity search.
type SimilarRequest struct {
	Text          string  `json:"text" example:"sqlite pragma tuning" validate:"required"`
	Limit         int     `json:"limit,omitempty" example:"10"`
	MinSimilarity float64 `json:"min_similarity,omitempty" example:"0.1"`
	ExcludePath   string  `json:"exclude_path,omitempty" example:"notes/hello.md"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps ranked search results.
type SearchResponse struct {
	Results []search.SearchResult `json:"results" validate:"required"`
}

// SimilarResponse wraps similarity results.
type SimilarResponse struct {
	Results []search.SimilarityResult `json:"results" validate:"required"`
}

// TrashResponse reports where a deleted note was moved.
type TrashResponse struct {
	Path string `json:"path" example:".trash/notes/hello.md" validate:"required"`
}

// ClearCacheResponse reports how many cache entries were dropped.
type ClearCacheResponse struct {
	Removed int `json:"removed" example:"12" validate:"required"`
}
