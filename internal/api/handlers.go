package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sift/internal/apperr"
	"github.com/starford/sift/internal/checksum"
	"github.com/starford/sift/internal/index"
	"github.com/starford/sift/internal/noteservice"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps domain errors to HTTP statuses. Unexpected errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("note already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			folder	query		string	false	"Filter by folder"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, path)
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, total, err := h.svc.ListNotes(r.Context(), index.ListFilter{
		Folder: q.Get("folder"),
		Tag:    q.Get("tag"),
		Sort:   q.Get("sort"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	})
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		note *NoteDetail
		err  error
	)
	switch {
	case req.Title != "":
		note, err = h.svc.CreateNote(r.Context(), noteservice.CreateRequest{
			Title:   req.Title,
			Content: req.Content,
			Tags:    req.Tags,
			Folder:  req.Folder,
		})
	case req.Path != "" && req.Content != "":
		note, err = h.svc.CreateRaw(r.Context(), req.Path, []byte(req.Content))
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("title, or path and content, are required"))
		return
	}
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Note path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body	body		UpdateNoteRequest	true	"Updated content"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	note, err := h.svc.UpdateNote(r.Context(), path, []byte(req.Content), r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(note.Checksum))
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/*. The note is moved to the trash
// unless permanent=true.
//
//	@Summary		Trash or delete a note
//	@Tags			notes
//	@Param			path		path	string	true	"Note path"
//	@Param			permanent	query	bool	false	"Delete instead of trashing"
//	@Success		200			{object}	TrashResponse
//	@Success		204			"Note deleted"
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if queryBool(r, "permanent") {
		if err := h.svc.DeleteNote(r.Context(), path); err != nil {
			writeError(w, "delete note", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	dest, err := h.svc.TrashNote(r.Context(), path)
	if err != nil {
		writeError(w, "trash note", err)
		return
	}
	writeJSON(w, http.StatusOK, TrashResponse{Path: dest})
}

// AppendText handles POST /api/append/*.
//
//	@Summary		Append text to a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Note path"
//	@Param			body	body		AppendRequest	true	"Text to append"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/append/{path} [post]
func (h *Handler) AppendText(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.AppendText(r.Context(), notePath(r), req.Text)
	if err != nil {
		writeError(w, "append text", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// AddTags handles POST /api/tag/*.
//
//	@Summary		Add tags to a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Note path"
//	@Param			body	body		AddTagsRequest	true	"Tags to add"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tag/{path} [post]
func (h *Handler) AddTags(w http.ResponseWriter, r *http.Request) {
	var req AddTagsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.AddTags(r.Context(), notePath(r), req.Tags)
	if err != nil {
		writeError(w, "add tags", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		Notes linking to a note
//	@Tags			notes
//	@Produce		json
//	@Param			path	path	string	true	"Note path"
//	@Success		200		{array}	string
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	bl, err := h.svc.Backlinks(r.Context(), notePath(r))
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	if bl == nil {
		bl = []string{}
	}
	writeJSON(w, http.StatusOK, bl)
}

// ListTags handles GET /api/tags.
//
//	@Summary		All tags with note counts
//	@Tags			notes
//	@Produce		json
//	@Success		200	{array}	models.TagCount
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}
