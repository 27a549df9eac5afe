// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes sift search and note tools for LLM integration via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/sift/internal/index"
	"github.com/starford/sift/internal/noteservice"
	"github.com/starford/sift/internal/search"
)

const noteFormatURI = "sift://note-format"

// Server wraps the MCP server with sift tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	logger *slog.Logger
}

// New creates a new MCP server with all sift tools registered.
func New(svc *noteservice.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		"Sift",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Ranked full-text search over note titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query; notes containing the whole query verbatim rank higher")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		mcp.WithBoolean("fuzzy", mcp.Description("Also match single-character typos")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case exactly")),
		mcp.WithBoolean("snippets", mcp.Description("Include text snippets around matches")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("find_similar",
		mcp.WithDescription("Find notes whose keywords overlap with the given text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Reference text")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
		mcp.WithNumber("min_similarity", mcp.Description("Minimum similarity between 0 and 1 (default 0.1). A negative value keeps every note.")),
	), s.findSimilar)

	s.mcp.AddTool(mcp.NewTool("related_notes",
		mcp.WithDescription("List notes similar to a note and the notes linking to it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of similar notes")),
	), s.relatedNotes)

	s.mcp.AddTool(mcp.NewTool("suggest",
		mcp.WithDescription("Auto-complete a partial query with frequent terms, titles and tags."),
		mcp.WithString("partial", mcp.Required(), mcp.Description("Partial query")),
		mcp.WithNumber("limit", mcp.Description("Maximum suggestions per list (default 5)")),
	), s.suggest)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note with its checksum and backlinks."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally restricted to a folder or a tag."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
		mcp.WithString("sort", mcp.Description("Sort order: updated (default), title or path")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags with the number of notes carrying each."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Frontmatter (id, title, tags, created) is generated; "+
			"pass only the Markdown body. Read the contract first via the get_note_contract tool "+
			"or the "+noteFormatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title; also used for the file name")),
		mcp.WithString("content", mcp.Description("Markdown body")),
		mcp.WithString("folder", mcp.Description("Optional folder for the new note")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Optional tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the full content of an existing note, frontmatter included."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content following the note format contract")),
		mcp.WithString("if_match", mcp.Description("Checksum from read_note; the update fails if the note changed since")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("append_text",
		mcp.WithDescription("Append text to the end of a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Markdown to append")),
	), s.appendText)

	s.mcp.AddTool(mcp.NewTool("add_tags",
		mcp.WithDescription("Add tags to a note's frontmatter."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithArray("tags", mcp.Required(), mcp.WithStringItems(), mcp.Description("Tags to add")),
	), s.addTags)

	s.mcp.AddTool(mcp.NewTool("trash_note",
		mcp.WithDescription("Move a note to the vault trash. Trashed notes are no longer searched."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
	), s.trashNote)

	s.mcp.AddTool(mcp.NewTool("cache_stats",
		mcp.WithDescription("Query cache statistics: size, hit rate, evictions and memory estimate."),
	), s.cacheStats)

	s.mcp.AddTool(mcp.NewTool("performance_report",
		mcp.WithDescription("Summary of recent query performance with slow operations and recommendations."),
		mcp.WithNumber("window_minutes", mcp.Description("Report window in minutes (default 60)")),
	), s.performanceReport)

	s.mcp.AddTool(mcp.NewTool("clear_cache",
		mcp.WithDescription("Drop every cached query result."),
	), s.clearCache)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical sift note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	// Resource: note format contract.
	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Canonical Markdown note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio serves MCP on stdin/stdout until ctx is cancelled or stdin
// closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) toolError(tool string, err error) (*mcp.CallToolResult, error) {
	s.logger.Debug("mcp: tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, noteservice.SearchRequest{
		Query:         query,
		Limit:         req.GetInt("limit", 0),
		Fuzzy:         req.GetBool("fuzzy", false),
		CaseSensitive: req.GetBool("case_sensitive", false),
		Snippets:      req.GetBool("snippets", false),
	})
	if err != nil {
		return s.toolError("search_notes", err)
	}
	return jsonResult(results)
}

func (s *Server) findSimilar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.FindSimilar(ctx, text, search.SimilarOptions{
		Limit:         req.GetInt("limit", 0),
		MinSimilarity: req.GetFloat("min_similarity", 0),
	})
	if err != nil {
		return s.toolError("find_similar", err)
	}
	return jsonResult(results)
}

func (s *Server) relatedNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := s.svc.RelatedNotes(ctx, path, req.GetInt("limit", 0))
	if err != nil {
		return s.toolError("related_notes", err)
	}
	return jsonResult(rel)
}

func (s *Server) suggest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	partial, err := req.RequireString("partial")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sug, err := s.svc.Suggest(ctx, partial, req.GetInt("limit", 0))
	if err != nil {
		return s.toolError("suggest", err)
	}
	return jsonResult(sug)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, path)
	if err != nil {
		return s.toolError("read_note", err)
	}
	return jsonResult(note)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListNotes(ctx, index.ListFilter{
		Folder: req.GetString("folder", ""),
		Tag:    req.GetString("tag", ""),
		Sort:   req.GetString("sort", ""),
		Limit:  req.GetInt("limit", 0),
	})
	if err != nil {
		return s.toolError("list_notes", err)
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.Path
	}
	if total > len(items) {
		lines = append(lines, fmt.Sprintf("(%d of %d)", len(items), total))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listTags(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.ListTags(ctx)
	if err != nil {
		return s.toolError("list_tags", err)
	}
	return jsonResult(tags)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return s.toolError("get_backlinks", err)
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.CreateNote(ctx, noteservice.CreateRequest{
		Title:   title,
		Content: req.GetString("content", ""),
		Tags:    req.GetStringSlice("tags", nil),
		Folder:  req.GetString("folder", ""),
	})
	if err != nil {
		return s.toolError("create_note", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.Path)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.UpdateNote(ctx, path, []byte(content), req.GetString("if_match", ""))
	if err != nil {
		return s.toolError("update_note", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (checksum %s)", note.Path, note.Checksum)), nil
}

func (s *Server) appendText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.AppendText(ctx, path, text)
	if err != nil {
		return s.toolError("append_text", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("appended: %s", note.Path)), nil
}

func (s *Server) addTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.AddTags(ctx, path, req.GetStringSlice("tags", nil))
	if err != nil {
		return s.toolError("add_tags", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("tags: %s", strings.Join(note.Tags, ", "))), nil
}

func (s *Server) trashNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dest, err := s.svc.TrashNote(ctx, path)
	if err != nil {
		return s.toolError("trash_note", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("trashed: %s", dest)), nil
}

func (s *Server) cacheStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.CacheStats())
}

func (s *Server) performanceReport(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	window := time.Duration(req.GetInt("window_minutes", 60)) * time.Minute
	if window <= 0 {
		window = time.Hour
	}
	return jsonResult(s.svc.PerformanceReport(time.Now().Add(-window)))
}

func (s *Server) clearCache(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.svc.ClearCache()
	return mcp.NewToolResultText(fmt.Sprintf("cleared %d cached entries", n)), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
