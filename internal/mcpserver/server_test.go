package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/sift/internal/noteservice"
	"github.com/starford/sift/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	svc := noteservice.New(store, db, testutil.TestExecutor(t), noteservice.WithLogger(testutil.Logger()))
	return New(svc, "test", testutil.Logger())
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_notes":       srv.searchNotes,
		"find_similar":       srv.findSimilar,
		"related_notes":      srv.relatedNotes,
		"suggest":            srv.suggest,
		"read_note":          srv.readNote,
		"list_notes":         srv.listNotes,
		"list_tags":          srv.listTags,
		"get_backlinks":      srv.getBacklinks,
		"create_note":        srv.createNote,
		"update_note":        srv.updateNote,
		"append_text":        srv.appendText,
		"add_tags":           srv.addTags,
		"trash_note":         srv.trashNote,
		"cache_stats":        srv.cacheStats,
		"performance_report": srv.performanceReport,
		"clear_cache":        srv.clearCache,
		"get_note_contract":  srv.getNoteContract,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadNote(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{
		"title":   "Test Note",
		"content": "Hello",
		"tags":    []any{"demo"},
	})
	if text := resultText(r); text != "created: test-note.md" {
		t.Fatalf("create result = %q", text)
	}

	r = callTool(t, srv, "read_note", map[string]any{"path": "test-note.md"})
	var note noteservice.NoteDetail
	if err := json.Unmarshal([]byte(resultText(r)), &note); err != nil {
		t.Fatalf("decode note: %v", err)
	}
	if note.Title != "Test Note" || !strings.HasSuffix(note.Content, "Hello\n") {
		t.Errorf("note = %+v", note)
	}
	if len(note.Tags) != 1 || note.Tags[0] != "demo" {
		t.Errorf("tags = %v", note.Tags)
	}
}

func TestCreateNoteRequiresTitle(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{"content": "x"})
	if !r.IsError {
		t.Error("expected error without title")
	}
}

func TestListNotes(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"title": "a"})
	_ = callTool(t, srv, "create_note", map[string]any{"title": "b"})

	r := callTool(t, srv, "list_notes", map[string]any{"sort": "path"})
	if text := resultText(r); text != "a.md\nb.md" {
		t.Errorf("list = %q", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_note", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{
		"title":   "a",
		"content": "links to [[b]]",
	})

	r := callTool(t, srv, "get_backlinks", map[string]any{"path": "b"})
	if text := resultText(r); text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
}

func TestSearchAndSuggest(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{
		"title":   "Caching strategies",
		"content": "Least recently used eviction keeps hot entries.",
		"tags":    []any{"caching"},
	})

	r := callTool(t, srv, "search_notes", map[string]any{"query": "eviction", "snippets": true})
	var results []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 1 || results[0]["path"] != "caching-strategies.md" {
		t.Errorf("results = %v", results)
	}

	r = callTool(t, srv, "suggest", map[string]any{"partial": "cach"})
	if !strings.Contains(resultText(r), "Caching strategies") {
		t.Errorf("suggest = %s", resultText(r))
	}
}

func TestUpdateNoteConflict(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"title": "x"})

	r := callTool(t, srv, "update_note", map[string]any{
		"path":     "x.md",
		"content":  "# x\n",
		"if_match": "not-the-checksum",
	})
	if !r.IsError {
		t.Error("expected conflict error")
	}

	r = callTool(t, srv, "update_note", map[string]any{"path": "x.md", "content": "# x\n"})
	if r.IsError || !strings.HasPrefix(resultText(r), "updated: x.md") {
		t.Errorf("update = %q", resultText(r))
	}
}

func TestAppendAddTagsTrash(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"title": "log"})

	if r := callTool(t, srv, "append_text", map[string]any{"path": "log.md", "text": "entry"}); r.IsError {
		t.Fatalf("append: %s", resultText(r))
	}
	r := callTool(t, srv, "add_tags", map[string]any{"path": "log.md", "tags": []any{"daily"}})
	if text := resultText(r); text != "tags: daily" {
		t.Errorf("add_tags = %q", text)
	}

	r = callTool(t, srv, "trash_note", map[string]any{"path": "log.md"})
	if text := resultText(r); text != "trashed: .trash/log.md" {
		t.Errorf("trash = %q", text)
	}
	if r := callTool(t, srv, "read_note", map[string]any{"path": "log.md"}); !r.IsError {
		t.Error("trashed note still readable")
	}
}

func TestCacheTools(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "list_tags", map[string]any{})
	_ = callTool(t, srv, "list_tags", map[string]any{})

	r := callTool(t, srv, "cache_stats", map[string]any{})
	var stats map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["hits"] != float64(1) {
		t.Errorf("hits = %v", stats["hits"])
	}

	r = callTool(t, srv, "clear_cache", map[string]any{})
	if text := resultText(r); text != "cleared 1 cached entries" {
		t.Errorf("clear = %q", text)
	}

	r = callTool(t, srv, "performance_report", map[string]any{"window_minutes": 5})
	if !strings.Contains(resultText(r), `"total_queries": 2`) {
		t.Errorf("report = %s", resultText(r))
	}
}

func TestGetNoteContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_note_contract", map[string]any{})
	if !strings.Contains(resultText(r), "Sift Note Format Contract") {
		t.Error("contract text missing")
	}
}
