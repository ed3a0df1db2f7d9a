package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/docqa/internal/backend"
	"github.com/kalambet/docqa/internal/conversation"
	"github.com/kalambet/docqa/internal/documents"
)

// --- mocks ---

type mockBackend struct {
	mu       sync.Mutex
	fail     map[string]bool
	deleted  []string
	queryErr error
	answer   backend.QueryResponse
}

func (m *mockBackend) Upload(_ context.Context, fileName string, content io.Reader) (backend.UploadResponse, error) {
	io.Copy(io.Discard, content)
	if m.fail[fileName] {
		return backend.UploadResponse{}, &backend.RequestFailedError{Op: backend.OpUpload, Description: "server returned 500"}
	}
	return backend.UploadResponse{FileID: "id-" + fileName, Preview: "preview " + fileName}, nil
}

func (m *mockBackend) Delete(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, docID)
	return nil
}

func (m *mockBackend) DownloadURL(docID, fileName string) string {
	return fmt.Sprintf("http://backend/download?doc_id=%s&filename=%s", docID, fileName)
}

func (m *mockBackend) Query(_ context.Context, _ string) (backend.QueryResponse, error) {
	return m.answer, m.queryErr
}

// --- helpers ---

func newTestDeps(t *testing.T) (Deps, *mockBackend) {
	t.Helper()
	mb := &mockBackend{
		fail: map[string]bool{},
		answer: backend.QueryResponse{
			Answer:  "X is Y",
			Sources: []backend.Source{{FileName: "doc.pdf", ChunkIndex: 2, Text: "chunk"}},
		},
	}
	return Deps{
		Pipeline: documents.NewPipeline(mb),
		Engine:   conversation.New(mb, nil),
	}, mb
}

func writeFiles(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
		if err := os.WriteFile(paths[i], []byte("content "+n), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_UploadDocument(t *testing.T) {
	deps, _ := newTestDeps(t)
	paths := writeFiles(t, "a.pdf", "b.pdf")

	result, err := uploadDocument(deps)(context.Background(), makeCallToolRequest("upload_document", map[string]interface{}{
		"path":  paths[0],
		"paths": []string{paths[1]},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var resp struct {
		Status   string          `json:"status"`
		Message  string          `json:"message"`
		Outcomes []outcomeResult `json:"outcomes"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Status != "all succeeded" || resp.Message != "All files uploaded successfully!" {
		t.Errorf("status=%q message=%q", resp.Status, resp.Message)
	}
	if len(resp.Outcomes) != 2 || resp.Outcomes[0].FileID != "id-a.pdf" || resp.Outcomes[1].FileName != "b.pdf" {
		t.Errorf("outcomes = %+v", resp.Outcomes)
	}
	if n := len(deps.Pipeline.Documents()); n != 2 {
		t.Errorf("registry has %d documents, want 2", n)
	}
}

func TestMCPTool_UploadDocument_PartialAndAllFailed(t *testing.T) {
	deps, mb := newTestDeps(t)
	mb.fail["b.pdf"] = true
	paths := writeFiles(t, "a.pdf", "b.pdf")

	result, _ := uploadDocument(deps)(context.Background(), makeCallToolRequest("upload_document", map[string]interface{}{
		"paths": []string{paths[0], paths[1]},
	}))
	if result.IsError {
		t.Fatalf("partial batch reported as error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), `"status":"partial"`) {
		t.Errorf("response = %s", toolText(t, result))
	}

	result, _ = uploadDocument(deps)(context.Background(), makeCallToolRequest("upload_document", map[string]interface{}{
		"path": paths[1],
	}))
	if !result.IsError {
		t.Errorf("all-failed batch not reported as error: %s", toolText(t, result))
	}
}

func TestMCPTool_UploadDocument_MissingPath(t *testing.T) {
	deps, _ := newTestDeps(t)

	result, _ := uploadDocument(deps)(context.Background(), makeCallToolRequest("upload_document", map[string]interface{}{}))
	if !result.IsError || toolText(t, result) != "path is required" {
		t.Errorf("result = %+v", result)
	}
}

func TestMCPTool_Ask(t *testing.T) {
	deps, _ := newTestDeps(t)

	result, err := ask(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "What is X?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var resp struct {
		Answer    string                  `json:"answer"`
		Citations []conversation.Citation `json:"citations"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Answer != "X is Y" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Citations) != 1 || resp.Citations[0].SourceFileName != "doc.pdf" || resp.Citations[0].ChunkIndex != 2 {
		t.Errorf("citations = %+v", resp.Citations)
	}
}

func TestMCPTool_Ask_FailureAndBlank(t *testing.T) {
	deps, mb := newTestDeps(t)
	mb.queryErr = errors.New("connection refused")

	result, _ := ask(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "Why?",
	}))
	if !result.IsError || toolText(t, result) != conversation.ErrorPlaceholder {
		t.Errorf("failed ask result = %+v", result)
	}

	result, _ = ask(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "   ",
	}))
	if !result.IsError {
		t.Error("blank question not rejected")
	}
	if n := len(deps.Engine.Transcript()); n != 2 {
		t.Errorf("transcript has %d turns, want 2", n)
	}
}

func TestMCPTool_Ask_AnswerWithPlaceholderText(t *testing.T) {
	deps, mb := newTestDeps(t)
	mb.answer = backend.QueryResponse{Answer: conversation.ErrorPlaceholder, Sources: []backend.Source{}}

	result, err := ask(deps)(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
		"question": "What does the error say?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Errorf("answered question reported as error: %s", toolText(t, result))
	}
}

func TestMCPTool_ListAndDelete(t *testing.T) {
	deps, mb := newTestDeps(t)
	deps.Pipeline.Adopt(documents.Document{FileName: "a.pdf", FileID: "1"})
	deps.Pipeline.Adopt(documents.Document{FileName: "b.pdf", FileID: "2"})

	result, _ := listDocuments(deps)(context.Background(), makeCallToolRequest("list_documents", nil))
	var docs []documents.Document
	if err := json.Unmarshal([]byte(toolText(t, result)), &docs); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(docs) != 2 || docs[0].FileID != "1" || docs[1].FileID != "2" {
		t.Fatalf("documents = %+v", docs)
	}

	result, _ = deleteDocument(deps)(context.Background(), makeCallToolRequest("delete_document", map[string]interface{}{
		"file_id": "1",
	}))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	if toolText(t, result) != "Deleted a.pdf." {
		t.Errorf("response = %q", toolText(t, result))
	}
	if len(mb.deleted) != 1 || mb.deleted[0] != "1" {
		t.Errorf("backend deletes = %v", mb.deleted)
	}

	result, _ = deleteDocument(deps)(context.Background(), makeCallToolRequest("delete_document", map[string]interface{}{
		"file_id": "1",
	}))
	if !result.IsError || !strings.Contains(toolText(t, result), "no document with id 1") {
		t.Errorf("second delete = %+v", result)
	}
	if len(mb.deleted) != 1 {
		t.Error("unknown id reached the backend")
	}
}

func TestMCPTool_DownloadLink(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Pipeline.Adopt(documents.Document{FileName: "a.pdf", FileID: "1"})

	result, _ := downloadLink(deps)(context.Background(), makeCallToolRequest("download_link", map[string]interface{}{
		"file_id": "1",
	}))
	if toolText(t, result) != "http://backend/download?doc_id=1&filename=a.pdf" {
		t.Errorf("link = %q", toolText(t, result))
	}

	result, _ = downloadLink(deps)(context.Background(), makeCallToolRequest("download_link", map[string]interface{}{
		"file_id":   "9",
		"file_name": "old.pdf",
	}))
	if toolText(t, result) != "http://backend/download?doc_id=9&filename=old.pdf" {
		t.Errorf("link = %q", toolText(t, result))
	}

	result, _ = downloadLink(deps)(context.Background(), makeCallToolRequest("download_link", map[string]interface{}{
		"file_id": "9",
	}))
	if !result.IsError {
		t.Error("unknown id without file_name should be an error")
	}
}

func TestMCPResource_Transcript(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Engine.SubmitQuestion(context.Background(), "What is X?")

	contents, err := transcriptResource(deps)(context.Background(), makeReadResourceRequest("docqa://transcript"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}

	var turns []transcriptTurn
	if err := json.Unmarshal([]byte(tc.Text), &turns); err != nil {
		t.Fatalf("failed to parse transcript JSON: %v", err)
	}
	if len(turns) != 2 || turns[0].Speaker != conversation.SpeakerUser || turns[1].Text != "X is Y" {
		t.Errorf("turns = %+v", turns)
	}
	if len(turns[1].Citations) != 1 {
		t.Errorf("assistant citations = %+v", turns[1].Citations)
	}
}

func TestMCPResource_Documents(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Pipeline.Adopt(documents.Document{FileName: "a.pdf", FileID: "1", PreviewSnippet: "intro"})

	contents, err := documentsResource(deps)(context.Background(), makeReadResourceRequest("docqa://documents"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if !strings.Contains(tc.Text, `"preview":"intro"`) {
		t.Errorf("resource = %s", tc.Text)
	}
}

func TestMCPServer_ConcurrentAsks(t *testing.T) {
	deps, _ := newTestDeps(t)
	handler := ask(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := handler(context.Background(), makeCallToolRequest("ask", map[string]interface{}{
				"question": fmt.Sprintf("question %d", i),
			}))
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
	if n := len(deps.Engine.Transcript()); n != 20 {
		t.Errorf("transcript has %d turns, want 20", n)
	}
	if deps.Engine.InFlight() {
		t.Error("engine still in flight")
	}
}

func TestNew_ListsTools(t *testing.T) {
	deps, _ := newTestDeps(t)
	s := New(deps, "test")

	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, name := range []string{"upload_document", "ask", "list_documents", "delete_document", "download_link"} {
		if !strings.Contains(string(b), `"name":"`+name+`"`) {
			t.Errorf("tool %s not listed in %s", name, b)
		}
	}
}
