// Package mcpserver exposes a document Q&A session over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/docqa/internal/conversation"
	"github.com/kalambet/docqa/internal/documents"
)

// Deps holds the session the MCP tools operate on.
type Deps struct {
	Pipeline *documents.Pipeline
	Engine   *conversation.Engine
}

// New creates an MCP server with all docqa tools and resources registered.
func New(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"docqa",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("docqa: upload documents to a Q&A backend and ask questions answered from them, with cited sources."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("upload_document",
			mcp.WithDescription("Upload one or more local files to the Q&A backend. Files are sent one at a time; a failed file does not stop the rest."),
			mcp.WithString("path", mcp.Description("Local file path to upload")),
			mcp.WithArray("paths", mcp.Description("Additional local file paths, uploaded after path in order")),
		),
		uploadDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask a question about the uploaded documents. Returns the answer and the chunks it cites."),
			mcp.WithString("question", mcp.Description("The question"), mcp.Required()),
		),
		ask(deps),
	)

	s.AddTool(
		mcp.NewTool("list_documents",
			mcp.WithDescription("List documents uploaded in this session, oldest first."),
		),
		listDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("delete_document",
			mcp.WithDescription("Delete an uploaded document from the backend."),
			mcp.WithString("file_id", mcp.Description("File id returned by upload_document"), mcp.Required()),
		),
		deleteDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("download_link",
			mcp.WithDescription("Return the URL from which the backend serves an uploaded document."),
			mcp.WithString("file_id", mcp.Description("File id returned by upload_document"), mcp.Required()),
			mcp.WithString("file_name", mcp.Description("File name; only needed for documents not uploaded in this session")),
		),
		downloadLink(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"docqa://transcript",
			"Conversation Transcript",
			mcp.WithResourceDescription("All question and answer turns of this session, in order"),
			mcp.WithMIMEType("application/json"),
		),
		transcriptResource(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"docqa://documents",
			"Uploaded Documents",
			mcp.WithResourceDescription("Documents uploaded in this session with their preview snippets"),
			mcp.WithMIMEType("application/json"),
		),
		documentsResource(deps),
	)

	return s
}

type outcomeResult struct {
	FileName string `json:"file_name"`
	FileID   string `json:"file_id,omitempty"`
	Preview  string `json:"preview,omitempty"`
	Error    string `json:"error,omitempty"`
}

func uploadDocument(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var paths []string
		if p := req.GetString("path", ""); p != "" {
			paths = append(paths, p)
		}
		paths = append(paths, req.GetStringSlice("paths", nil)...)
		if len(paths) == 0 {
			return mcpError("path is required"), nil
		}

		deps.Pipeline.SelectFiles(documents.LocalFiles(paths))
		result, err := deps.Pipeline.UploadSelected(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("upload not started: %v", err)), nil
		}

		outcomes := make([]outcomeResult, len(result.Outcomes))
		for i, o := range result.Outcomes {
			outcomes[i] = outcomeResult{FileName: o.FileName}
			if o.OK() {
				outcomes[i].FileID = o.Document.FileID
				outcomes[i].Preview = o.Document.PreviewSnippet
			} else {
				outcomes[i].Error = o.Err.Error()
			}
		}

		b, err := json.Marshal(map[string]any{
			"status":   result.Status.String(),
			"message":  result.Message(),
			"outcomes": outcomes,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		if result.Status == documents.BatchAllFailed {
			return mcpError(string(b)), nil
		}
		return mcpText(string(b)), nil
	}
}

func ask(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		turn, ok := deps.Engine.SubmitQuestion(ctx, question)
		if !ok {
			return mcpError("question must not be blank"), nil
		}
		if turn.Failed {
			return mcpError(turn.Text), nil
		}

		b, err := json.Marshal(map[string]any{
			"answer":    turn.Text,
			"citations": turn.Citations,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func listDocuments(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Pipeline.Documents())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal documents: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func deleteDocument(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("file_id")
		if err != nil {
			return mcpError("file_id is required"), nil
		}

		if err := deps.Pipeline.DeleteDocument(ctx, id); err != nil {
			if errors.Is(err, documents.ErrUnknownDocument) {
				return mcpError(fmt.Sprintf("no document with id %s in this session", id)), nil
			}
			return mcpError(fmt.Sprintf("delete failed: %v", err)), nil
		}
		return mcpText(deps.Pipeline.Status()), nil
	}
}

func downloadLink(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("file_id")
		if err != nil {
			return mcpError("file_id is required"), nil
		}

		name := req.GetString("file_name", "")
		if name == "" {
			doc, ok := deps.Pipeline.Document(id)
			if !ok {
				return mcpError(fmt.Sprintf("no document with id %s in this session; pass file_name", id)), nil
			}
			name = doc.FileName
		}
		return mcpText(deps.Pipeline.DownloadLink(id, name)), nil
	}
}

type transcriptTurn struct {
	Speaker   conversation.Speaker    `json:"speaker"`
	Text      string                  `json:"text"`
	Citations []conversation.Citation `json:"citations,omitempty"`
	Failed    bool                    `json:"failed,omitempty"`
}

func transcriptResource(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		turns := deps.Engine.Transcript()
		out := make([]transcriptTurn, len(turns))
		for i, t := range turns {
			out[i] = transcriptTurn{Speaker: t.Speaker, Text: t.Text, Citations: t.Citations, Failed: t.Failed}
		}

		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal transcript: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func documentsResource(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Pipeline.Documents())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal documents: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
