package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/docqa/internal/core/ports"
)

// Server exposes the QA workflow and document lookups as MCP tools over
// stdio, so agent hosts can use the knowledge base without going through the
// HTTP API.
type Server struct {
	mcpServer *server.MCPServer
	answerer  ports.QuestionAnswerer
	reader    ports.DocumentReader
}

func NewServer(version string, answerer ports.QuestionAnswerer, reader ports.DocumentReader) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer("docqa", version, server.WithToolCapabilities(false)),
		answerer:  answerer,
		reader:    reader,
	}

	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Answer a question from the indexed document collection, falling back to web search when the documents cannot support an answer. Returns the full session record including verdicts and provenance."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer."),
		),
	)
	s.mcpServer.AddTool(askTool, s.handleAsk)

	statusTool := mcp.NewTool("document_status",
		mcp.WithDescription("Look up the processing state of an uploaded document by its id."),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("The document id returned at upload time."),
		),
	)
	s.mcpServer.AddTool(statusTool, s.handleDocumentStatus)

	return s
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	record, err := s.answerer.Ask(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("workflow error: %v", err)), nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshal answer record: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (s *Server) handleDocumentStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.reader.GetByID(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// ServeStdio blocks, serving the MCP protocol on stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
