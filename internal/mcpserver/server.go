// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes hook triage and ledger tools for LLM integration via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/hooktriage/internal/apperr"
	"github.com/starford/hooktriage/internal/index"
	"github.com/starford/hooktriage/internal/pipeline"
)

// LedgerFormatURI is the resource URI of the ledger format contract.
const LedgerFormatURI = "hooktriage://ledger-format"

// HookService runs hook messages through the triage pipeline.
type HookService interface {
	Handle(ctx context.Context, raw string) (*pipeline.Outcome, error)
	Preview(ctx context.Context, raw string) (*pipeline.Outcome, error)
}

// Server wraps the MCP server with hook triage tools.
type Server struct {
	mcp    *server.MCPServer
	hooks  HookService
	db     *index.DB
	src    index.LineSource
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered. The index is
// re-synced from src before every query so results include lines written
// by other processes.
func New(hooks HookService, db *index.DB, src index.LineSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{hooks: hooks, db: db, src: src, logger: logger}

	s.mcp = server.NewMCPServer(
		"hooktriage",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("handle_hook",
		mcp.WithDescription("Triage a GitHub hook notification, append the decision to the ledger "+
			"and publish it. The message is the raw notification text, including the "+
			"'Issue: #<n>' and 'Participants:' lines."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Raw hook notification text")),
	), s.handleHook)

	s.mcp.AddTool(mcp.NewTool("preview_triage",
		mcp.WithDescription("Show the triage decision for a hook notification without writing the ledger."),
		mcp.WithString("message", mcp.Required(), mcp.Description("Raw hook notification text")),
	), s.previewTriage)

	s.mcp.AddTool(mcp.NewTool("list_ledger_events",
		mcp.WithDescription("List ledger events newest first, optionally filtered."),
		mcp.WithString("event", mcp.Description("Event kind: task.progress or task.blocked")),
		mcp.WithString("task", mcp.Description("Task id, e.g. T-9")),
		mcp.WithString("agent", mcp.Description("Agent id")),
		mcp.WithNumber("limit", mcp.Description("Maximum events to return (default 50)")),
	), s.listLedgerEvents)

	s.mcp.AddTool(mcp.NewTool("search_ledger",
		mcp.WithDescription("Full-text search through ledger text, reasons and task ids."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchLedger)

	s.mcp.AddTool(mcp.NewTool("get_ledger_contract",
		mcp.WithDescription("Returns the ledger event format contract. "+
			"Call this before reading or auditing events.jsonl."),
	), s.getLedgerContract)

	// Resource: ledger format contract.
	s.mcp.AddResource(
		mcp.NewResource(LedgerFormatURI, "Ledger Format Contract",
			mcp.WithResourceDescription("Record format of the append-only ledger."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLedgerFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) handleHook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.hooks.Handle(ctx, msg)
	if err != nil {
		if errors.Is(err, apperr.ErrPublish) && out != nil && out.Event != nil {
			return mcp.NewToolResultError(fmt.Sprintf(
				"%v (event was appended locally but not published: %s)", err, out.Event)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out), nil
}

func (s *Server) previewTriage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.hooks.Preview(ctx, msg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out), nil
}

func (s *Server) refresh() error {
	_, err := index.Sync(s.db, s.src, s.logger)
	return err
}

func (s *Server) listLedgerEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.refresh(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, total, err := s.db.ListEvents(index.Filter{
		Event: req.GetString("event", ""),
		Task:  req.GetString("task", ""),
		Agent: req.GetString("agent", ""),
		Limit: req.GetInt("limit", 50),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"events": rows, "total": total}), nil
}

func (s *Server) searchLedger(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.refresh(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getLedgerContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LedgerFormatContract), nil
}

func (s *Server) readLedgerFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LedgerFormatURI,
			MIMEType: "text/markdown",
			Text:     LedgerFormatContract,
		},
	}, nil
}
