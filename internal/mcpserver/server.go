// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes indexsync tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/journal"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/syncservice"
)

// ContentModelURI is the resource URI of the content model contract.
const ContentModelURI = "indexsync://content-model"

// Service is the run coordinator the tools call into.
type Service interface {
	Records(ctx context.Context) ([]models.Record, error)
	Preview(ctx context.Context, target string) (*syncservice.Preview, error)
	Publish(ctx context.Context, target string, override *models.Override, dryRun bool) (*syncservice.Outcome, error)
	Runs(ctx context.Context, limit int) ([]journal.Run, error)
}

// Server wraps the MCP server with indexsync tools.
type Server struct {
	mcp *server.MCPServer
	svc Service
}

// New creates a new MCP server with all indexsync tools registered.
func New(svc Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"indexsync",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List the search records built from the local content tree. "+
			"These are exactly the records a publish would upsert."),
	), s.listRecords)

	s.mcp.AddTool(mcp.NewTool("preview_changeset",
		mcp.WithDescription("Compute which records a publish would delete and upsert, without changing the index."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Deploy target (e.g. algolia://docs)")),
	), s.previewChangeset)

	s.mcp.AddTool(mcp.NewTool("publish_index",
		mcp.WithDescription("Reconcile the remote index with the local content: delete retired records, "+
			"then upsert every local record. Read the content model first via the "+
			ContentModelURI+" resource."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Deploy target (e.g. algolia://docs)")),
		mcp.WithBoolean("dry_run", mcp.Description("Stop after computing the changeset")),
	), s.publishIndex)

	s.mcp.AddTool(mcp.NewTool("run_history",
		mcp.WithDescription("List recent publish runs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of runs (default 20)")),
	), s.runHistory)

	s.mcp.AddResource(
		mcp.NewResource(ContentModelURI, "Content Model",
			mcp.WithResourceDescription("How content nodes map to search records."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContentModel,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperr.Kind(err) + ": " + err.Error())
}

func (s *Server) listRecords(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recs, err := s.svc.Records(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if recs == nil {
		recs = []models.Record{}
	}
	return jsonResult(recs), nil
}

func (s *Server) previewChangeset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	preview, err := s.svc.Preview(ctx, target)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(preview), nil
}

func (s *Server) publishIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Publish(ctx, target, nil, req.GetBool("dry_run", false))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(out), nil
}

func (s *Server) runHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runs, err := s.svc.Runs(ctx, req.GetInt("limit", 20))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(runs), nil
}

func (s *Server) readContentModel(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContentModelURI,
			MIMEType: "text/markdown",
			Text:     ContentModelContract,
		},
	}, nil
}
