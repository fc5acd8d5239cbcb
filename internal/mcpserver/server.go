// Package mcpserver registers the gateway operations as MCP tools and
// resources and serves them over stdio, streamable HTTP or SSE.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"longevitygenie/opengenes/internal/gateway"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	DBPromptURI      = "resource://db-prompt"
	SchemaSummaryURI = "resource://schema-summary"

	queryDescription = "Query the Opengenes database that contains data about genes involved in longevity, " +
		"lifespan extension experiments on model organisms, and changes in human and other organisms with aging."
	queryHint = " Before calling this tool the first time, always check tools that provide schema information and example queries."
)

type Options struct {
	Name    string
	Version string
	// Prefix is prepended to every tool name, e.g. "opengenes_".
	Prefix string
	// HugeQueryTool appends Prompt to the query tool description.
	HugeQueryTool bool
	Prompt        string
}

type handlers struct {
	gw *gateway.Gateway
}

func New(gw *gateway.Gateway, opts Options) *server.MCPServer {
	s := server.NewMCPServer(opts.Name, opts.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)

	h := &handlers{gw: gw}
	s.AddTools(h.tools(opts)...)

	for _, r := range h.resources() {
		s.AddResource(r.Resource, r.Handler)
	}

	return s
}

func (h *handlers) tools(opts Options) []server.ServerTool {
	description := queryDescription
	if opts.HugeQueryTool && strings.TrimSpace(opts.Prompt) != "" {
		description += "\n\n" + strings.TrimSpace(opts.Prompt)
	} else {
		description += queryHint
	}

	return []server.ServerTool{
		{
			Tool: mcp.NewTool(opts.Prefix+"get_schema_info",
				mcp.WithDescription("Get information about the database schema"),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: h.getSchemaInfo,
		},
		{
			Tool: mcp.NewTool(opts.Prefix+"example_queries",
				mcp.WithDescription("Get a list of example SQL queries"),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: h.exampleQueries,
		},
		{
			Tool: mcp.NewTool(opts.Prefix+"db_query",
				mcp.WithDescription(description),
				mcp.WithString("sql",
					mcp.Required(),
					mcp.Description("The SQL SELECT query to execute"),
				),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: h.dbQuery,
		},
	}
}

type serverResource struct {
	Resource mcp.Resource
	Handler  server.ResourceHandlerFunc
}

func (h *handlers) resources() []serverResource {
	return []serverResource{
		{
			Resource: mcp.NewResource(DBPromptURI, "db-prompt",
				mcp.WithResourceDescription("Full schema and usage notes for the OpenGenes database"),
				mcp.WithMIMEType("text/plain"),
			),
			Handler: h.dbPrompt,
		},
		{
			Resource: mcp.NewResource(SchemaSummaryURI, "schema-summary",
				mcp.WithResourceDescription("Short digest of the OpenGenes tables and their enumerated columns"),
				mcp.WithMIMEType("text/plain"),
			),
			Handler: h.schemaSummary,
		},
	}
}

func (h *handlers) dbQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sql, err := req.RequireString("sql")
	if err != nil {
		return errorResult(&gateway.Error{
			Code:    gateway.CodeValidation,
			Reason:  "missing-argument",
			Message: err.Error(),
		}), nil
	}

	res, err := h.gw.DBQuery(ctx, sql)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res)
}

func (h *handlers) getSchemaInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := h.gw.GetSchemaInfo(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(d)
}

func (h *handlers) exampleQueries(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.gw.ExampleQueries())
}

func (h *handlers) dbPrompt(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return textContents(req.Params.URI, h.gw.DBPrompt(ctx)), nil
}

func (h *handlers) schemaSummary(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	summary, err := h.gw.SchemaSummary(ctx)
	if err != nil {
		return nil, err
	}
	return textContents(req.Params.URI, summary), nil
}

func textContents(uri string, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "text/plain", Text: text},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unable to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// errorResult reports err inside the tool result so the client sees the
// structured payload rather than a protocol error.
func errorResult(err error) *mcp.CallToolResult {
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		gwErr = &gateway.Error{Code: gateway.CodeInternal, Reason: "internal", Message: err.Error()}
	}

	b, _ := json.Marshal(gwErr)
	return mcp.NewToolResultError(string(b))
}

// Serve blocks until ctx is done or the transport fails.
func Serve(ctx context.Context, s *server.MCPServer, transport string, addr string, endpoint string) error {
	switch transport {
	case "stdio":
		slog.InfoContext(ctx, "Serving on stdio")
		return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	case "http":
		httpServer := server.NewStreamableHTTPServer(s, server.WithEndpointPath(endpoint))
		return serveUntilDone(ctx, transport, addr, httpServer.Start, httpServer.Shutdown)
	case "sse":
		sseServer := server.NewSSEServer(s)
		return serveUntilDone(ctx, transport, addr, sseServer.Start, sseServer.Shutdown)
	default:
		return fmt.Errorf("unknown transport %q", transport)
	}
}

func serveUntilDone(
	ctx context.Context, transport string, addr string,
	start func(string) error, shutdown func(context.Context) error,
) error {
	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Serving", "transport", transport, "addr", addr)
		errCh <- start(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down", "transport", transport)
		return shutdown(context.WithoutCancel(ctx))
	}
}
