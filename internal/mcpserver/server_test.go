package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"longevitygenie/opengenes/internal/db"
	querysql "longevitygenie/opengenes/internal/db/sql"
	"longevitygenie/opengenes/internal/dbtest"
	"longevitygenie/opengenes/internal/gateway"
	"longevitygenie/opengenes/internal/schema"

	"github.com/mark3labs/mcp-go/mcp"
)

type staticDoc string

func (d staticDoc) Text(context.Context) (string, error) {
	return string(d), nil
}

func newTestHandlers(t *testing.T) *handlers {
	t.Helper()

	store, err := db.Open(context.Background(), dbtest.NewStore(t), db.StoreOptions{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	doc := staticDoc("Usage notes for the store.")
	executor := db.NewExecutor(store, querysql.ReadOnly(), db.ExecutorOptions{Timeout: 5 * time.Second})

	return &handlers{gw: gateway.New(executor, schema.NewCatalog(store, doc), doc)}
}

func callTool(t *testing.T, h toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	var req mcp.CallToolRequest
	req.Params.Arguments = args

	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned protocol error: %v", err)
	}
	return res
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	if len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestToolNamesAndDescriptions(t *testing.T) {
	t.Parallel()

	h := &handlers{}

	tools := h.tools(Options{Prefix: "opengenes_"})
	var names []string
	for _, tool := range tools {
		names = append(names, tool.Tool.Name)
	}
	want := "opengenes_get_schema_info,opengenes_example_queries,opengenes_db_query"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("tool names = %s", got)
	}

	query := tools[2].Tool
	if !strings.HasSuffix(query.Description, queryHint) {
		t.Errorf("query description lacks hint: %q", query.Description)
	}
	if len(query.InputSchema.Required) != 1 || query.InputSchema.Required[0] != "sql" {
		t.Errorf("sql argument not required: %v", query.InputSchema.Required)
	}

	huge := h.tools(Options{Prefix: "og_", HugeQueryTool: true, Prompt: "FULL PROMPT\n"})[2].Tool
	if huge.Name != "og_db_query" || !strings.HasSuffix(huge.Description, "\n\nFULL PROMPT") {
		t.Errorf("huge description = %q", huge.Description)
	}

	noPrompt := h.tools(Options{HugeQueryTool: true})[2].Tool
	if !strings.HasSuffix(noPrompt.Description, queryHint) {
		t.Errorf("missing prompt should fall back to the hint: %q", noPrompt.Description)
	}
}

func TestDBQueryTool(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t)

	res := callTool(t, h.dbQuery, map[string]any{"sql": "SELECT HGNC, model_organism FROM lifespan_change WHERE HGNC = 'TP53'"})
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}

	var got struct {
		Query   string           `json:"query"`
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Count != 1 || got.Rows[0]["model_organism"] != "mouse" || !strings.HasPrefix(got.Query, "SELECT HGNC") {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDBQueryToolErrors(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t)

	tests := []struct {
		name   string
		args   map[string]any
		code   string
		reason string
	}{
		{"drop", map[string]any{"sql": "DROP TABLE lifespan_change"}, gateway.CodeValidation, "not-a-select"},
		{"missing argument", map[string]any{}, gateway.CodeValidation, "missing-argument"},
		{"unknown table", map[string]any{"sql": "SELECT * FROM nope"}, gateway.CodeExecution, db.ReasonExecutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := callTool(t, h.dbQuery, tt.args)
			if !res.IsError {
				t.Fatal("expected error result")
			}

			var gwErr gateway.Error
			if err := json.Unmarshal([]byte(resultText(t, res)), &gwErr); err != nil {
				t.Fatalf("error payload is not json: %v", err)
			}
			if gwErr.Code != tt.code || gwErr.Reason != tt.reason || gwErr.Message == "" {
				t.Fatalf("unexpected payload %+v", gwErr)
			}
		})
	}
}

func TestSchemaAndExampleTools(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t)

	var d schema.Descriptor
	if err := json.Unmarshal([]byte(resultText(t, callTool(t, h.getSchemaInfo, nil))), &d); err != nil {
		t.Fatalf("invalid schema json: %v", err)
	}
	if len(d.Tables) != 4 {
		t.Fatalf("expected 4 tables, got %d", len(d.Tables))
	}

	var examples []map[string]string
	if err := json.Unmarshal([]byte(resultText(t, callTool(t, h.exampleQueries, nil))), &examples); err != nil {
		t.Fatalf("invalid examples json: %v", err)
	}
	if len(examples) == 0 || examples[0]["sql"] == "" || examples[0]["description"] == "" {
		t.Fatalf("unexpected examples %v", examples)
	}
}

func TestResources(t *testing.T) {
	t.Parallel()

	h := newTestHandlers(t)

	for _, r := range h.resources() {
		var req mcp.ReadResourceRequest
		req.Params.URI = r.Resource.URI

		contents, err := r.Handler(context.Background(), req)
		if err != nil {
			t.Fatalf("%s: %v", r.Resource.URI, err)
		}

		text, ok := contents[0].(mcp.TextResourceContents)
		if !ok || text.URI != r.Resource.URI || text.Text == "" {
			t.Fatalf("%s: unexpected contents %#v", r.Resource.URI, contents)
		}

		switch r.Resource.URI {
		case DBPromptURI:
			if text.Text != "Usage notes for the store." {
				t.Errorf("db-prompt = %q", text.Text)
			}
		case SchemaSummaryURI:
			if !strings.Contains(text.Text, "gene_hallmarks (2 columns)") {
				t.Errorf("schema-summary = %q", text.Text)
			}
		}
	}
}
