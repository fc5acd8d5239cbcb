package gateway

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime/debug"
	"time"

	"longevitygenie/opengenes/internal/db"
	"longevitygenie/opengenes/internal/examples"
	"longevitygenie/opengenes/internal/logger"
	"longevitygenie/opengenes/internal/schema"

	"github.com/google/uuid"
)

// PromptNotFound is served on resource://db-prompt when the usage document
// cannot be read.
const PromptNotFound = "Database prompt file not found."

// Gateway is the public surface over the store: three operations and two
// document resources. Every failure leaves it as an *Error.
type Gateway struct {
	executor *db.Executor
	catalog  *schema.Catalog
	usage    schema.UsageDocument
}

func New(executor *db.Executor, catalog *schema.Catalog, usage schema.UsageDocument) *Gateway {
	return &Gateway{executor: executor, catalog: catalog, usage: usage}
}

// DBQuery validates and runs sql, returning the complete result.
func (g *Gateway) DBQuery(ctx context.Context, sql string) (*db.ResultSet, error) {
	return call(ctx, "db_query", func(ctx context.Context) (*db.ResultSet, error) {
		return g.executor.Execute(ctx, sql)
	})
}

func (g *Gateway) GetSchemaInfo(ctx context.Context) (*schema.Descriptor, error) {
	return call(ctx, "get_schema_info", g.catalog.Describe)
}

func (g *Gateway) ExampleQueries() []examples.Example {
	return examples.List()
}

// DBPrompt returns the usage document, PromptNotFound when there is none, or
// a description of the read failure.
func (g *Gateway) DBPrompt(ctx context.Context) string {
	text, err := call(ctx, "db_prompt", func(ctx context.Context) (string, error) {
		if g.usage == nil {
			return PromptNotFound, nil
		}
		text, err := g.usage.Text(ctx)
		if errors.Is(err, fs.ErrNotExist) {
			slog.WarnContext(ctx, "Usage document not found", "error", err)
			return PromptNotFound, nil
		}
		return text, err
	})
	if err != nil {
		var gwErr *Error
		if errors.As(err, &gwErr) {
			return "Error reading prompt file: " + gwErr.Message
		}
		return "Error reading prompt file: " + err.Error()
	}
	return text
}

func (g *Gateway) SchemaSummary(ctx context.Context) (string, error) {
	return call(ctx, "schema_summary", g.catalog.Summary)
}

// call runs fn with a request id attached to every record it logs, and turns
// its error, or a panic, into an *Error.
func call[T any](ctx context.Context, op string, fn func(context.Context) (T, error)) (res T, err error) {
	ctx = logger.WithAttrs(ctx,
		slog.String("request_id", uuid.NewString()),
		slog.String("operation", op),
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Recovered from panic", "panic", r, "stack", string(debug.Stack()))
			var zero T
			res = zero
			err = &Error{Code: CodeInternal, Reason: "internal", Message: fmt.Sprint(r)}
		}
	}()

	res, err = fn(ctx)
	if err != nil {
		gwErr := translate(err)
		slog.WarnContext(ctx, "Call failed", "code", gwErr.Code, "reason", gwErr.Reason, "duration", time.Since(start))
		var zero T
		return zero, gwErr
	}

	slog.DebugContext(ctx, "Call finished", "duration", time.Since(start))

	return res, nil
}
