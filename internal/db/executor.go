package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	querysql "longevitygenie/opengenes/internal/db/sql"
)

type ExecutorOptions struct {
	// Timeout bounds a single query; zero disables it.
	Timeout time.Duration
	// MaxWorkers bounds concurrently running queries; zero means unbounded.
	MaxWorkers uint8
	// Cache, when set, serves repeated queries without touching the store.
	Cache *Cache
}

// Executor validates and runs client SQL against the store.
type Executor struct {
	store   *Store
	policy  *querysql.Policy
	cache   *Cache
	timeout time.Duration
	sem     chan struct{}
}

func NewExecutor(store *Store, policy *querysql.Policy, opts ExecutorOptions) *Executor {
	ex := &Executor{
		store:   store,
		policy:  policy,
		cache:   opts.Cache,
		timeout: opts.Timeout,
	}
	if opts.MaxWorkers > 0 {
		ex.sem = make(chan struct{}, opts.MaxWorkers)
	}
	return ex
}

// Validate runs the policy alone.
func (ex *Executor) Validate(query string) querysql.Verdict {
	return ex.policy.Validate(query)
}

// Execute returns the complete result of query or one of *ValidationError and
// *ExecutionError. A rejected query never reaches the store.
func (ex *Executor) Execute(ctx context.Context, query string) (*ResultSet, error) {
	verdict := ex.policy.Validate(query)
	if !verdict.Allowed {
		slog.WarnContext(ctx, "Query rejected", "reason", verdict.Code())
		return nil, &ValidationError{Reason: verdict.Code()}
	}

	if queryType, err := querysql.Identify(query); err == nil {
		slog.DebugContext(ctx, "Identified query type", "query_type", queryType)
	}

	if ex.cache != nil {
		if res, ok := ex.cache.Get(query); ok {
			slog.DebugContext(ctx, "Query result found in cache", "rows", res.RowCount)
			return res, nil
		}
	}

	// The timeout covers the wait for a worker slot as well as the query.
	runCtx := ctx
	if ex.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, ex.timeout)
		defer cancel()
	}

	if err := ex.acquire(runCtx); err != nil {
		execErr := newExecutionError(runCtx, err, ex.timeout)
		slog.WarnContext(ctx, "No worker slot available", "reason", execErr.Reason)
		return nil, execErr
	}
	defer ex.release()

	var res *ResultSet
	err := ex.store.WithConn(runCtx, func(conn *sql.Conn) error {
		var err error
		res, err = getQueryResults(runCtx, conn, query)
		return err
	})
	if err != nil {
		execErr := newExecutionError(runCtx, err, ex.timeout)
		slog.ErrorContext(ctx, "Error running query", "reason", execErr.Reason, "error", err)
		return nil, execErr
	}

	if ex.cache != nil {
		ex.cache.Set(query, res)
	}

	slog.InfoContext(ctx, "Query finished", "rows", res.RowCount, "duration", res.Duration)

	return res, nil
}

func (ex *Executor) acquire(ctx context.Context) error {
	if ex.sem == nil {
		return ctx.Err()
	}
	select {
	case ex.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ex *Executor) release() {
	if ex.sem != nil {
		<-ex.sem
	}
}

func getQueryResults(ctx context.Context, conn *sql.Conn, query string) (*ResultSet, error) {
	start := time.Now()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error running query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("error identifying columns: %w", err)
	}

	results := &ResultSet{
		Query:   query,
		Columns: make([]Column, len(cols)),
		Rows:    make([]Row, 0, 100),
	}

	for i, col := range cols {
		nullable, ok := col.Nullable()
		results.Columns[i] = Column{
			Ordinal:  i,
			Name:     col.Name(),
			Type:     col.DatabaseTypeName(),
			Nullable: nullable || !ok,
		}
	}

	colPointers := make([]any, len(cols))
	colValues := make([]any, len(cols))

	for rows.Next() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		for i := range colValues {
			colValues[i] = nil
			colPointers[i] = &colValues[i]
		}

		if err := rows.Scan(colPointers...); err != nil {
			return nil, fmt.Errorf("error scanning rows: %w", err)
		}

		row := make(Row, len(cols))
		for i, v := range colValues {
			row[i] = Field{Name: results.Columns[i].Name, Value: valueOf(v)}
		}
		results.Rows = append(results.Rows, row)
		results.RowCount++
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("generic row error: %w", err)
	}

	results.Duration = time.Since(start)

	return results, nil
}
