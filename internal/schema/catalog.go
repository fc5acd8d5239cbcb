// Package schema derives the OpenGenes schema descriptor from the store's own
// metadata and renders the human-readable summary.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"longevitygenie/opengenes/internal/db"
)

// ErrUnavailable wraps failures to read the store's metadata.
var ErrUnavailable = errors.New("schema unavailable")

type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

type Table struct {
	Name         string              `json:"name"`
	Purpose      string              `json:"purpose,omitempty"`
	Columns      []Column            `json:"columns"`
	Enumerations map[string][]string `json:"enumerations,omitempty"`
}

type Descriptor struct {
	Tables []Table `json:"tables"`
}

func (d *Descriptor) Table(name string) (Table, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Mismatches lists documented tables that are missing from the store or
// whose column count differs from the documentation.
func (d *Descriptor) Mismatches() []string {
	var out []string
	for _, doc := range Documented {
		t, ok := d.Table(doc.Name)
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("%s: table missing", doc.Name))
		case len(t.Columns) != doc.Columns:
			out = append(out, fmt.Sprintf("%s: %d columns, documented %d", doc.Name, len(t.Columns), doc.Columns))
		}
	}
	return out
}

// UsageDocument supplies the free-text schema and usage notes.
type UsageDocument interface {
	Text(ctx context.Context) (string, error)
}

// Catalog builds the Descriptor once, on first use, and keeps it for the
// life of the process. A failed build is not cached.
type Catalog struct {
	store *db.Store
	usage UsageDocument

	mu         sync.Mutex
	descriptor *Descriptor
}

func NewCatalog(store *db.Store, usage UsageDocument) *Catalog {
	return &Catalog{store: store, usage: usage}
}

// Describe returns the cached descriptor, building it if needed. Concurrent
// first callers wait for the single build in progress.
func (c *Catalog) Describe(ctx context.Context) (*Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.descriptor != nil {
		return c.descriptor, nil
	}

	d, err := c.build(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Error building schema descriptor", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.descriptor = d

	slog.InfoContext(ctx, "Schema descriptor built", "tables", len(d.Tables))

	return d, nil
}

func (c *Catalog) build(ctx context.Context) (*Descriptor, error) {
	d := &Descriptor{}

	err := c.store.WithConn(ctx, func(conn *sql.Conn) error {
		names, err := tableNames(ctx, conn)
		if err != nil {
			return err
		}

		for _, name := range orderTables(names) {
			cols, err := tableColumns(ctx, conn, name)
			if err != nil {
				return err
			}

			t := Table{Name: name, Columns: cols}
			if doc, ok := documented(name); ok {
				t.Purpose = doc.Purpose
				t.Enumerations, err = enumerations(ctx, conn, name, cols, doc.Enumerated)
				if err != nil {
					return err
				}
			}
			d.Tables = append(d.Tables, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}

func tableNames(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("error listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("error scanning table name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func tableColumns(ctx context.Context, conn *sql.Conn, table string) ([]Column, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT name, type, "notnull", pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("error reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			col     Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("error scanning columns of %s: %w", table, err)
		}
		col.Nullable = notNull == 0
		col.PrimaryKey = pk > 0
		cols = append(cols, col)
	}

	return cols, rows.Err()
}

func enumerations(
	ctx context.Context, conn *sql.Conn, table string,
	cols []Column, wanted []string,
) (map[string][]string, error) {
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c.Name] = true
	}

	out := make(map[string][]string, len(wanted))
	for _, col := range wanted {
		if !present[col] {
			slog.WarnContext(ctx, "Enumerated column missing from store", "table", table, "column", col)
			continue
		}

		query := fmt.Sprintf("SELECT DISTINCT %[1]s FROM %[2]s WHERE %[1]s IS NOT NULL ORDER BY 1",
			quoteIdent(col), quoteIdent(table))
		values, err := distinct(ctx, conn, query)
		if err != nil {
			return nil, fmt.Errorf("error enumerating %s.%s: %w", table, col, err)
		}
		out[col] = values
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func distinct(ctx context.Context, conn *sql.Conn, query string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v.String)
	}

	return values, rows.Err()
}

// orderTables puts documented tables first, in documented order, followed by
// the rest alphabetically.
func orderTables(names []string) []string {
	rank := make(map[string]int, len(Documented))
	for i, d := range Documented {
		rank[d.Name] = i
	}

	out := append([]string(nil), names...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i] < out[j]
		}
	})
	return out
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
