package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"longevitygenie/opengenes/internal/db"

	"github.com/xuri/excelize/v2"
)

func sampleResult() *db.ResultSet {
	cols := []db.Column{
		{Ordinal: 0, Name: "HGNC", Type: "TEXT"},
		{Ordinal: 1, Name: "lifespan_percent_change_mean", Type: "REAL"},
		{Ordinal: 2, Name: "HGNC", Type: "TEXT"},
		{Ordinal: 3, Name: "n", Type: "INTEGER"},
	}
	row := func(a string, b db.Value, c string, n int64) db.Row {
		return db.Row{
			{Name: "HGNC", Value: db.Text(a)},
			{Name: "lifespan_percent_change_mean", Value: b},
			{Name: "HGNC", Value: db.Text(c)},
			{Name: "n", Value: db.Integer(n)},
		}
	}

	return &db.ResultSet{
		Query:   "SELECT HGNC, lifespan_percent_change_mean, HGNC, n FROM x",
		Columns: cols,
		Rows: []db.Row{
			row("IGF1R", db.Real(33.5), "IGF1R", 1),
			row("SIRT6", db.Null(), "SIRT6", 2),
		},
		RowCount: 2,
	}
}

func TestResolveFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format, output, want string
		ok                   bool
	}{
		{"", "out.xlsx", "xlsx", true},
		{"", "out.CSV", "csv", true},
		{"json", "out.txt", "json", true},
		{"", "out", "", false},
		{"parquet", "out.parquet", "", false},
	}

	for _, tt := range tests {
		got, err := ResolveFormat(tt.format, tt.output)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ResolveFormat(%q, %q) = %q, %v", tt.format, tt.output, got, err)
		}
		if !tt.ok && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ResolveFormat(%q, %q): expected ErrUnsupportedFormat, got %v", tt.format, tt.output, err)
		}
	}
}

func TestExcel(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "result.xlsx")
	if err := Write(context.Background(), sampleResult(), output, ""); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	f, err := excelize.OpenFile(output)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}

	wantHeader := []string{"HGNC", "lifespan_percent_change_mean", "HGNC#2", "n"}
	for i, want := range wantHeader {
		if rows[0][i] != want {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], want)
		}
	}

	if rows[1][0] != "IGF1R" || rows[1][1] != "33.5" || rows[1][3] != "1" {
		t.Errorf("unexpected first row %v", rows[1])
	}
	if rows[2][1] != "" || rows[2][3] != "2" {
		t.Errorf("null not written as empty cell: %v", rows[2])
	}
}

func TestExcelEmptyResult(t *testing.T) {
	t.Parallel()

	rs := sampleResult()
	rs.Rows, rs.RowCount = nil, 0

	output := filepath.Join(t.TempDir(), "empty.xlsx")
	if err := Excel(context.Background(), rs, output); err != nil {
		t.Fatalf("Excel failed: %v", err)
	}

	f, err := excelize.OpenFile(output)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows(sheetName)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
}

func TestCSV(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "result.csv")
	if err := Write(context.Background(), sampleResult(), output, ""); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	b, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}

	if len(records) != 3 || records[0][2] != "HGNC" {
		t.Fatalf("unexpected records %v", records)
	}
	if records[2][1] != "" || records[1][1] != "33.5" {
		t.Errorf("unexpected values %v", records)
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := JSON(&buf, sampleResult()); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var got struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
		Count   int              `json:"count"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	if got.Count != 2 || len(got.Columns) != 4 {
		t.Fatalf("unexpected document %+v", got)
	}
	if got.Rows[0]["HGNC#2"] != "IGF1R" || got.Rows[1]["lifespan_percent_change_mean"] != nil {
		t.Errorf("unexpected rows %v", got.Rows)
	}
}
