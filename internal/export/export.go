package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"longevitygenie/opengenes/internal/db"
)

var ErrUnsupportedFormat = errors.New("unsupported output format")

var Formats = []string{"xlsx", "json", "csv"}

// ResolveFormat returns format lower-cased, or the extension of output when
// format is empty.
func ResolveFormat(format string, output string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(output), ".")
	}
	format = strings.ToLower(format)

	if !slices.Contains(Formats, format) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return format, nil
}

// Write saves data to output in the given format.
func Write(ctx context.Context, data *db.ResultSet, output string, format string) error {
	format, err := ResolveFormat(format, output)
	if err != nil {
		return err
	}

	switch format {
	case "xlsx":
		return Excel(ctx, data, output)
	case "csv":
		return writeFile(output, func(w io.Writer) error { return CSV(w, data) })
	default:
		return writeFile(output, func(w io.Writer) error { return JSON(w, data) })
	}
}

func writeFile(output string, fn func(w io.Writer) error) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", output, err)
	}

	if err := fn(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// CSV writes a header row followed by one record per row. Nulls are empty
// fields and binary values are hex encoded.
func CSV(w io.Writer, data *db.ResultSet) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(data.ColumnNames()); err != nil {
		return err
	}

	record := make([]string, len(data.Columns))
	for _, row := range data.Rows {
		for i, field := range row {
			record[i] = field.Value.String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func JSON(w io.Writer, data *db.ResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
