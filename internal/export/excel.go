package export

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"longevitygenie/opengenes/internal/db"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName    = "Results"
	maxColWidth  = 80.0
	minColWidth  = 8.0
	widthPadding = 2.0
)

// Styles are int because excelize.File.NewStyle() returns style index
type Styles struct {
	Number int
	Header int
}

// Creates new default styles
func NewStyles(f *excelize.File) (*Styles, error) {
	decimalPlaces := 2
	numberStyle, err := f.NewStyle(&excelize.Style{
		NumFmt:        0,
		DecimalPlaces: &decimalPlaces,
	})
	if err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}

	return &Styles{
		Number: numberStyle,
		Header: headerStyle,
	}, nil
}

// Excel writes the result set to a single sheet with a frozen header row.
func Excel(ctx context.Context, data *db.ResultSet, output string) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.ErrorContext(ctx, "Error closing file", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}

	if err := writeDataToSheet(f, sheetName, data); err != nil {
		slog.ErrorContext(ctx, "Error writing data to sheet", "error", err)
		return err
	}

	freezeHeader(f, sheetName)

	if err := f.SaveAs(output); err != nil {
		slog.ErrorContext(ctx, "Error saving file", "error", err)
		return err
	}

	return nil
}

func writeDataToSheet(f *excelize.File, sheetName string, data *db.ResultSet) error {
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	styles, err := NewStyles(f)
	if err != nil {
		return err
	}

	headers := uniqueHeaders(data.ColumnNames())

	// The stream writer only accepts widths before the first row.
	for i, width := range columnWidths(headers, data.Rows) {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return err
		}
	}

	headerRow := make([]any, len(headers))
	for i, name := range headers {
		headerRow[i] = excelize.Cell{Value: name, StyleID: styles.Header}
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return err
	}

	for i, row := range data.Rows {
		rowData := make([]any, len(headers))
		for j, field := range row {
			rowData[j] = cellValue(field.Value, styles)
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, rowData); err != nil {
			return err
		}
	}

	if len(data.Rows) > 0 && len(headers) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(headers), len(data.Rows)+1)

		enabled := true
		err = sw.AddTable(&excelize.Table{
			Range:             fmt.Sprintf("A1:%s", lastCell),
			Name:              fmt.Sprintf("Table_%s", sheetName),
			StyleName:         "TableStyleMedium2",
			ShowFirstColumn:   false,
			ShowLastColumn:    false,
			ShowRowStripes:    &enabled,
			ShowColumnStripes: false,
		})
		if err != nil {
			return err
		}
	}

	return sw.Flush()
}

func cellValue(v db.Value, styles *Styles) any {
	switch v.Kind {
	case db.KindNull:
		return nil
	case db.KindReal:
		if math.IsNaN(v.Real) || math.IsInf(v.Real, 0) {
			return nil
		}
		return excelize.Cell{Value: v.Real, StyleID: styles.Number}
	case db.KindBinary:
		return v.String()
	default:
		return v.Interface()
	}
}

// uniqueHeaders suffixes repeated names the same way rows do in JSON, since
// a worksheet table rejects duplicate column headers.
func uniqueHeaders(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s#%d", name, n)
		}
		out[i] = name
	}
	return out
}

func columnWidths(headers []string, rows []db.Row) []float64 {
	widths := make([]float64, len(headers))
	for i, h := range headers {
		widths[i] = float64(len(h))
	}
	for _, row := range rows {
		for j, field := range row {
			widths[j] = max(widths[j], float64(len(field.Value.String())))
		}
	}
	for i := range widths {
		widths[i] = min(max(widths[i]+widthPadding, minColWidth), maxColWidth)
	}
	return widths
}

func freezeHeader(f *excelize.File, sheetName string) {
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
