package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const maxListedColumns = 8

// Summary renders a deterministic digest of the descriptor, followed by the
// opening paragraph of the usage document when one is available.
func (c *Catalog) Summary(ctx context.Context) (string, error) {
	d, err := c.Describe(ctx)
	if err != nil {
		return "", err
	}

	var usage string
	if c.usage != nil {
		text, err := c.usage.Text(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Usage document unavailable, summarising store metadata only", "error", err)
		} else {
			usage = firstParagraph(text)
		}
	}

	return renderSummary(d, usage), nil
}

func renderSummary(d *Descriptor, usage string) string {
	var b strings.Builder

	b.WriteString("OpenGenes Database Schema Summary\n")

	linked := len(d.Tables) > 0
	for i, t := range d.Tables {
		fmt.Fprintf(&b, "\n%d. %s (%d columns)\n", i+1, t.Name, len(t.Columns))
		if t.Purpose != "" {
			fmt.Fprintf(&b, "   - %s\n", t.Purpose)
		}

		names := make([]string, 0, len(t.Columns))
		hasGene := false
		for _, col := range t.Columns {
			names = append(names, col.Name)
			if col.Name == "HGNC" {
				hasGene = true
			}
		}
		linked = linked && hasGene

		if len(names) > maxListedColumns {
			fmt.Fprintf(&b, "   - Columns: %s, and %d more\n",
				strings.Join(names[:maxListedColumns], ", "), len(names)-maxListedColumns)
		} else {
			fmt.Fprintf(&b, "   - Columns: %s\n", strings.Join(names, ", "))
		}

		if doc, ok := documented(t.Name); ok && len(t.Enumerations) > 0 {
			parts := make([]string, 0, len(doc.Enumerated))
			for _, col := range doc.Enumerated {
				if values, ok := t.Enumerations[col]; ok {
					parts = append(parts, fmt.Sprintf("%s (%d values)", col, len(values)))
				}
			}
			fmt.Fprintf(&b, "   - Enumerated columns: %s\n", strings.Join(parts, ", "))
		}
	}

	if linked {
		b.WriteString("\nAll tables are linked by HGNC gene symbols, allowing cross-table queries about aging-related genes.\n")
	}

	if usage != "" {
		b.WriteString("\nUsage notes:\n")
		b.WriteString(usage)
		b.WriteString("\n")
	}

	return b.String()
}

func firstParagraph(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if i := strings.Index(text, "\n\n"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}
