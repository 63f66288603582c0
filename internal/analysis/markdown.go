package analysis

import (
	"fmt"
	"strings"
)

// Markdown renders a compact summary of the profile for terminal output.
func (p *DatasetProfile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", p.Cols))
	b.WriteString(fmt.Sprintf("Duplicate rows: %d (%.1f%%)\n\n", p.Duplicates, p.DuplicatePct))

	b.WriteString("[SCHEMA]\n")
	for _, name := range p.Order {
		c := p.Columns[name]
		if c == nil {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %s (missing %d, %.1f%%; unique %d)", SafeName(name), c.Type, c.Missing, c.MissingPct, c.Unique))
		switch {
		case c.Numeric() && c.Min != nil:
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", *c.Min, *c.Max, *c.Mean, *c.Std))
		case len(c.TopValues) > 0:
			b.WriteString(" — top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", SafeVal(kv.Value), kv.Count))
			}
		}
		b.WriteString("\n")
	}
	if len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range p.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// SafeName renders a column name for markdown, naming blanks.
func SafeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// SafeVal flattens newlines and pipes so a value fits in a table cell.
func SafeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
