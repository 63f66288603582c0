package export

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/dqguard-cli/internal/rules"
)

// Dialect selects identifier quoting for generated SQL.
type Dialect string

const (
	ANSI  Dialect = "ansi"
	MySQL Dialect = "mysql"
	MSSQL Dialect = "mssql"
)

// Dialects lists the supported SQL dialects.
var Dialects = []Dialect{ANSI, MySQL, MSSQL}

// UnknownDialectError reports an unsupported dialect name.
type UnknownDialectError struct{ Name string }

func (e *UnknownDialectError) Error() string {
	return fmt.Sprintf("unknown sql dialect %q (use ansi, mysql or mssql)", e.Name)
}

// ParseDialect maps a name to a Dialect. Empty means ansi.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	if d == "" {
		return ANSI, nil
	}
	for _, x := range Dialects {
		if x == d {
			return d, nil
		}
	}
	return "", &UnknownDialectError{Name: s}
}

// Quote renders a column identifier for the dialect.
func (d Dialect) Quote(name string) string {
	switch d {
	case MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case MSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// SQLScript builds a staged CTE cleaning script from rules. Only fill and
// dedupe rules produce stages; range and set rules are left to the analyst
// so rows are never dropped silently. The table name is inserted as given.
//
// When columns is non-nil, rules naming a column outside it are skipped and
// a comment note is written under the header. A nil columns emits every rule.
func SQLScript(table string, rs []rules.Rule, d Dialect, columns []string) string {
	var present map[string]bool
	if columns != nil {
		present = make(map[string]bool, len(columns))
		for _, c := range columns {
			present[c] = true
		}
	}
	lines := []string{"-- Cleaning script for " + table}
	kept := rs[:0:0]
	for _, r := range rs {
		if present != nil && !present[r.Column] {
			lines = append(lines, fmt.Sprintf("-- Column '%s' not in dataframe; skipping %s.", r.Column, r.Rule))
			continue
		}
		kept = append(kept, r)
	}
	lines = append(lines, "WITH src AS (SELECT * FROM "+table+")")
	step := 1
	prev := func() string {
		if step == 1 {
			return "src"
		}
		return fmt.Sprintf("step_%d", step-1)
	}
	for _, r := range kept {
		c := d.Quote(r.Column)
		switch r.Rule {
		case rules.FillNAMean:
			lines = append(lines, fmt.Sprintf(", step_%d AS (SELECT *, COALESCE(%s, AVG(%s) OVER ()) AS %s FROM %s)", step, c, c, c, prev()))
		case rules.FillNAMode:
			lines = append(lines,
				fmt.Sprintf(", freq_%d AS (SELECT *, COUNT(%s) OVER (PARTITION BY %s) AS cnt FROM %s)", step, c, c, prev()),
				fmt.Sprintf(", step_%d AS (SELECT * REPLACE (COALESCE(%s, FIRST_VALUE(%s) OVER (ORDER BY cnt DESC)) AS %s) FROM freq_%d)", step, c, c, c, step),
			)
		case rules.DedupeKey:
			lines = append(lines, fmt.Sprintf(", step_%d AS (SELECT * FROM %s QUALIFY ROW_NUMBER() OVER (PARTITION BY %s ORDER BY %s) = 1)", step, prev(), c, c))
		default:
			continue
		}
		step++
	}
	lines = append(lines, "SELECT * FROM "+prev()+";")
	return strings.Join(lines, "\n")
}

// WriteSQL writes the script to cleaning.sql under dir.
func WriteSQL(dir, script string) (string, error) {
	path, err := writeFile(dir, SQLFile, []byte(script))
	if err != nil {
		return "", fmt.Errorf("write sql: %w", err)
	}
	return path, nil
}
