package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_SameBasenameGetsSuffix(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	// Two CSV files with the same basename in different directories
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	csv := "col1,col2\nA,1\nB,2\nC,3\nD,40\n"
	for _, d := range []string{d1, d2} {
		if err := os.WriteFile(filepath.Join(d, "metrics.csv"), []byte(csv), 0o644); err != nil {
			t.Fatalf("write csv: %v", err)
		}
	}

	outDir := filepath.Join(home, "reports")
	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir, "--quiet")

	b1 := filepath.Join(outDir, "metrics.report.md")
	b2 := filepath.Join(outDir, "metrics__2.report.md")
	for _, p := range []string{b1, b2} {
		body, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("missing report %s: %v", p, err)
		}
		if !strings.Contains(string(body), "# Data Quality Report") {
			t.Fatalf("unexpected report body in %s", p)
		}
		if !strings.Contains(out, p) {
			t.Fatalf("summary table does not list %s:\n%s", p, out)
		}
	}
}

func TestExpandInputsNoMatch(t *testing.T) {
	if _, err := expandInputs([]string{filepath.Join(t.TempDir(), "*.csv")}); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
}
