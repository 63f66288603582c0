package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const customersCSV = `customer_id,age,city
1,34,Paris
2,,Lyon
2,29,Paris
3,41,
4,38,Lyon
`

// resetFlags restores every flag to its default so state does not leak
// between Execute calls in one test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	cfg = nil
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// isolate points HOME at a temp dir and returns it with a written CSV.
func isolate(t *testing.T) (home, csvPath string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	csvPath = filepath.Join(home, "customers.csv")
	if err := os.WriteFile(csvPath, []byte(customersCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return home, csvPath
}

func TestCLI_Init_Rules_Analyze_Export(t *testing.T) {
	home, csvPath := isolate(t)
	outDir := filepath.Join(home, "out")

	out := runCmd(t, "init", "crm", "-d", "customer data", "--data", csvPath)
	if !strings.Contains(out, "7 rules suggested") {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := execCmd("init", "crm"); err == nil {
		t.Fatalf("expected init to refuse an existing project")
	}

	out = runCmd(t, "rules", "list", "-p", "crm")
	if !strings.Contains(out, "3. dedupe_key(customer_id)") || !strings.Contains(out, "Accepted (0)") {
		t.Fatalf("unexpected rules list: %q", out)
	}
	out = runCmd(t, "rules", "accept", "-p", "crm", "3", "5", "7")
	if !strings.Contains(out, "Accepted 3 rules (3 total)") {
		t.Fatalf("unexpected accept output: %q", out)
	}
	// accepting again is a no-op
	out = runCmd(t, "rules", "accept", "-p", "crm", "3")
	if !strings.Contains(out, "Accepted 0 rules (3 total)") {
		t.Fatalf("unexpected second accept output: %q", out)
	}
	if _, err := execCmd("rules", "accept", "-p", "crm", "0"); err == nil {
		t.Fatalf("expected error for rule number 0")
	}

	out = runCmd(t, "list", "--rules", "-p", "crm")
	for _, want := range []string{"dedupe_key(customer_id)", "fillna_mean(age)", "fillna_mode(city)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q: %q", want, out)
		}
	}

	out = runCmd(t, "analyze", "-p", "crm", "--out-dir", outDir)
	if !strings.Contains(out, "Health score:") {
		t.Fatalf("unexpected analyze output: %q", out)
	}
	report, err := os.ReadFile(filepath.Join(outDir, "report.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(report), "# Data Quality Report") || !strings.Contains(string(report), "fillna_mean(age)") {
		t.Fatalf("unexpected report:\n%s", report)
	}

	out = runCmd(t, "export", "sql", "-p", "crm", "--stdout", "--table", "customers")
	for _, want := range []string{"-- Cleaning script for customers", `PARTITION BY "customer_id"`, `AVG("age")`, "freq_"} {
		if !strings.Contains(out, want) {
			t.Fatalf("sql missing %q:\n%s", want, out)
		}
	}

	runCmd(t, "export", "suite", "-p", "crm", "--out-dir", outDir)
	suite, err := os.ReadFile(filepath.Join(outDir, "ge_suite.json"))
	if err != nil {
		t.Fatalf("read suite: %v", err)
	}
	if !strings.Contains(string(suite), `"expectation_suite_name": "dqguard_suite"`) {
		t.Fatalf("unexpected suite:\n%s", suite)
	}

	out = runCmd(t, "rules", "reject", "-p", "crm", "1")
	if !strings.Contains(out, "Rejected 1 rules (2 remain)") {
		t.Fatalf("unexpected reject output: %q", out)
	}

	out = runCmd(t, "history")
	if !strings.Contains(out, "analyze") || !strings.Contains(out, csvPath) {
		t.Fatalf("history missing analyze run: %q", out)
	}
}

func TestCLI_ProfileSuggestPreview(t *testing.T) {
	home, csvPath := isolate(t)

	out := runCmd(t, "profile", csvPath)
	if !strings.Contains(out, "customer_id") || !strings.Contains(out, "age") {
		t.Fatalf("unexpected profile output: %q", out)
	}

	rulesPath := filepath.Join(home, "rules.json")
	runCmd(t, "suggest", csvPath, "-o", rulesPath)
	if _, err := os.Stat(rulesPath); err != nil {
		t.Fatalf("suggest did not write rules: %v", err)
	}

	cleaned := filepath.Join(home, "clean.csv")
	out = runCmd(t, "preview", csvPath, "--rules", rulesPath, "--write", cleaned)
	if !strings.Contains(out, "Rows: 5 -> 4") {
		t.Fatalf("unexpected preview output: %q", out)
	}
	b, err := os.ReadFile(cleaned)
	if err != nil {
		t.Fatalf("read cleaned: %v", err)
	}
	if strings.Count(strings.TrimSpace(string(b)), "\n") != 4 {
		t.Fatalf("expected header plus 4 rows, got:\n%s", b)
	}

	// the cleaned file lands in a directory that does not exist yet
	nested := filepath.Join(home, "clean", "out.csv")
	runCmd(t, "preview", csvPath, "--rules", rulesPath, "--write", nested)
	if _, err := os.Stat(nested); err != nil {
		t.Fatalf("nested write: %v", err)
	}
	// a directory in the way fails without leaving a partial file behind
	blocked := filepath.Join(home, "blocked.csv")
	if err := os.Mkdir(blocked, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := execCmd("preview", csvPath, "--rules", rulesPath, "--write", blocked); err == nil {
		t.Fatalf("expected write over a directory to fail")
	}
	entries, err := os.ReadDir(home)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}

	if _, err := execCmd("preview", csvPath); err == nil {
		t.Fatalf("expected preview without rules to fail")
	}
}

func TestCLI_AnomaliesRejectsContamination(t *testing.T) {
	_, csvPath := isolate(t)
	if _, err := execCmd("anomalies", csvPath, "--contamination", "1.5"); err == nil {
		t.Fatalf("expected invalid contamination to fail")
	}
	out := runCmd(t, "anomalies", csvPath, "--contamination", "0.2")
	if !strings.Contains(out, "Flagged 1 of 5 rows") {
		t.Fatalf("unexpected anomalies output: %q", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home, _ := isolate(t)
	runCmd(t, "config", "set", "sql_dialect", "mysql")
	if _, err := os.Stat(filepath.Join(home, ".dqguard", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "sql_dialect: mysql") {
		t.Fatalf("unexpected config show: %q", out)
	}
	if _, err := execCmd("config", "set", "sql_dialect", "oracle"); err == nil {
		t.Fatalf("expected unknown dialect to fail")
	}
	if _, err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
}

func TestCLI_ListProjects(t *testing.T) {
	isolate(t)
	out := runCmd(t, "list", "--projects")
	if !strings.Contains(out, "(no projects)") {
		t.Fatalf("unexpected empty list: %q", out)
	}
	runCmd(t, "init", "alpha")
	runCmd(t, "init", "beta")
	out = runCmd(t, "list", "--projects")
	if !strings.Contains(out, "- alpha\n- beta\n") {
		t.Fatalf("unexpected list: %q", out)
	}
	if _, err := execCmd("list"); err == nil {
		t.Fatalf("expected list without a mode to fail")
	}
}

func TestCLI_ExportSQLSkipsRulesOnMissingColumns(t *testing.T) {
	home, csvPath := isolate(t)
	rulesPath := filepath.Join(home, "rules.json")
	body := `[{"column":"ghost","rule":"fillna_mean"},{"column":"customer_id","rule":"dedupe_key"}]`
	if err := os.WriteFile(rulesPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	out := runCmd(t, "export", "sql", csvPath, "--rules", rulesPath, "--stdout")
	if !strings.Contains(out, "-- Column 'ghost' not in dataframe; skipping fillna_mean.") {
		t.Fatalf("missing skip note:\n%s", out)
	}
	if strings.Contains(out, `AVG("ghost")`) || !strings.Contains(out, `PARTITION BY "customer_id"`) {
		t.Fatalf("unexpected script:\n%s", out)
	}

	// without a data file the rules are emitted as given
	out = runCmd(t, "export", "sql", "--rules", rulesPath, "--stdout")
	if !strings.Contains(out, `AVG("ghost")`) {
		t.Fatalf("expected ghost column stage without a data file:\n%s", out)
	}
}

func TestCLI_RulesAddReplacesParameters(t *testing.T) {
	_, csvPath := isolate(t)
	runCmd(t, "init", "crm", "--data", csvPath)
	// suggestion 4 is between(age, 29..41)
	runCmd(t, "rules", "accept", "-p", "crm", "4")

	out := runCmd(t, "rules", "add", "-p", "crm", "age", "between", "0", "120")
	if !strings.Contains(out, "Replaced accepted between rule on age with between(age, 0..120)") {
		t.Fatalf("unexpected add output: %q", out)
	}
	out = runCmd(t, "rules", "add", "-p", "crm", "age", "between", "0", "120")
	if !strings.Contains(out, "already accepted") {
		t.Fatalf("unexpected repeat add output: %q", out)
	}
	out = runCmd(t, "list", "--rules", "-p", "crm")
	if strings.Count(out, "between(age") != 1 || !strings.Contains(out, "between(age, 0..120)") {
		t.Fatalf("unexpected accepted rules: %q", out)
	}
}
