package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/history"
	"github.com/KaramelBytes/dqguard-cli/internal/pipeline"
	"github.com/KaramelBytes/dqguard-cli/internal/project"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
	"github.com/spf13/cobra"
)

// loadFlags are the dataset reading flags shared by commands that take a file.
type loadFlags struct {
	delimiter  string
	decimal    string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (lf *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	cmd.Flags().StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	cmd.Flags().StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().IntVar(&lf.maxRows, "max-rows", 0, "maximum rows to read (0 = config max_rows)")
}

func (lf *loadFlags) options() (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	opt.MaxRows = conf().MaxRows
	if lf.maxRows > 0 {
		opt.MaxRows = lf.maxRows
	}
	switch lf.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", lf.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", lf.decimal)
	}
	opt.SheetName = lf.sheetName
	if lf.sheetIndex > 0 {
		opt.SheetIndex = lf.sheetIndex
	}
	return opt, nil
}

func (lf *loadFlags) load(path string) (*dataset.Dataset, error) {
	opt, err := lf.options()
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(path, opt)
	if err != nil {
		return nil, err
	}
	for _, w := range ds.Warnings {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %s\n", w)
	}
	logger.Debug("dataset loaded", "file", path, "rows", ds.Rows(), "cols", len(ds.Columns))
	return ds, nil
}

// anomalyFlags override the configured detector settings.
type anomalyFlags struct {
	contamination float64
	trees         int
	seed          uint64
}

func (af *anomalyFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&af.contamination, "contamination", 0, "expected anomaly fraction in (0,1) (default from config)")
	cmd.Flags().IntVar(&af.trees, "trees", 0, "isolation forest trees (default from config)")
	cmd.Flags().Uint64Var(&af.seed, "seed", 0, "random seed (default from config)")
}

func (af *anomalyFlags) options(cmd *cobra.Command) anomaly.Options {
	c := conf()
	opt := anomaly.DefaultOptions()
	opt.Contamination, opt.Trees, opt.Seed = c.Contamination, c.Trees, c.Seed
	if cmd.Flags().Changed("contamination") {
		opt.Contamination = af.contamination
	}
	if cmd.Flags().Changed("trees") {
		opt.Trees = af.trees
	}
	if cmd.Flags().Changed("seed") {
		opt.Seed = af.seed
	}
	return opt
}

func resolveProjectDirByName(name string) (string, error) {
	return project.Resolve(defaultProjectsDir(), name)
}

func defaultProjectsDir() string {
	return filepath.Clean(conf().ProjectsDir)
}

func loadProjectByName(name string) (*project.Project, error) {
	dir, err := resolveProjectDirByName(name)
	if err != nil {
		return nil, err
	}
	return project.LoadProject(dir)
}

// ruleSource resolves rules from --rules or a project. ok is false when
// neither was given.
func ruleSource(rulesPath, projName string) (rs []rules.Rule, p *project.Project, ok bool, err error) {
	if rulesPath != "" && projName != "" {
		return nil, nil, false, fmt.Errorf("use only one of --rules or --project")
	}
	if rulesPath != "" {
		rs, err := rules.Load(rulesPath)
		if err != nil {
			return nil, nil, false, err
		}
		return rs, nil, true, nil
	}
	if projName != "" {
		p, err := loadProjectByName(projName)
		if err != nil {
			return nil, nil, false, err
		}
		return p.AcceptedRules(), p, true, nil
	}
	return nil, nil, false, nil
}

// dataPath picks the positional file argument or the project's data file.
func dataPath(args []string, p *project.Project) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if p != nil && p.DataPath != "" {
		return p.DataPath, nil
	}
	return "", fmt.Errorf("a data file is required (pass <file> or a project with data)")
}

func anomalyOptionsFor(p *project.Project, opt anomaly.Options, cmd *cobra.Command) anomaly.Options {
	if p != nil && p.Contamination > 0 && !cmd.Flags().Changed("contamination") {
		opt.Contamination = p.Contamination
	}
	return opt
}

// recordRun stores a run in history. Failures only warn.
func recordRun(ctx context.Context, res *pipeline.Result, file, command string) {
	c := conf()
	if !c.HistoryEnabled {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := history.Open(ctx, history.Config{Driver: c.HistoryDriver, DSN: c.HistoryDSN})
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: history unavailable: %v\n", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, res.HistoryRun(file, command)); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		return
	}
	logger.Debug("run recorded", "file", file, "command", command)
}

// uniqueOutPath returns dir/base+suffix, adding __N before the suffix when
// the name is taken on disk or in taken.
func uniqueOutPath(dir, base, suffix string, taken map[string]bool) string {
	out := filepath.Join(dir, base+suffix)
	for idx := 2; ; idx++ {
		_, err := os.Stat(out)
		if os.IsNotExist(err) && !taken[out] {
			break
		}
		out = filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, suffix))
	}
	taken[out] = true
	return out
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
