package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/dqguard-cli/internal/pipeline"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abLoad        loadFlags
	abFlags       anomalyFlags
	abConcurrency int
	abQuiet       bool
)

type batchItem struct {
	path   string
	report string
	res    *pipeline.Result
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently and write one report per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opt := abFlags.options(cmd)
		outDir := conf().OutDir
		if err := utils.EnsureDir(outDir); err != nil {
			return err
		}

		// Report names are fixed up front so concurrent workers never collide.
		items := make([]*batchItem, len(files))
		taken := map[string]bool{}
		for i, path := range files {
			base := filepath.Base(path)
			safe := strings.TrimSuffix(base, filepath.Ext(base))
			items[i] = &batchItem{path: path, report: uniqueOutPath(outDir, safe, ".report.md", taken)}
		}

		limit := abConcurrency
		if limit <= 0 {
			limit = 4
		}
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(limit)
		total := len(items)
		for i, it := range items {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if !abQuiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(it.path))
				}
				ds, err := abLoad.load(it.path)
				if err != nil {
					return fmt.Errorf("%s: %w", it.path, err)
				}
				res, err := pipeline.Run(ds, nil, opt)
				if err != nil {
					return fmt.Errorf("%s: %w", it.path, err)
				}
				if err := utils.SafeWriteFile(it.report, []byte(res.Report)); err != nil {
					return fmt.Errorf("%s: %w", it.path, err)
				}
				it.res = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "file\trows\tcols\thealth\tflagged\treport")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%d\t%s\n", it.path, it.res.Profile.Rows, it.res.Profile.Cols, it.res.Health.Score, len(it.res.Anomalies.Flagged), it.report)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		for _, it := range items {
			recordRun(cmd.Context(), it.res, it.path, "analyze-batch")
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist and drops
// duplicates. The result is sorted.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abLoad.register(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().IntVar(&abConcurrency, "concurrency", 4, "files processed in parallel")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
