package cmd

import (
	"fmt"

	"github.com/KaramelBytes/dqguard-cli/internal/export"
	"github.com/KaramelBytes/dqguard-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	anaLoad       loadFlags
	anaFlags      anomalyFlags
	anaRules      string
	anaProject    string
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Run the full pipeline: profile, rules, anomalies, health score and report",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, p, ok, err := ruleSource(anaRules, anaProject)
		if err != nil {
			return err
		}
		path, err := dataPath(args, p)
		if err != nil {
			return err
		}
		ds, err := anaLoad.load(path)
		if err != nil {
			return err
		}
		if !ok {
			rs = nil
		}
		res, err := pipeline.Run(ds, rs, anomalyOptionsFor(p, anaFlags.options(cmd), cmd))
		if err != nil {
			return err
		}

		// Decide where to write: --output path, or the configured export dir
		var out string
		if anaOutputPath != "" {
			if err := writeOutput(anaOutputPath, []byte(res.Report)); err != nil {
				return err
			}
			out = anaOutputPath
		} else {
			out, err = export.WriteReport(conf().OutDir, res.Report)
			if err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Health score: %.1f / 100\n", res.Health.Score)
		fmt.Fprintf(w, "  missing %.1f%% · duplicates %.1f%% · anomalies %.1f%%\n", res.Health.MissingPct, res.Health.DuplicatePct, res.Health.AnomalyPct)
		fmt.Fprintf(w, "  %d rules, %d rows flagged\n", len(res.Rules), len(res.Anomalies.Flagged))
		fmt.Fprintf(w, "✓ Wrote report to %s\n", out)

		recordRun(cmd.Context(), res, path, "analyze")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaLoad.register(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaRules, "rules", "", "rules JSON file (default: all suggestions)")
	analyzeCmd.Flags().StringVarP(&anaProject, "project", "p", "", "project supplying data file and accepted rules")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report (Markdown)")
}
