package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/pipeline"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anoLoad    loadFlags
	anoFlags   anomalyFlags
	anoJSON    bool
	anoSamples int
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies <file>",
	Short: "Flag anomalous rows with an isolation forest over numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ds, err := anoLoad.load(path)
		if err != nil {
			return err
		}
		res, err := pipeline.Run(ds, nil, anoFlags.options(cmd))
		if err != nil {
			return err
		}
		logger.Debug("anomaly detection done", "file", path, "flagged", len(res.Anomalies.Flagged), "elapsed", res.Elapsed)
		out := cmd.OutOrStdout()

		if anoJSON {
			b, err := utils.PrettyJSON(struct {
				anomaly.Result
				Health analysis.Health `json:"health"`
			}{res.Anomalies, res.Health})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		} else {
			printAnomalies(out, res.Anomalies, anoSamples)
			fmt.Fprintf(out, "\nHealth score: %.1f\n", res.Health.Score)
		}
		recordRun(cmd.Context(), res, path, "anomalies")
		return nil
	},
}

func printAnomalies(w io.Writer, an anomaly.Result, samples int) {
	if len(an.Flagged) == 0 {
		fmt.Fprintln(w, "No anomalies flagged")
		return
	}
	fmt.Fprintf(w, "Flagged %d of %d rows (features: %s)\n\n", len(an.Flagged), len(an.Scores), strings.Join(an.Features, ", "))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "row\tscore\ttop_deviation_col\t"+strings.Join(an.Columns, "\t"))
	for _, f := range an.Flagged {
		cells := make([]string, len(f.Values))
		for i, v := range f.Values {
			cells[i] = dataset.Format(v)
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", f.Row, f.Score, f.TopDeviationCol, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()

	if samples <= 0 {
		return
	}
	top := append([]anomaly.RowScore(nil), an.Scores...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > samples {
		top = top[:samples]
	}
	fmt.Fprintln(w, "\nHighest scores:")
	for _, s := range top {
		mark := " "
		if s.Flagged {
			mark = "*"
		}
		fmt.Fprintf(w, "%s row %d  %.4f  %s\n", mark, s.Row, s.Score, s.TopDeviationCol)
	}
}

func init() {
	rootCmd.AddCommand(anomaliesCmd)
	anoLoad.register(anomaliesCmd)
	anoFlags.register(anomaliesCmd)
	anomaliesCmd.Flags().BoolVar(&anoJSON, "json", false, "print scores and flagged rows as JSON")
	anomaliesCmd.Flags().IntVar(&anoSamples, "scores", 10, "number of highest per-row scores to list (0 disables)")
}
