package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/KaramelBytes/dqguard-cli/internal/history"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	histLimit int
	histFile  string
	histJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := conf()
		store, err := history.Open(cmd.Context(), history.Config{Driver: c.HistoryDriver, DSN: c.HistoryDSN})
		if err != nil {
			return err
		}
		defer store.Close()
		runs, err := store.List(cmd.Context(), history.Filter{File: histFile, Limit: histLimit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if histJSON {
			b, err := utils.PrettyJSON(runs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs recorded)")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "when\tcommand\tfile\trows\tcols\thealth\tmissing%\tdup%\tflagged")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.1f\t%.1f\t%.1f\t%d\n",
				r.CreatedAt.Local().Format(time.DateTime), r.Command, r.File, r.Rows, r.Cols,
				r.Health, r.MissingPct, r.DuplicatePct, r.Flagged)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "maximum runs to show")
	historyCmd.Flags().StringVar(&histFile, "file", "", "only runs for this file")
	historyCmd.Flags().BoolVar(&histJSON, "json", false, "print runs as JSON")
}
