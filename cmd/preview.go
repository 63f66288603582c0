package cmd

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/spf13/cobra"
)

var (
	prevLoad    loadFlags
	prevRules   string
	prevProject string
	prevRows    int
	prevWrite   string
)

var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Apply rules to a copy of the dataset and show what changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, p, ok, err := ruleSource(prevRules, prevProject)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("one of --rules or --project is required")
		}
		path, err := dataPath(args, p)
		if err != nil {
			return err
		}
		ds, err := prevLoad.load(path)
		if err != nil {
			return err
		}
		res := rules.Preview(ds, rs)
		out := cmd.OutOrStdout()
		if len(res.Notes) == 0 {
			fmt.Fprintln(out, "(no changes)")
		}
		for _, n := range res.Notes {
			fmt.Fprintf(out, "• %s\n", n)
		}
		fmt.Fprintf(out, "\nRows: %d -> %d\n\n", ds.Rows(), res.Data.Rows())

		n := prevRows
		if !cmd.Flags().Changed("rows") {
			n = conf().PreviewRows
		}
		printRows(out, res.Data, n)

		if prevWrite != "" {
			var buf bytes.Buffer
			if err := dataset.WriteCSV(&buf, res.Data); err != nil {
				return err
			}
			if err := writeOutput(prevWrite, buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote cleaned data to %s\n", prevWrite)
		}
		return nil
	},
}

// printRows renders the first n rows as an aligned table.
func printRows(w io.Writer, ds *dataset.Dataset, n int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(ds.Header(), "\t"))
	for i := 0; i < n && i < ds.Rows(); i++ {
		row := ds.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = strings.ReplaceAll(dataset.Format(v), "\t", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(previewCmd)
	prevLoad.register(previewCmd)
	previewCmd.Flags().StringVar(&prevRules, "rules", "", "rules JSON file")
	previewCmd.Flags().StringVarP(&prevProject, "project", "p", "", "project whose accepted rules to apply")
	previewCmd.Flags().IntVar(&prevRows, "rows", 20, "rows to display (default from config preview_rows)")
	previewCmd.Flags().StringVar(&prevWrite, "write", "", "write the cleaned dataset as CSV to this path")
}
