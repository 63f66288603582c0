package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/pipeline"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profLoad   loadFlags
	profJSON   bool
	profOutput string
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Profile a CSV/TSV/XLSX file: types, missing values, uniques and statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ds, err := profLoad.load(path)
		if err != nil {
			return err
		}
		prof := analysis.Profile(ds)

		var body []byte
		if profJSON {
			b, err := utils.PrettyJSON(struct {
				Info    dataset.Info             `json:"info"`
				Profile *analysis.DatasetProfile `json:"profile"`
			}{dataset.Describe(ds), prof})
			if err != nil {
				return err
			}
			body = b
		} else {
			body = []byte(infoLine(dataset.Describe(ds)) + "\n\n" + prof.Markdown())
		}

		if profOutput != "" {
			if err := writeOutput(profOutput, body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutput)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
		}

		// profile-only runs carry no anomaly pass
		recordRun(cmd.Context(), &pipeline.Result{Profile: prof, Health: analysis.ComputeHealth(prof, 0)}, path, "profile")
		return nil
	},
}

func infoLine(info dataset.Info) string {
	parts := make([]string, 0, len(info.Columns))
	for _, c := range info.Columns {
		parts = append(parts, fmt.Sprintf("%s:%s", c, info.Dtypes[c]))
	}
	return fmt.Sprintf("Loaded %d rows x %d cols [%s]", info.Rows, info.Cols, strings.Join(parts, ", "))
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profLoad.register(profileCmd)
	profileCmd.Flags().BoolVar(&profJSON, "json", false, "print the profile as JSON")
	profileCmd.Flags().StringVarP(&profOutput, "output", "o", "", "optional path to write the profile")
}
