package cmd

import (
	"fmt"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	sugLoad   loadFlags
	sugOutput string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <file>",
	Short: "Suggest validation and cleaning rules from a dataset profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := sugLoad.load(args[0])
		if err != nil {
			return err
		}
		rs := rules.Suggest(analysis.Profile(ds))
		if sugOutput != "" {
			if err := rules.Save(sugOutput, rs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rules to %s\n", len(rs), sugOutput)
			return nil
		}
		if rs == nil {
			rs = []rules.Rule{}
		}
		b, err := utils.PrettyJSON(rs)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	sugLoad.register(suggestCmd)
	suggestCmd.Flags().StringVarP(&sugOutput, "output", "o", "", "write rules JSON to this path instead of stdout")
}
