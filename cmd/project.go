package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pmLoad    loadFlags
	pmProject string
	pmClear   bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage per-project settings",
}

var projectSetDataCmd = &cobra.Command{
	Use:   "set-data <file>",
	Short: "Point a project at a new data file and refresh its suggestions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		opt, err := pmLoad.options()
		if err != nil {
			return err
		}
		prof, err := p.SetData(args[0], opt)
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set data for %s: %d rows, %d suggestions (%d accepted kept)\n", pmProject, prof.Rows, len(p.Suggested), len(p.Accepted))
		return nil
	},
}

var projectSetContamCmd = &cobra.Command{
	Use:   "set-contamination <fraction>",
	Short: "Set or clear a project's anomaly contamination",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		if pmClear {
			p.Contamination = 0
		} else {
			if len(args) == 0 {
				return fmt.Errorf("fraction is required unless --clear is set")
			}
			var c float64
			if _, err := fmt.Sscanf(args[0], "%g", &c); err != nil || !(c > 0 && c < 1) {
				return fmt.Errorf("contamination must be between 0 and 1 (exclusive), got %s", args[0])
			}
			p.Contamination = c
		}
		if err := p.Save(); err != nil {
			return err
		}
		if pmClear {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared project contamination for %s\n", pmProject)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Set project contamination for %s: %g\n", pmProject, p.Contamination)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectSetDataCmd, projectSetContamCmd)
	pmLoad.register(projectSetDataCmd)
	projectCmd.PersistentFlags().StringVarP(&pmProject, "project", "p", "", "project name")
	projectSetContamCmd.Flags().BoolVar(&pmClear, "clear", false, "clear the project's contamination override")
}
