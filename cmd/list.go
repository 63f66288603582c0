package cmd

import (
	"fmt"

	"github.com/KaramelBytes/dqguard-cli/internal/project"
	"github.com/spf13/cobra"
)

var (
	listProjects bool
	listRules    bool
	listProjName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects or a project's accepted rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listProjects == listRules { // either both true or both false
			return fmt.Errorf("specify exactly one of --projects or --rules")
		}
		out := cmd.OutOrStdout()
		if listProjects {
			names, err := project.List(defaultProjectsDir())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(out, "(no projects)")
				return nil
			}
			for _, n := range names {
				fmt.Fprintf(out, "- %s\n", n)
			}
			return nil
		}
		if listProjName == "" {
			return fmt.Errorf("--project is required when using --rules")
		}
		p, err := loadProjectByName(listProjName)
		if err != nil {
			return err
		}
		if len(p.Accepted) == 0 {
			fmt.Fprintln(out, "(no accepted rules)")
			return nil
		}
		for _, e := range p.Accepted {
			fmt.Fprintf(out, "- %s: %s\n", e.ID, e.Rule)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listProjects, "projects", false, "list projects")
	listCmd.Flags().BoolVar(&listRules, "rules", false, "list accepted rules in a project")
	listCmd.Flags().StringVarP(&listProjName, "project", "p", "", "project name for --rules")
}
