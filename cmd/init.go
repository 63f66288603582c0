package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/dqguard-cli/internal/project"
	"github.com/KaramelBytes/dqguard-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	initLoad        loadFlags
	initDescription string
	initData        string
	initContam      float64
)

var initCmd = &cobra.Command{
	Use:   "init <project-name>",
	Short: "Initialize a dqguard project for a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if filepath.Base(name) != name || name == "." || name == ".." {
			return fmt.Errorf("invalid project name %q", name)
		}
		root := defaultProjectsDir()
		if err := utils.EnsureDir(root); err != nil {
			return err
		}
		projDir := filepath.Join(root, name)
		// Refuse to overwrite an existing project.
		if info, err := os.Stat(projDir); err == nil && info.IsDir() {
			projectFile := filepath.Join(projDir, "project.json")
			if _, err := os.Stat(projectFile); err == nil {
				return fmt.Errorf("project already exists at %s", projDir)
			}
			entries, err := os.ReadDir(projDir)
			if err != nil {
				return fmt.Errorf("inspect project directory: %w", err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize project", projDir)
			}
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat project directory: %w", err)
		}

		p := project.NewProject(name, initDescription, projDir)
		if cmd.Flags().Changed("contamination") {
			if !(initContam > 0 && initContam < 1) {
				return fmt.Errorf("contamination must be between 0 and 1 (exclusive)")
			}
			p.Contamination = initContam
		}
		if initData != "" {
			opt, err := initLoad.options()
			if err != nil {
				return err
			}
			prof, err := p.SetData(initData, opt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profiled %s: %d rows, %d cols, %d rules suggested\n", filepath.Base(initData), prof.Rows, prof.Cols, len(p.Suggested))
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Project initialized: %s\n", projDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initLoad.register(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "project description")
	initCmd.Flags().StringVar(&initData, "data", "", "dataset file to attach and profile")
	initCmd.Flags().Float64Var(&initContam, "contamination", 0, "project-specific anomaly contamination")
}
