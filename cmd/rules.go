package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/dqguard-cli/internal/project"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/spf13/cobra"
)

var (
	rlProject string
	rlAll     bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Review, accept and reject a project's rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suggested and accepted rules with their numbers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := projectFlag()
		if err != nil {
			return err
		}
		printEntries(cmd.OutOrStdout(), "Suggested", p.Suggested)
		fmt.Fprintln(cmd.OutOrStdout())
		printEntries(cmd.OutOrStdout(), "Accepted", p.Accepted)
		return nil
	},
}

var rulesAcceptCmd = &cobra.Command{
	Use:   "accept [numbers...]",
	Short: "Accept suggested rules by number (see rules list)",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := projectFlag()
		if err != nil {
			return err
		}
		var n int
		if rlAll {
			n = p.AcceptAll()
		} else {
			idx, err := parseNumbers(args)
			if err != nil {
				return err
			}
			if n, err = p.Accept(idx); err != nil {
				return err
			}
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Accepted %d rules (%d total)\n", n, len(p.Accepted))
		return nil
	},
}

var rulesRejectCmd = &cobra.Command{
	Use:   "reject <numbers...>",
	Short: "Remove accepted rules by number (see rules list)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := projectFlag()
		if err != nil {
			return err
		}
		idx, err := parseNumbers(args)
		if err != nil {
			return err
		}
		n, err := p.Reject(idx)
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Rejected %d rules (%d remain)\n", n, len(p.Accepted))
		return nil
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <column> <rule> [min max | values...]",
	Short: "Accept a hand-written rule",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := projectFlag()
		if err != nil {
			return err
		}
		kind, err := rules.ParseKind(args[1])
		if err != nil {
			return err
		}
		r := rules.Rule{Column: args[0], Rule: kind}
		switch kind {
		case rules.Between:
			if len(args) != 4 {
				return fmt.Errorf("between needs <min> <max>")
			}
			lo, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid min: %w", err)
			}
			hi, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("invalid max: %w", err)
			}
			r.Min, r.Max = &lo, &hi
		case rules.AllowedValues:
			r.Values = args[2:]
		}
		res, err := p.AcceptRule(r)
		if err != nil {
			return err
		}
		if res == project.RuleUnchanged {
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %s already accepted\n", r)
			return nil
		}
		if err := p.Save(); err != nil {
			return err
		}
		if res == project.RuleReplaced {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Replaced accepted %s rule on %s with %s\n", r.Rule, r.Column, r)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Accepted %s\n", r)
		}
		return nil
	},
}

func projectFlag() (*project.Project, error) {
	if rlProject == "" {
		return nil, fmt.Errorf("--project is required")
	}
	return loadProjectByName(rlProject)
}

// parseNumbers converts 1-based numbers from the command line to indexes.
func parseNumbers(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("give rule numbers or --all")
	}
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid rule number %q", a)
		}
		out = append(out, n-1)
	}
	return out, nil
}

func printEntries(w io.Writer, title string, entries []*project.RuleEntry) {
	fmt.Fprintf(w, "%s (%d):\n", title, len(entries))
	if len(entries) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, e.Rule)
	}
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesAcceptCmd, rulesRejectCmd, rulesAddCmd)
	rulesCmd.PersistentFlags().StringVarP(&rlProject, "project", "p", "", "project name")
	rulesAcceptCmd.Flags().BoolVar(&rlAll, "all", false, "accept every suggestion")
}
