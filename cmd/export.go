package cmd

import (
	"fmt"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/export"
	"github.com/KaramelBytes/dqguard-cli/internal/pipeline"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
	"github.com/spf13/cobra"
)

var (
	expLoad    loadFlags
	expFlags   anomalyFlags
	expRules   string
	expProject string
	expTable   string
	expDialect string
	expSuite   string
	expStdout  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a validation suite, SQL cleaning script or markdown report",
}

var exportSuiteCmd = &cobra.Command{
	Use:   "suite [file]",
	Short: "Write ge_suite.json with one expectation per rule",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, p, ok, err := ruleSource(expRules, expProject)
		if err != nil {
			return err
		}
		path, err := dataPath(args, p)
		if err != nil {
			return err
		}
		ds, err := expLoad.load(path)
		if err != nil {
			return err
		}
		prof := analysis.Profile(ds)
		if !ok {
			rs = rules.Suggest(prof)
		}
		name := expSuite
		if name == "" {
			name = conf().SuiteName
		}
		out, err := export.WriteSuite(conf().OutDir, export.BuildSuite(prof, rs, name))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote suite with %d expectations to %s\n", len(rs), out)
		return nil
	},
}

var exportSQLCmd = &cobra.Command{
	Use:   "sql [file]",
	Short: "Write cleaning.sql built from fill and dedupe rules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, _, ok, err := ruleSource(expRules, expProject)
		if err != nil {
			return err
		}
		if !ok && len(args) == 0 {
			return fmt.Errorf("pass <file>, --rules or --project")
		}
		// With a data file, rules on columns it lacks are skipped with a note.
		var columns []string
		if len(args) > 0 {
			ds, err := expLoad.load(args[0])
			if err != nil {
				return err
			}
			columns = ds.Header()
			if !ok {
				rs = rules.Suggest(analysis.Profile(ds))
			}
		}
		table := expTable
		if table == "" {
			table = conf().TableName
		}
		dname := expDialect
		if dname == "" {
			dname = conf().SQLDialect
		}
		dialect, err := export.ParseDialect(dname)
		if err != nil {
			return err
		}
		script := export.SQLScript(table, rs, dialect, columns)
		if expStdout {
			fmt.Fprintln(cmd.OutOrStdout(), script)
			return nil
		}
		out, err := export.WriteSQL(conf().OutDir, script)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote SQL cleaning script to %s\n", out)
		return nil
	},
}

var exportReportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Write report.md with profile, health, rules and anomalies",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, p, ok, err := ruleSource(expRules, expProject)
		if err != nil {
			return err
		}
		path, err := dataPath(args, p)
		if err != nil {
			return err
		}
		ds, err := expLoad.load(path)
		if err != nil {
			return err
		}
		if !ok {
			rs = nil
		} else if rs == nil {
			rs = []rules.Rule{}
		}
		res, err := pipeline.Run(ds, rs, anomalyOptionsFor(p, expFlags.options(cmd), cmd))
		if err != nil {
			return err
		}
		if expStdout {
			fmt.Fprintln(cmd.OutOrStdout(), res.Report)
		} else {
			out, err := export.WriteReport(conf().OutDir, res.Report)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", out)
		}
		recordRun(cmd.Context(), res, path, "export report")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportSuiteCmd, exportSQLCmd, exportReportCmd)

	expLoad.register(exportSuiteCmd)
	expLoad.register(exportSQLCmd)
	expLoad.register(exportReportCmd)
	expFlags.register(exportReportCmd)
	for _, c := range []*cobra.Command{exportSuiteCmd, exportSQLCmd, exportReportCmd} {
		c.Flags().StringVar(&expRules, "rules", "", "rules JSON file (default: all suggestions)")
		c.Flags().StringVarP(&expProject, "project", "p", "", "project whose accepted rules to export")
	}
	exportSuiteCmd.Flags().StringVar(&expSuite, "name", "", "suite name (default from config suite_name)")
	exportSQLCmd.Flags().StringVar(&expTable, "table", "", "table name (default from config table_name)")
	exportSQLCmd.Flags().StringVar(&expDialect, "dialect", "", "identifier quoting: ansi|mysql|mssql (default from config)")
	exportSQLCmd.Flags().BoolVar(&expStdout, "stdout", false, "print the script instead of writing cleaning.sql")
	exportReportCmd.Flags().BoolVar(&expStdout, "stdout", false, "print the report instead of writing report.md")
}
