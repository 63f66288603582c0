package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/export"
	"github.com/KaramelBytes/dqguard-cli/internal/history"
	"github.com/KaramelBytes/dqguard-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr      string
	serveMaxUpload int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the profiling, rule and export operations over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := conf()
		addr := c.ServeAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		dialect, err := export.ParseDialect(c.SQLDialect)
		if err != nil {
			return err
		}
		load := dataset.DefaultOptions()
		load.MaxRows = c.MaxRows
		an := anomaly.DefaultOptions()
		an.Contamination, an.Trees, an.Seed = c.Contamination, c.Trees, c.Seed

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opt := server.Options{
			Anomaly:     an,
			Load:        load,
			SuiteName:   c.SuiteName,
			TableName:   c.TableName,
			Dialect:     dialect,
			PreviewRows: c.PreviewRows,
			MaxUpload:   serveMaxUpload,
			Logger:      logger,
		}
		if c.HistoryEnabled {
			store, err := history.Open(ctx, history.Config{Driver: c.HistoryDriver, DSN: c.HistoryDSN})
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: history unavailable: %v\n", err)
			} else {
				defer store.Close()
				opt.History = store
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
		if err := server.New(opt).ListenAndServe(ctx, addr); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config serve_addr)")
	serveCmd.Flags().Int64Var(&serveMaxUpload, "max-upload", server.DefaultMaxUpload, "maximum upload size in bytes")
}
