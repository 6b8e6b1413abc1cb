package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phoenix-mes/phoenix/internal/export"
	"github.com/phoenix-mes/phoenix/internal/store"
)

var (
	exportDataPath string
	exportOutput   string
)

var exportCommand = &cobra.Command{
	Use:   "export",
	Short: "Export the production ledger to CSV without starting the server",
	RunE:  runExport,
}

func init() {
	exportCommand.Flags().StringVar(&exportDataPath, "data", "data", "Persistence path to read the ledger from")
	exportCommand.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: timestamped name in the current directory)")
	rootCmd.AddCommand(exportCommand)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	st, err := store.Open(exportDataPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	out := exportOutput
	if out == "" {
		out = export.Filename(time.Now())
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	records := st.LoadHistory()
	if err := export.WriteCSV(f, records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", len(records), out)
	return nil
}
