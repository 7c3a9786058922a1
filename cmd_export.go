package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/worklog/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a report of every record",
	Long: `Writes every record with its day, duration and the overall totals.

Formats: pdf, csv, json, xlsx. --out may be a file or a directory; the
default is worklog-YYYY-MM-DD.<format> in the current directory.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "pdf", "Report format: pdf, csv, json, xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file or directory")
}

func exportPath(out string, f export.Format, now time.Time) string {
	name := export.FileName(f, now)
	if out == "" {
		return name
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}

func runExport(cmd *cobra.Command, args []string) error {
	f, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	b, release, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer release()

	timers, err := b.ListTimers(ctx)
	if err != nil {
		return fmt.Errorf("list timers: %w", err)
	}

	now := time.Now()
	report := export.NewReport(timers, now)
	path := exportPath(exportOut, f, now)
	if err := export.Write(f, report, path); err != nil {
		return err
	}
	logger.Info("report exported", zap.String("format", string(f)), zap.String("path", path), zap.Int("records", len(report.Records)))
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(report.Records), path)
	return nil
}
