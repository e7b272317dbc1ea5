package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one day's attendance records as CSV",
	Long: `Export writes the attendance records of a single day as CSV with
columns person_name, first_seen, last_seen and duration. The date defaults
to today; the output defaults to stdout.`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("date", "", "Day to export (YYYY-MM-DD, defaults to today)")
	exportCmd.Flags().String("output", "", "Output file (defaults to stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	st, err := openStores(cfg, false)
	if err != nil {
		return err
	}
	defer st.close()

	date := mustGetString(cmd, "date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	out := os.Stdout
	if path := mustGetString(cmd, "output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	ledger := attendance.NewLedger(st.attendance)
	if err := ledger.ExportCSV(context.Background(), date, out); err != nil {
		return fmt.Errorf("exporting %s: %w", date, err)
	}
	return nil
}
