package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/export"
)

var (
	exportOut    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's score matrix to XLSX or CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "export")
		}

		rows, err := export.BuildRows(ctx, st, run.ID)
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = "scores-" + truncateID(run.ID) + "." + exportFormat
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close() //nolint:errcheck

		switch strings.ToLower(exportFormat) {
		case "xlsx":
			err = export.WriteXLSX(f, run, rows)
		case "csv":
			err = export.WriteCSV(f, rows)
		default:
			return eris.Errorf("unsupported format: %s", exportFormat)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export written",
			zap.String("run_id", run.ID),
			zap.String("file", out),
			zap.Int("rows", len(rows)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default scores-<run>.<format>)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "xlsx", "output format (xlsx, csv)")
	rootCmd.AddCommand(exportCmd)
}
