package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vesselvision-cli/internal/parser"
)

var (
	loadSessionName string
	loadSheet       string
)

var loadCmd = &cobra.Command{
	Use:   "load <file> [file...]",
	Short: "Attach noon report files (CSV/TSV/XLSX) to a session",
	Example: `  vesselvision load -s aurora march.xlsx april.xlsx
  vesselvision load -s aurora fleet.xlsx --sheet "Noon Reports"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resetUnchanged(cmd)
		s, err := loadSession(loadSessionName)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		failed := 0
		for _, f := range args {
			if !parser.Supported(f) {
				fmt.Fprintf(out, "✗ %s: %v (use .csv, .tsv, .xlsx or .xlsm)\n", filepath.Base(f), parser.ErrUnsupported)
				failed++
				continue
			}
			res, err := s.AddFile(f, loadSheet, normalizeOptions(cfg))
			if err != nil {
				fmt.Fprintf(out, "✗ %s: %v\n", filepath.Base(f), err)
				failed++
				continue
			}
			fmt.Fprintf(out, "✓ Loaded %s: %d rows × %d columns (header at row %d)\n", filepath.Base(f), res.Rows, res.Columns, res.HeaderRow+1)
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "  ⚠ %s\n", w)
			}
			if len(res.DroppedColumns) > 0 {
				fmt.Fprintf(out, "  ⚠ dropped empty columns: %v\n", res.DroppedColumns)
			}
		}
		if err := s.Save(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) could not be loaded", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().StringVarP(&loadSessionName, "session", "s", "", "session name")
	loadCmd.Flags().StringVar(&loadSheet, "sheet", "", "XLSX: worksheet name (default first sheet)")
}
