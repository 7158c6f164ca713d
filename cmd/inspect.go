package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vesselvision-cli/internal/analysis"
	"github.com/KaramelBytes/vesselvision-cli/internal/parser"
	tbl "github.com/KaramelBytes/vesselvision-cli/internal/table"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

var (
	inspSessionName  string
	inspSheet        string
	inspRows         int
	inspProfile      bool
	inspGroupBy      string
	inspCorrelations bool
	inspJSON         bool
	inspScanRows     int
	inspMinCells     int
)

type inspection struct {
	Result  *tbl.Result      `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Head    []map[string]any `json:"head,omitempty"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file...]",
	Short: "Show how noon report files are cleaned: header row, dropped columns, preview",
	Example: `  vesselvision inspect march.xlsx
  vesselvision inspect -s aurora --profile --group-by VesselName
  vesselvision inspect export.csv --scan-rows 8 --min-cells 4 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resetUnchanged(cmd)
		if inspSessionName == "" && len(args) == 0 {
			return errors.New("give one or more files, or --session")
		}
		out := cmd.OutOrStdout()
		opt := normalizeOptions(cfg)
		if inspScanRows > 0 {
			opt.ScanRows = inspScanRows
		}
		if inspMinCells > 0 {
			opt.MinCells = inspMinCells
		}

		type item struct {
			name string
			ct   *tbl.CleanTable
			res  *tbl.Result
			err  error
		}
		var items []item
		if inspSessionName != "" {
			s, err := loadSession(inspSessionName)
			if err != nil {
				return err
			}
			for _, f := range s.Files {
				src := parser.Open(f.Path)
				if f.Sheet != "" {
					src = parser.OpenSheet(f.Path, f.Sheet)
				}
				ct, res, err := tbl.Normalize(src, opt)
				items = append(items, item{name: f.Name, ct: ct, res: res, err: err})
			}
		}
		for _, f := range args {
			src := parser.Open(f)
			if inspSheet != "" {
				src = parser.OpenSheet(f, inspSheet)
			}
			ct, res, err := tbl.Normalize(src, opt)
			items = append(items, item{name: f, ct: ct, res: res, err: err})
		}

		if inspJSON {
			report := make(map[string]inspection, len(items))
			for _, it := range items {
				in := inspection{Result: it.res}
				if it.err != nil {
					in.Error = it.err.Error()
				} else {
					in.Columns = it.ct.Names()
					in.Head = it.ct.Head(inspRows).Records()
				}
				report[it.name] = in
			}
			b, err := utils.PrettyJSON(report)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}

		var good []*tbl.CleanTable
		for _, it := range items {
			fmt.Fprintf(out, "\n== %s ==\n", it.name)
			if it.err != nil {
				fmt.Fprintf(out, "✗ %v\n", it.err)
				continue
			}
			printDiagnostics(out, it.res)
			if !it.ct.Empty() {
				fmt.Fprintln(out, previewTable(it.ct, inspRows))
			}
			good = append(good, it.ct)
		}

		if !inspProfile {
			return nil
		}
		all := tbl.Concat(good...)
		if all.Empty() {
			fmt.Fprintln(out, "\n(no rows to profile)")
			return nil
		}
		popt := analysis.DefaultOptions()
		popt.SampleRows = inspRows
		popt.GroupBy = inspGroupBy
		popt.Correlations = inspCorrelations
		name := inspSessionName
		if name == "" {
			name = "noon reports"
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderMarkdown(analysis.Profile(name, all, popt).Markdown()))
		return nil
	},
}

func printDiagnostics(w io.Writer, res *tbl.Result) {
	if res.HeaderRow < 0 {
		fmt.Fprintln(w, "⚠ empty source")
		return
	}
	fmt.Fprintf(w, "Header row: %d", res.HeaderRow+1)
	if res.Fallback {
		fmt.Fprint(w, " (fallback)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Rows: %d, columns: %d, skipped preamble rows: %d, blank rows: %d, filled cells: %d\n",
		res.Rows, res.Columns, res.PreambleRows, res.BlankRows, res.FilledCells)
	if len(res.DroppedColumns) > 0 {
		fmt.Fprintf(w, "Dropped empty columns: %v\n", res.DroppedColumns)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	f := inspectCmd.Flags()
	f.StringVarP(&inspSessionName, "session", "s", "", "inspect every file attached to this session")
	f.StringVar(&inspSheet, "sheet", "", "XLSX: worksheet name for file arguments")
	f.IntVar(&inspRows, "rows", 5, "preview rows per file")
	f.BoolVar(&inspProfile, "profile", false, "print column statistics for the combined table")
	f.StringVar(&inspGroupBy, "group-by", "", "with --profile: per-group means of numeric columns (e.g. VesselName)")
	f.BoolVar(&inspCorrelations, "correlations", true, "with --profile: compute correlations among numeric columns")
	f.BoolVar(&inspJSON, "json", false, "print diagnostics as JSON")
	f.IntVar(&inspScanRows, "scan-rows", 0, "header candidate rows to scan (overrides config)")
	f.IntVar(&inspMinCells, "min-cells", 0, "non-empty cells a header row needs (overrides config)")
}
