package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vesselvision-cli/internal/assistant"
	"github.com/KaramelBytes/vesselvision-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/vesselvision-cli/internal/config"
	"github.com/KaramelBytes/vesselvision-cli/internal/session"
)

var (
	chartSessionName string
	chartFiles       []string
	chartSheet       string
	chartX           string
	chartY           string
	chartKind        string
	chartAvg         bool
	chartTitle       string
	chartOutput      string
	chartInsights    bool
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Draw a Line, Bar, Scatter or Pie chart as standalone HTML",
	Example: `  vesselvision chart -s aurora --kind line --x Date --y "Fuel Consumption"
  vesselvision chart -s aurora --kind bar --x Date --y Speed --avg -o speed.html
  vesselvision chart --file march.xlsx --insights`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resetUnchanged(cmd)
		out := cmd.OutOrStdout()
		var s *session.Session
		if chartSessionName != "" || len(chartFiles) == 0 {
			var err error
			if s, err = loadSession(chartSessionName); err != nil {
				return err
			}
		}
		ct := loadTables(out, s, chartFiles, chartSheet, false)
		if ct.Empty() {
			fmt.Fprintln(out, assistant.NoDataMessage)
			return nil
		}

		if chartInsights {
			specs := chart.Insights(ct)
			if len(specs) == 0 {
				fmt.Fprintln(out, "No automatic charts apply: need RPM and Fuel Consumption, or a Date column.")
				return nil
			}
			dir := chartOutput
			if dir == "" {
				dir = chartsDir()
			}
			for _, sp := range specs {
				path := filepath.Join(dir, chartFileName(sp))
				if err := chart.WriteFile(path, ct, sp); err != nil {
					fmt.Fprintf(out, "⚠ %s: %v\n", sp.Title, err)
					continue
				}
				fmt.Fprintf(out, "✓ %s → %s\n", sp.Title, path)
			}
			return nil
		}

		if chartX == "" || chartY == "" {
			return fmt.Errorf("--x and --y are required; columns: %s", strings.Join(ct.Names(), ", "))
		}
		kind, err := chart.ParseKind(chartKind)
		if err != nil {
			return err
		}
		sp := chart.Spec{Kind: kind, X: chartX, Y: chartY, Average: chartAvg, Title: chartTitle}
		path := chartOutput
		if path == "" {
			path = filepath.Join(chartsDir(), chartFileName(sp))
		}
		if err := chart.WriteFile(path, ct, sp); err != nil {
			if errors.Is(err, chart.ErrMissingColumn) {
				return fmt.Errorf("%w; columns: %s", err, strings.Join(ct.Names(), ", "))
			}
			return err
		}
		fmt.Fprintf(out, "✓ Chart saved to %s\n", path)
		return nil
	},
}

func chartsDir() string {
	if cfg != nil && cfg.ChartsDir != "" {
		return cfg.ChartsDir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, cfgpkg.DirName, "charts")
	}
	return "charts"
}

var fileNameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_", ":", "_", "(", "", ")", "")

func chartFileName(sp chart.Spec) string {
	name := fmt.Sprintf("%s_%s_vs_%s", strings.ToLower(string(sp.Kind)), sp.Y, sp.X)
	if sp.Average {
		name += "_avg"
	}
	return fileNameReplacer.Replace(name) + ".html"
}

func init() {
	rootCmd.AddCommand(chartCmd)
	f := chartCmd.Flags()
	f.StringVarP(&chartSessionName, "session", "s", "", "session whose files to chart")
	f.StringSliceVar(&chartFiles, "file", nil, "noon report file(s) to chart (repeatable)")
	f.StringVar(&chartSheet, "sheet", "", "XLSX: worksheet name for --file inputs")
	f.StringVar(&chartX, "x", "", "x axis column")
	f.StringVar(&chartY, "y", "", "y axis column")
	f.StringVar(&chartKind, "kind", "line", "line|bar|scatter|pie")
	f.BoolVar(&chartAvg, "avg", false, "bar: average y per vessel instead of per x value")
	f.StringVar(&chartTitle, "title", "", "chart title")
	f.StringVarP(&chartOutput, "output", "o", "", "output HTML file (a directory with --insights)")
	f.BoolVar(&chartInsights, "insights", false, "draw the standard fuel/RPM and trend charts")
}
