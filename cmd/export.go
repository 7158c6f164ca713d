package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vesselvision-cli/internal/report"
	"github.com/KaramelBytes/vesselvision-cli/internal/session"
)

var (
	exportSessionName string
	exportOutput      string
	exportExchange    int
	exportTitle       string
	exportFooter      bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an answer as a PDF summary",
	Example: `  vesselvision export -s aurora
  vesselvision export -s aurora --exchange 2 -o voyage.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resetUnchanged(cmd)
		s, err := loadSession(exportSessionName)
		if err != nil {
			return err
		}
		var ex session.Exchange
		if exportExchange > 0 {
			if exportExchange > len(s.History) {
				return fmt.Errorf("%w: %d (session has %d)", session.ErrNoExchange, exportExchange, len(s.History))
			}
			ex = s.History[exportExchange-1]
		} else {
			ex, err = s.Current()
			if errors.Is(err, session.ErrNoHistory) {
				return fmt.Errorf("nothing to export yet; ask a question first with 'vesselvision ask -s %s'", s.Name)
			}
			if err != nil {
				return err
			}
		}
		opt := report.Options{Title: exportTitle, Footer: exportFooter}
		if err := report.WriteFile(exportOutput, ex.Answer, opt); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "💾 Saved PDF summary to %s\n", exportOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	f := exportCmd.Flags()
	f.StringVarP(&exportSessionName, "session", "s", "", "session name")
	f.StringVarP(&exportOutput, "output", "o", "summary.pdf", "PDF file to write")
	f.IntVar(&exportExchange, "exchange", 0, "topic number to export (default: selected, else latest)")
	f.StringVar(&exportTitle, "title", "", "document title (default \"Vessel Performance Summary\")")
	f.BoolVar(&exportFooter, "footer", false, "add a generated-at line")
}
