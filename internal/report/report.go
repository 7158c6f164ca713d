// Package report exports an assistant answer as a one-document PDF summary.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

// Title heads every summary.
const Title = "Vessel Performance Summary"

// ErrEmptySummary is returned when there is no text to export.
var ErrEmptySummary = errors.New("nothing to export: summary is empty")

// Options tune the document. The zero value reproduces the standard layout.
type Options struct {
	Title    string
	Font     string
	BodySize float64
	// Footer adds a generated-at line at the end when set.
	Footer bool
	// Now is used for the footer; defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = Title
	}
	if o.Font == "" {
		o.Font = "Arial"
	}
	if o.BodySize <= 0 {
		o.BodySize = 12
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// WritePDF lays out text under the summary title and writes the PDF to w.
// Each line of text becomes a wrapped paragraph; blank lines add a small gap.
func WritePDF(w io.Writer, text string, opt Options) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptySummary
	}
	opt = opt.withDefaults()

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator("vesselvision", true)
	pdf.AddPage()
	pdf.SetAutoPageBreak(true, 15)

	pdf.SetFont(opt.Font, "B", 16)
	pdf.CellFormat(0, 10, tr(opt.Title), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont(opt.Font, "", opt.BodySize)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			pdf.Ln(5)
			continue
		}
		pdf.MultiCell(0, 10, tr(line), "", "", false)
	}
	if opt.Footer {
		pdf.Ln(5)
		pdf.SetFont(opt.Font, "I", 9)
		pdf.CellFormat(0, 6, "Generated "+opt.Now().Format("2006-01-02 15:04"), "", 1, "R", false, 0, "")
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// WriteFile writes the summary PDF to path atomically.
func WriteFile(path, text string, opt Options) error {
	var buf bytes.Buffer
	if err := WritePDF(&buf, text, opt); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
