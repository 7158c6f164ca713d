package assistant

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/vesselvision-cli/internal/table"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

// SystemPrompt is sent as the system message of every request.
const SystemPrompt = "You are a helpful vessel performance AI assistant."

const promptTemplate = `You are a marine performance analyst AI.

Use the following noon report data to answer the user's query. Highlight trends, anomalies, and suggest improvements.

--- NOON REPORT DATA ---
%s
------------------------

QUERY: %s
`

// Limits bound the data block embedded in a prompt.
type Limits struct {
	// Rows is how many leading rows are rendered.
	Rows int
	// Chars caps the rendered block, counted in characters.
	Chars int
	// Tokens further caps the block by estimated tokens; 0 disables it.
	Tokens int
}

// DefaultLimits returns the standard caps of 10 rows and 4000 characters.
func DefaultLimits() Limits { return Limits{Rows: 10, Chars: 4000} }

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.Rows <= 0 {
		l.Rows = d.Rows
	}
	if l.Chars <= 0 {
		l.Chars = d.Chars
	}
	return l
}

// RenderContext renders the first rows of t as a plain text table without an
// index column, values right-aligned per column, then truncates to lim.Chars
// and lim.Tokens.
func RenderContext(t *table.CleanTable, lim Limits) string {
	lim = lim.withDefaults()
	head := t.Head(lim.Rows)
	if head.NumCols() == 0 {
		return ""
	}
	n := head.NumRows()
	cells := make([][]string, n+1)
	cells[0] = head.Names()
	for i := 0; i < n; i++ {
		cells[i+1] = oneLine(head.StringRow(i))
	}
	widths := make([]int, head.NumCols())
	for _, row := range cells {
		for j, v := range row {
			if w := utf8.RuneCountInString(v); w > widths[j] {
				widths[j] = w
			}
		}
	}
	var b strings.Builder
	for i, row := range cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, v := range row {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.Repeat(" ", widths[j]-utf8.RuneCountInString(v)))
			b.WriteString(v)
		}
	}
	out := utils.TruncateRunes(b.String(), lim.Chars)
	if lim.Tokens > 0 {
		out = utils.TruncateToTokenLimit(out, lim.Tokens)
	}
	return out
}

func oneLine(row []string) []string {
	for i, v := range row {
		row[i] = strings.Join(strings.Fields(v), " ")
	}
	return row
}

// BuildPrompt fills the analyst template with the rendered data and the question.
func BuildPrompt(t *table.CleanTable, question string, lim Limits) string {
	return fmt.Sprintf(promptTemplate, RenderContext(t, lim), strings.TrimSpace(question))
}
