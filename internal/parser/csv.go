package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

type csvParser struct {
	// Delimiter overrides sniffing when non-zero.
	Delimiter rune
}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (p csvParser) Parse(r io.Reader) (*table.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data, err = toUTF8(data)
	if err != nil {
		return nil, err
	}
	delim := p.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]table.Cell
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		cells := make([]table.Cell, len(rec))
		for j, v := range rec {
			cells[j] = table.ParseCell(v)
		}
		rows = append(rows, cells)
	}
	return table.NewRawTable(rows), nil
}

// toUTF8 strips a UTF-8 BOM and decodes Windows-1252 exports, which are
// common from older onboard PCs.
func toUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if utf8.Valid(data) {
		return data, nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	return out, nil
}

// sniffDelimiter picks among ',', ';' and '\t' by counting occurrences outside
// quotes over the first few non-empty lines.
func sniffDelimiter(data []byte) rune {
	counts := map[rune]int{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := 0
	for sc.Scan() && lines < 10 {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		inQuote := false
		for _, r := range line {
			switch {
			case r == '"':
				inQuote = !inQuote
			case !inQuote && (r == ',' || r == ';' || r == '\t'):
				counts[r]++
			}
		}
	}
	best, n := ',', 0
	for _, r := range []rune{',', ';', '\t'} {
		if counts[r] > n {
			best, n = r, counts[r]
		}
	}
	return best
}
