package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

// Parser turns a spreadsheet-like byte stream into raw rows.
type Parser interface {
	CanParse(filename string) bool
	Parse(r io.Reader) (*table.RawTable, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a file extension no registered parser accepts.
var ErrUnsupported = errors.New("unsupported file format")

// Supported reports whether some registered parser accepts filename.
func Supported(filename string) bool {
	return lookup(filename) != nil
}

func lookup(filename string) Parser {
	for _, p := range registry {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// Parse selects a parser by name and reads r. Every failure, including an
// unknown extension, is reported as a *table.SourceUnreadableError.
func Parse(name string, r io.Reader) (*table.RawTable, error) {
	p := lookup(name)
	if p == nil {
		return nil, table.Unreadable(filepath.Base(name), fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name)))
	}
	raw, err := p.Parse(r)
	if err != nil {
		return nil, table.Unreadable(filepath.Base(name), err)
	}
	return raw, nil
}

// ParseFile reads the file at path with the matching parser.
func ParseFile(path string) (*table.RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, table.Unreadable(filepath.Base(path), fmt.Errorf("read file: %w", err))
	}
	return Parse(path, bytes.NewReader(data))
}

type fileSource struct{ path string }

func (s fileSource) Name() string                   { return filepath.Base(s.path) }
func (s fileSource) Read() (*table.RawTable, error) { return ParseFile(s.path) }

// Open returns a table.Source backed by the file at path. Nothing is read
// until the source is normalized.
func Open(path string) table.Source { return fileSource{path: path} }

type sheetSource struct{ path, sheet string }

func (s sheetSource) Name() string { return filepath.Base(s.path) + "#" + s.sheet }
func (s sheetSource) Read() (*table.RawTable, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, table.Unreadable(s.Name(), fmt.Errorf("read file: %w", err))
	}
	defer f.Close()
	raw, err := ParseXLSXSheet(f, s.sheet)
	if err != nil {
		return nil, table.Unreadable(s.Name(), err)
	}
	return raw, nil
}

// OpenSheet is Open for a named worksheet of a workbook.
func OpenSheet(path, sheet string) table.Source { return sheetSource{path: path, sheet: sheet} }

type bytesSource struct {
	name string
	data []byte
}

func (s bytesSource) Name() string { return s.name }
func (s bytesSource) Read() (*table.RawTable, error) {
	return Parse(s.name, bytes.NewReader(s.data))
}

// FromBytes returns a table.Source over an uploaded payload. name selects the parser.
func FromBytes(name string, data []byte) table.Source {
	return bytesSource{name: filepath.Base(name), data: data}
}

func init() {
	Register(xlsxParser{})
	Register(csvParser{})
}
