// Package session persists a chat over a set of noon report files: the
// attached files, the question/answer history and the selected exchange.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/vesselvision-cli/internal/parser"
	"github.com/KaramelBytes/vesselvision-cli/internal/table"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

// maxParallelReads bounds concurrent file reads in Table.
const maxParallelReads = 4

// TopicLen is how many characters of a question are shown as its topic.
const TopicLen = 40

var (
	ErrNotFound   = errors.New("session not found")
	ErrNoExchange = errors.New("no such exchange")
	ErrNoHistory  = errors.New("session has no answers yet")
)

// Session is the caller-owned conversation state.
type Session struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Files   []File     `json:"files"`
	History []Exchange `json:"history"`
	// Selected indexes History; nil means the whole history is shown.
	Selected  *int      `json:"selected,omitempty"`
	Config    *Config   `json:"config"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	rootDir string
}

// Config holds per-session overrides. Zero values inherit global defaults.
type Config struct {
	Provider    string  `json:"provider,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Dir returns the directory that holds the session called name.
func Dir(sessionsDir, name string) string { return filepath.Join(sessionsDir, name) }

// New constructs an in-memory session. Call Save to persist.
func New(name, rootDir string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Name:      name,
		Config:    &Config{},
		CreatedAt: now,
		UpdatedAt: now,
		rootDir:   rootDir,
	}
}

// Load reads session.json from dir.
func Load(dir string) (*Session, error) {
	path := filepath.Join(dir, utils.SessionFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if s.Config == nil {
		s.Config = &Config{}
	}
	if s.Selected != nil && (*s.Selected < 0 || *s.Selected >= len(s.History)) {
		s.Selected = nil
	}
	s.rootDir = dir
	return &s, nil
}

// List returns the names of the sessions stored under sessionsDir, sorted.
func List(sessionsDir string) ([]string, error) {
	entries, err := os.ReadDir(sessionsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(sessionsDir, e.Name(), utils.SessionFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the session directory.
func Remove(sessionsDir, name string) error {
	dir := Dir(sessionsDir, name)
	if _, err := os.Stat(filepath.Join(dir, utils.SessionFile)); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return os.RemoveAll(dir)
}

// RootDir returns the on-disk session directory.
func (s *Session) RootDir() string { return s.rootDir }

// Save writes session.json atomically.
func (s *Session) Save() error {
	if s.rootDir == "" {
		return errors.New("session root directory not set")
	}
	s.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(s.rootDir, utils.SessionFile), data)
}

// AddFile attaches the report at path after checking that it normalizes.
// Attaching the same path twice refreshes the existing entry.
func (s *Session) AddFile(path, sheet string, opt table.Options) (*table.Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	_, res, err := table.Normalize(openSource(abs, sheet), opt)
	if err != nil {
		return nil, err
	}
	f := File{
		ID:      uuid.NewString(),
		Path:    abs,
		Name:    filepath.Base(abs),
		Sheet:   sheet,
		Rows:    res.Rows,
		Columns: res.Columns,
		AddedAt: time.Now(),
	}
	for i := range s.Files {
		if s.Files[i].Path == abs && s.Files[i].Sheet == sheet {
			f.ID = s.Files[i].ID
			s.Files[i] = f
			s.UpdatedAt = time.Now()
			return res, nil
		}
	}
	s.Files = append(s.Files, f)
	s.UpdatedAt = time.Now()
	return res, nil
}

// RemoveFile detaches the file whose ID or name matches ref.
func (s *Session) RemoveFile(ref string) bool {
	for i, f := range s.Files {
		if f.ID == ref || f.Name == ref {
			s.Files = append(s.Files[:i], s.Files[i+1:]...)
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// Loaded is the outcome of reading one attached file.
type Loaded struct {
	File   File
	Result *table.Result
	Err    error
}

// Table normalizes every attached file and stacks the results in attachment
// order. Files are read concurrently. An unreadable file contributes no rows;
// its error is reported in the matching Loaded.
func (s *Session) Table(opt table.Options) (*table.CleanTable, []Loaded) {
	parts := make([]*table.CleanTable, len(s.Files))
	loads := make([]Loaded, len(s.Files))
	var g errgroup.Group
	g.SetLimit(maxParallelReads)
	for i, f := range s.Files {
		g.Go(func() error {
			ct, res, err := table.Normalize(openSource(f.Path, f.Sheet), opt)
			loads[i] = Loaded{File: f, Result: res, Err: err}
			if err != nil {
				zap.L().Warn("session file unreadable", zap.String("session", s.Name), zap.String("file", f.Path), zap.Error(err))
				return nil
			}
			LogResult(res)
			parts[i] = ct
			return nil
		})
	}
	_ = g.Wait()
	return table.Concat(parts...), loads
}

// LogResult records normalization diagnostics at debug level.
func LogResult(res *table.Result) {
	if res == nil {
		return
	}
	zap.L().Debug("normalized",
		zap.String("source", res.Source),
		zap.Int("header_row", res.HeaderRow),
		zap.Bool("fallback", res.Fallback),
		zap.Strings("dropped_columns", res.DroppedColumns),
		zap.Int("rows", res.Rows),
		zap.Int("columns", res.Columns),
	)
}

func openSource(path, sheet string) table.Source {
	if sheet != "" {
		return parser.OpenSheet(path, sheet)
	}
	return parser.Open(path)
}

// Record appends an exchange and returns to the full-history view.
func (s *Session) Record(e Exchange) {
	if e.AskedAt.IsZero() {
		e.AskedAt = time.Now()
	}
	s.History = append(s.History, e)
	s.Selected = nil
	s.UpdatedAt = time.Now()
}

// Topics returns the first TopicLen characters of every question, oldest first.
func (s *Session) Topics() []string {
	out := make([]string, len(s.History))
	for i, e := range s.History {
		out[i] = topic(e.Question)
	}
	return out
}

func topic(q string) string {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) <= TopicLen {
		return q
	}
	return string([]rune(q)[:TopicLen])
}

// Select shows only exchange i.
func (s *Session) Select(i int) error {
	if i < 0 || i >= len(s.History) {
		return fmt.Errorf("%w: %d (have %d)", ErrNoExchange, i, len(s.History))
	}
	s.Selected = &i
	s.UpdatedAt = time.Now()
	return nil
}

// Deselect starts a new chat view without dropping history.
func (s *Session) Deselect() {
	s.Selected = nil
	s.UpdatedAt = time.Now()
}

// ClearHistory drops all exchanges.
func (s *Session) ClearHistory() {
	s.History = nil
	s.Selected = nil
	s.UpdatedAt = time.Now()
}

// Last returns the most recent exchange.
func (s *Session) Last() (Exchange, error) {
	if len(s.History) == 0 {
		return Exchange{}, ErrNoHistory
	}
	return s.History[len(s.History)-1], nil
}

// Current returns the selected exchange, or the last one when none is selected.
func (s *Session) Current() (Exchange, error) {
	if s.Selected != nil {
		return s.History[*s.Selected], nil
	}
	return s.Last()
}

// Visible returns the selected exchange alone, or the whole history newest first.
func (s *Session) Visible() []Exchange {
	if s.Selected != nil {
		return []Exchange{s.History[*s.Selected]}
	}
	out := make([]Exchange, len(s.History))
	for i, e := range s.History {
		out[len(s.History)-1-i] = e
	}
	return out
}
