package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	"github.com/KaramelBytes/vesselvision-cli/internal/assistant"
	cfgpkg "github.com/KaramelBytes/vesselvision-cli/internal/config"
	"github.com/KaramelBytes/vesselvision-cli/internal/parser"
	"github.com/KaramelBytes/vesselvision-cli/internal/report"
	"github.com/KaramelBytes/vesselvision-cli/internal/session"
	tbl "github.com/KaramelBytes/vesselvision-cli/internal/table"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
	BaseURL      string
}

func retryConfig(cfg *cfgpkg.Global) ai.RetryConfig {
	rc := ai.DefaultRetryConfig()
	if cfg == nil {
		return rc
	}
	if cfg.HTTPTimeoutSec > 0 {
		rc.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
	}
	if cfg.RetryMaxAttempts > 0 {
		rc.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryBaseDelayMs > 0 {
		rc.BaseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
	}
	if cfg.RetryMaxDelayMs > 0 {
		rc.MaxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
	}
	return rc
}

func providerName(cfg *cfgpkg.Global, flag string) string {
	name := strings.ToLower(strings.TrimSpace(flag))
	if name == "" && cfg != nil && cfg.DefaultProvider != "" {
		name = strings.ToLower(cfg.DefaultProvider)
	}
	switch name {
	case "":
		return ai.ProviderGroq
	case "local":
		return ai.ProviderOllama
	}
	return name
}

func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	name := providerName(cfg, opts.ProviderFlag)
	rc := ai.RuntimeConfig{Retry: retryConfig(cfg), BaseURL: strings.TrimSpace(opts.BaseURL)}
	if rc.BaseURL == "" && cfg != nil {
		rc.BaseURL = cfg.BaseURL
	}

	if env := ai.KeyEnv(name); env != "" {
		rc.APIKey = os.Getenv(env)
	}
	if rc.APIKey == "" && cfg != nil {
		rc.APIKey = cfg.APIKey
	}

	if name == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("VESSELVISION_OLLAMA_HOST")
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = ai.DefaultOllamaHost
		}
		rc.Host = host
		if v := os.Getenv("VESSELVISION_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.Retry.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.Retry.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	client, ok := ai.GetRuntime(name, rc)
	if !ok {
		return nil, name, fmt.Errorf("provider not supported: %s (use %s)", name, strings.Join(ai.Providers(), ", "))
	}
	return client, name, nil
}

func selectModel(s *session.Session, cfg *cfgpkg.Global, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if s != nil && s.Config != nil && s.Config.Model != "" {
		return s.Config.Model
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	return ai.DefaultModel
}

func enforceBudget(estCost, limit float64) error {
	if limit > 0 && estCost > 0 && estCost > limit {
		return fmt.Errorf("✗ Estimated cost ~$%.4f exceeds budget limit ~$%.4f", estCost, limit)
	}
	return nil
}

func normalizeOptions(cfg *cfgpkg.Global) tbl.Options {
	if cfg == nil {
		return tbl.DefaultOptions()
	}
	return tbl.Options{ScanRows: cfg.HeaderScanRows, MinCells: cfg.HeaderMinCells}
}

func promptLimits(cfg *cfgpkg.Global) assistant.Limits {
	if cfg == nil {
		return assistant.DefaultLimits()
	}
	return assistant.Limits{Rows: cfg.ContextRows, Chars: cfg.ContextChars}
}

func sessionsDir() (string, error) {
	dir := ""
	if cfg != nil {
		dir = cfg.SessionsDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, cfgpkg.DirName, "sessions"), nil
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, strings.TrimLeft(strings.TrimPrefix(dir, "~"), `/\`))
	}
	return filepath.Clean(dir), nil
}

// loadSession loads the named session. Without a name it looks for a session
// directory at or above the working directory.
func loadSession(name string) (*session.Session, error) {
	if name == "" {
		dir, err := utils.FindSessionRoot("")
		if errors.Is(err, utils.ErrNoSession) {
			return nil, errors.New("--session is required (or run inside a session directory)")
		}
		if err != nil {
			return nil, err
		}
		return session.Load(dir)
	}
	root, err := sessionsDir()
	if err != nil {
		return nil, err
	}
	s, err := session.Load(session.Dir(root, name))
	if errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("session %q not found; create it with 'vesselvision session new %s'", name, name)
	}
	return s, err
}

// resetUnchanged puts every flag not given in this parse back to its default.
// Flag variables are package-level and would otherwise keep the values of an
// earlier Execute.
func resetUnchanged(cmd *cobra.Command) {
	provided := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { provided[f.Name] = true })
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if provided[f.Name] {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
			return
		}
		_ = f.Value.Set(f.DefValue)
	})
}

// loadTables builds the working table from a session and/or explicit files.
// Unreadable files are reported on w and contribute no rows.
func loadTables(w io.Writer, s *session.Session, files []string, sheet string, quiet bool) *tbl.CleanTable {
	opt := normalizeOptions(cfg)
	var parts []*tbl.CleanTable
	if s != nil {
		ct, loads := s.Table(opt)
		for _, l := range loads {
			if l.Err != nil && !quiet {
				fmt.Fprintf(w, "⚠ Skipping %s: %v\n", l.File.Name, l.Err)
			}
		}
		parts = append(parts, ct)
	}
	for _, f := range files {
		src := parser.Open(f)
		if sheet != "" {
			src = parser.OpenSheet(f, sheet)
		}
		ct, res, err := tbl.Normalize(src, opt)
		if err != nil {
			if !quiet {
				fmt.Fprintf(w, "⚠ Skipping %s: %v\n", filepath.Base(f), err)
			}
			continue
		}
		session.LogResult(res)
		parts = append(parts, ct)
	}
	return tbl.Concat(parts...)
}

// describeError converts an Ask failure into a message with a hint.
func describeError(err error, provider, model string) error {
	return fmt.Errorf("%s\n  detail: %w", assistant.Hint(err, provider, model), err)
}

type streamingOptions struct {
	Enabled     bool
	Quiet       bool
	Writer      io.Writer
	DeltaWriter io.Writer
}

func handleStreaming(ctx context.Context, rt ai.Runtime, a *assistant.Assistant, ct *tbl.CleanTable, question string, opts streamingOptions) (*assistant.Answer, bool, error) {
	if !opts.Enabled {
		return nil, false, nil
	}
	logWriter := opts.Writer
	if logWriter == nil {
		logWriter = os.Stdout
	}
	deltaWriter := opts.DeltaWriter
	if deltaWriter == nil {
		deltaWriter = os.Stdout
	}
	if _, ok := rt.(ai.StreamRuntime); !ok {
		if !opts.Quiet {
			fmt.Fprintln(logWriter, "⚠ Streaming not supported for this provider; falling back to non-streaming.")
		}
		return nil, false, nil
	}
	if !opts.Quiet {
		fmt.Fprintln(logWriter, "(streaming)")
	}
	ans, err := a.AskStream(ctx, ct, question, func(delta string) {
		fmt.Fprint(deltaWriter, delta)
	})
	if err != nil {
		return nil, true, err
	}
	if !opts.Quiet {
		fmt.Fprintln(logWriter)
	}
	return ans, true, nil
}

type outputOptions struct {
	JSON         bool
	Quiet        bool
	Raw          bool
	Session      string
	OutputPath   string
	OutputFormat string
	Writer       io.Writer
}

func answerJSON(ans *assistant.Answer, sessionName string) ([]byte, error) {
	out := map[string]any{
		"question":   ans.Question,
		"answer":     ans.Text,
		"model":      ans.Model,
		"usage":      ans.Usage,
		"elapsed_ms": ans.Elapsed.Milliseconds(),
	}
	if sessionName != "" {
		out["session"] = sessionName
	}
	if ans.RequestID != "" {
		out["request_id"] = ans.RequestID
	}
	return utils.PrettyJSON(out)
}

func formatAndWriteOutput(ans *assistant.Answer, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	switch {
	case opts.JSON:
		b, err := answerJSON(ans, opts.Session)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	case opts.Quiet || opts.Raw:
		fmt.Fprintln(w, ans.Text)
	default:
		fmt.Fprintln(w, "\n=== AI Response ===")
		fmt.Fprintln(w, renderMarkdown(ans.Text))
	}

	if opts.OutputPath == "" {
		return nil
	}
	switch opts.OutputFormat {
	case "", "text", "markdown", "md":
		if err := utils.SafeWriteFile(opts.OutputPath, []byte(ans.Text)); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	case "json":
		b, err := answerJSON(ans, opts.Session)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(opts.OutputPath, b); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	case "pdf":
		if err := report.WriteFile(opts.OutputPath, ans.Text, report.Options{Footer: true}); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported --format: %s (use text|markdown|json|pdf)", opts.OutputFormat)
	}
	if !opts.Quiet {
		fmt.Fprintf(w, "\n💾 Saved output to %s\n", opts.OutputPath)
	}
	return nil
}

// renderMarkdown styles model output for the terminal, falling back to the
// plain text when rendering fails.
func renderMarkdown(md string) string {
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// previewTable renders the first n rows of ct as a bordered terminal table.
func previewTable(ct *tbl.CleanTable, n int) string {
	head := ct.Head(n)
	rows := make([][]string, head.NumRows())
	for i := range rows {
		rows[i] = head.StringRow(i)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(head.Names()...).
		Rows(rows...).
		String()
}
