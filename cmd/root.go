package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/vesselvision-cli/internal/config"
	"github.com/KaramelBytes/vesselvision-cli/internal/logging"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global

	flushLogs = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "vesselvision",
	Short: "VesselVision: ask an AI analyst about your noon reports",
	Long: `VesselVision cleans noon report spreadsheets (CSV/XLSX exports with title
rows, blank lines and gaps), lets you ask questions about them through Groq or
another OpenAI-compatible provider, draws charts and exports answers as PDF.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	defer func() { flushLogs() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		flushLogs()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging, loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.vesselvision/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging on stderr")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func initLogging() {
	flushLogs()
	stop, err := logging.Init(debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
		return
	}
	flushLogs = stop
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	zap.L().Debug("config loaded", zap.String("provider", cfg.DefaultProvider), zap.String("model", cfg.DefaultModel), zap.String("sessions_dir", cfg.SessionsDir))

	if cfg.ModelsAutoSync && cfg.ModelsCatalogURL != "" {
		if err := fetchAndApplyCatalog(cfg.ModelsCatalogURL, cfg.ModelsMerge); err != nil {
			fmt.Fprintf(os.Stderr, "⚠ Warning: models auto-sync failed: %v\n", err)
		}
	}
}

// fetchCatalog downloads a JSON catalog of model metadata.
func fetchCatalog(url string) (map[string]ai.ModelInfo, error) {
	client := &http.Client{Timeout: 20 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("fetch: unexpected status %s: %s", resp.Status, string(b))
	}
	var m map[string]ai.ModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	for k, v := range m {
		if v.Name == "" {
			v.Name = k
			m[k] = v
		}
	}
	return m, nil
}

// fetchAndApplyCatalog downloads a JSON catalog and applies it in-memory.
func fetchAndApplyCatalog(url string, merge bool) error {
	m, err := fetchCatalog(url)
	if err != nil {
		return err
	}
	if merge {
		ai.MergeCatalog(m)
	} else {
		ai.OverrideCatalog(m)
	}
	return nil
}
