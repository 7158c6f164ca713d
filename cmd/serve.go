package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vesselvision-cli/internal/assistant"
	"github.com/KaramelBytes/vesselvision-cli/internal/server"
)

var (
	serveAddr       string
	serveProvider   string
	serveModel      string
	serveBaseURL    string
	serveOllamaHost string
	serveMaxUpload  int64
	serveTimeoutSec int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload, ask, chart and PDF API over HTTP",
	Example: `  vesselvision serve
  vesselvision serve --addr :8080 --provider openrouter --model openai/gpt-4o-mini`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" && cfg != nil {
			addr = cfg.ListenAddr
		}
		if addr == "" {
			addr = "127.0.0.1:8080"
		}

		var asst *assistant.Assistant
		rt, provider, err := buildRuntime(cfg, runtimeOptions{
			ProviderFlag: serveProvider,
			OllamaHost:   serveOllamaHost,
			BaseURL:      serveBaseURL,
		})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %v; /api/ask is disabled\n", err)
		} else {
			asst = assistant.New(rt)
			asst.Model = selectModel(nil, cfg, serveModel)
			asst.Limits = promptLimits(cfg)
			if cfg != nil {
				asst.MaxTokens = cfg.MaxTokens
				asst.Temperature = cfg.Temperature
			}
		}

		srv := server.New(asst, server.Options{
			Normalize:  normalizeOptions(cfg),
			Provider:   provider,
			MaxUpload:  serveMaxUpload,
			AskTimeout: time.Duration(serveTimeoutSec) * time.Second,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on http://%s (Ctrl+C to stop)\n", addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	f := serveCmd.Flags()
	f.StringVar(&serveAddr, "addr", "", "listen address (default from config listen_addr)")
	f.StringVar(&serveProvider, "provider", "", "provider: groq|openrouter|openai|ollama")
	f.StringVar(&serveModel, "model", "", "model name (overrides config)")
	f.StringVar(&serveBaseURL, "base-url", "", "override the provider's API base URL")
	f.StringVar(&serveOllamaHost, "ollama-host", "", "Ollama host")
	f.Int64Var(&serveMaxUpload, "max-upload", server.DefaultMaxUpload, "maximum request body in bytes")
	f.IntVar(&serveTimeoutSec, "timeout-sec", defaultAskTimeoutSec, "per-question model timeout in seconds")
}
