package cmd

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	"github.com/KaramelBytes/vesselvision-cli/internal/assistant"
	"github.com/KaramelBytes/vesselvision-cli/internal/session"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

const defaultAskTimeoutSec = 180

var (
	askSessionName string
	askFiles       []string
	askSheet       string
	askModel       string
	askProvider    string
	askBaseURL     string
	askMaxTokens   int
	askTemp        float64
	askDryRun      bool
	askQuiet       bool
	askJSON        bool
	askRaw         bool
	askPrintPrompt bool
	askBudgetLimit float64
	askOutputPath  string
	askOutputFmt   string
	askStream      bool
	askOllamaHost  string
	askTimeoutSec  int
	askNoSave      bool
	askPromptLimit int
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask the AI analyst a question about the loaded noon reports",
	Example: `  vesselvision ask -s aurora "Which day had the highest fuel consumption?"
  vesselvision ask --file march.xlsx "Average RPM per vessel?" --dry-run
  vesselvision ask -s aurora "Summarize the voyage" --output summary.pdf --format pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Flags are package-level and sticky across Execute calls; reset the
		// ones not given in this parse.
		provided := map[string]bool{}
		cmd.Flags().Visit(func(fl *pflag.Flag) { provided[fl.Name] = true })
		if !provided["budget-limit"] {
			askBudgetLimit = 0
		}
		if !provided["prompt-limit"] {
			askPromptLimit = 0
		}
		if !provided["model"] {
			askModel = ""
		}
		if !provided["provider"] {
			askProvider = ""
		}
		if !provided["max-tokens"] {
			askMaxTokens = 0
		}
		if !provided["temp"] {
			askTemp = 0
		}
		if !provided["dry-run"] {
			askDryRun = false
		}
		if !provided["print-prompt"] {
			askPrintPrompt = false
		}
		if !provided["timeout-sec"] {
			askTimeoutSec = defaultAskTimeoutSec
		}
		if !provided["file"] {
			askFiles = nil
		}
		if !provided["session"] {
			askSessionName = ""
		}
		if !provided["json"] {
			askJSON = false
		}
		if !provided["quiet"] {
			askQuiet = false
		}
		if !provided["output"] {
			askOutputPath = ""
		}
		if !provided["stream"] {
			askStream = false
		}
		if !provided["raw"] {
			askRaw = false
		}
		if !provided["no-save"] {
			askNoSave = false
		}
		if askJSON {
			askQuiet = true
		}

		out := cmd.OutOrStdout()
		question := strings.TrimSpace(strings.Join(args, " "))

		var s *session.Session
		if askSessionName != "" || len(askFiles) == 0 {
			var err error
			if s, err = loadSession(askSessionName); err != nil {
				return err
			}
		}
		ct := loadTables(out, s, askFiles, askSheet, askQuiet)

		model := selectModel(s, cfg, askModel)
		maxTokens := askMaxTokens
		if maxTokens == 0 && s != nil && s.Config.MaxTokens > 0 {
			maxTokens = s.Config.MaxTokens
		}
		if maxTokens == 0 && cfg != nil {
			maxTokens = cfg.MaxTokens
		}
		temp := askTemp
		if temp == 0 && s != nil && s.Config.Temperature > 0 {
			temp = s.Config.Temperature
		}
		if temp == 0 && cfg != nil {
			temp = cfg.Temperature
		}
		providerFlag := askProvider
		if providerFlag == "" && s != nil {
			providerFlag = s.Config.Provider
		}

		a := assistant.New(nil)
		a.Model, a.MaxTokens, a.Temperature, a.Limits = model, maxTokens, temp, promptLimits(cfg)
		a.Limits.Tokens = askPromptLimit
		req, err := a.Request(ct, question)
		switch {
		case errors.Is(err, assistant.ErrNoData):
			fmt.Fprintln(out, assistant.NoDataMessage)
			return nil
		case err != nil:
			return describeError(err, providerName(cfg, providerFlag), model)
		}
		prompt := req.Messages[len(req.Messages)-1].Content
		tokens := 0
		for _, m := range req.Messages {
			tokens += utils.CountTokens(m.Content)
		}
		if !askQuiet {
			parts := utils.TokenBreakdown(map[string]string{
				"system":   assistant.SystemPrompt,
				"data":     assistant.RenderContext(ct, a.Limits),
				"question": question,
			})
			fmt.Fprintf(out, "Rows: %d, columns: %d\n", ct.NumRows(), ct.NumCols())
			fmt.Fprintf(out, "Tokens: total≈%d (system≈%d, data≈%d, question≈%d)\n", tokens, parts["system"], parts["data"], parts["question"])
		}

		var estCost float64
		if mi, ok := ai.LookupModel(model); ok {
			if mi.ContextTokens > 0 && tokens+maxTokens > mi.ContextTokens && !askQuiet {
				fmt.Fprintf(out, "⚠ Prompt (%d tokens) + max-tokens (%d) exceeds %s context window (~%d tokens).\n", tokens, maxTokens, mi.Name, mi.ContextTokens)
			}
			if cost, ok := ai.EstimateCostUSD(model, tokens, maxTokens); ok {
				estCost = cost
				if !askQuiet && cost > 0 {
					fmt.Fprintf(out, "Estimated max cost: ~$%.4f (in %.4f/out %.4f per 1K tokens)\n", cost, mi.InputPerK, mi.OutputPerK)
				}
			}
		}
		if err := enforceBudget(estCost, askBudgetLimit); err != nil {
			return err
		}

		if askDryRun {
			if !askQuiet {
				sum := sha1.Sum([]byte(prompt))
				fmt.Fprintln(out, "\n--dry-run: no API call will be made. Prompt preview below --")
				fmt.Fprintf(out, "Request ID (dry-run): sim_%x\n", sum[:6])
			}
			fmt.Fprintln(out, prompt)
			return nil
		}
		if askPrintPrompt && !askQuiet {
			fmt.Fprintln(out, "\n--print-prompt: sending the following prompt --")
			fmt.Fprintln(out, prompt)
		}

		rt, provider, err := buildRuntime(cfg, runtimeOptions{
			ProviderFlag: providerFlag,
			OllamaHost:   askOllamaHost,
			BaseURL:      askBaseURL,
		})
		if err != nil {
			return err
		}
		live := assistant.New(rt)
		live.Model, live.MaxTokens, live.Temperature, live.Limits = a.Model, a.MaxTokens, a.Temperature, a.Limits

		timeoutSec := askTimeoutSec
		if timeoutSec <= 0 {
			timeoutSec = defaultAskTimeoutSec
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSec)*time.Second)
		defer cancel()

		if !askQuiet {
			fmt.Fprintf(out, "⚙ Asking %s (model=%s) ...\n", provider, model)
		}
		ans, handled, err := handleStreaming(ctx, rt, live, ct, question, streamingOptions{
			Enabled:     askStream,
			Quiet:       askQuiet,
			Writer:      out,
			DeltaWriter: out,
		})
		if !handled && err == nil {
			ans, err = live.Ask(ctx, ct, question)
		}
		if err != nil {
			zap.L().Debug("ask failed", zap.String("provider", provider), zap.String("model", model), zap.Error(err))
			return describeError(err, provider, model)
		}

		if s != nil && !askNoSave {
			s.Record(session.Exchange{
				Question: ans.Question,
				Answer:   ans.Text,
				Model:    ans.Model,
				Tokens:   ans.Usage.TotalTokens,
			})
			if err := s.Save(); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
		}
		if ans.RequestID != "" && !askQuiet {
			fmt.Fprintf(out, "Request ID: %s\n", ans.RequestID)
		}
		if handled && !askJSON && askOutputPath == "" {
			return nil
		}
		return formatAndWriteOutput(ans, outputOptions{
			JSON:         askJSON,
			Quiet:        askQuiet || handled,
			Raw:          askRaw,
			Session:      askSessionName,
			OutputPath:   askOutputPath,
			OutputFormat: askOutputFmt,
			Writer:       out,
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	f := askCmd.Flags()
	f.StringVarP(&askSessionName, "session", "s", "", "session whose files and history to use")
	f.StringSliceVar(&askFiles, "file", nil, "noon report file(s) to include (repeatable)")
	f.StringVar(&askSheet, "sheet", "", "XLSX: worksheet name for --file inputs")
	f.StringVar(&askModel, "model", "", "model name (overrides session and config)")
	f.StringVar(&askProvider, "provider", "", "provider: groq|openrouter|openai|ollama")
	f.StringVar(&askBaseURL, "base-url", "", "override the provider's API base URL")
	f.IntVar(&askMaxTokens, "max-tokens", 0, "max tokens for the answer")
	f.Float64Var(&askTemp, "temp", 0, "sampling temperature")
	f.BoolVar(&askDryRun, "dry-run", false, "build the prompt and print it without calling the API")
	f.BoolVar(&askPrintPrompt, "print-prompt", false, "print the prompt before sending")
	f.Float64Var(&askBudgetLimit, "budget-limit", 0, "abort if the estimated cost in USD exceeds this value")
	f.BoolVar(&askStream, "stream", false, "stream the answer as it is generated")
	f.BoolVar(&askJSON, "json", false, "print the answer as JSON")
	f.BoolVar(&askRaw, "raw", false, "print the answer without markdown styling")
	f.BoolVar(&askQuiet, "quiet", false, "only print the answer")
	f.StringVarP(&askOutputPath, "output", "o", "", "also write the answer to this file")
	f.StringVar(&askOutputFmt, "format", "", "output file format: text|markdown|json|pdf")
	f.StringVar(&askOllamaHost, "ollama-host", "", "Ollama host (overrides config and VESSELVISION_OLLAMA_HOST)")
	f.IntVar(&askPromptLimit, "prompt-limit", 0, "cap the embedded report data at about this many tokens")
	f.IntVar(&askTimeoutSec, "timeout-sec", defaultAskTimeoutSec, "request timeout in seconds")
	f.BoolVar(&askNoSave, "no-save", false, "do not record the exchange in the session")
}
