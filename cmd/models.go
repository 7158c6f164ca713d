package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage or inspect model catalog and pricing",
	Example: `  vesselvision models list
  vesselvision models show llama3-70b-8192
  vesselvision models recommend --provider groq --tier cheap
  vesselvision models sync --file ./models.json --merge
  vesselvision models fetch --url https://example.com/models.json`,
}

var modelsJSON bool

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		out := cmd.OutOrStdout()
		if modelsJSON {
			b, err := json.MarshalIndent(cat, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		rows := make([][]string, 0, len(cat))
		for _, m := range cat {
			rows = append(rows, []string{
				m.Provider,
				m.Name,
				strconv.Itoa(m.ContextTokens),
				priceLabel(m.InputPerK),
				priceLabel(m.OutputPerK),
			})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			}).
			Headers("PROVIDER", "MODEL", "CONTEXT", "$/1K IN", "$/1K OUT").
			Rows(rows...)
		fmt.Fprintln(out, t.String())
		return nil
	},
}

func priceLabel(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var modelsShowCmd = &cobra.Command{
	Use:   "show <model>",
	Short: "Show catalog details for one model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mi, ok := ai.LookupModel(args[0])
		if !ok {
			return fmt.Errorf("model %q is not in the catalog; see 'vesselvision models list'", args[0])
		}
		b, err := utils.PrettyJSON(mi)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var (
	recProvider string
	recTier     string
)

var modelsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest a model for a provider and tier (cheap|balanced|high-context)",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := providerName(cfg, recProvider)
		name, ok := ai.RecommendModel(provider, recTier)
		if !ok {
			return fmt.Errorf("no recommendation for provider %q tier %q", provider, recTier)
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var (
	syncPath  string
	syncMerge bool
)

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load model catalog/pricing from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		if syncMerge {
			ai.MergeCatalog(m)
			fmt.Fprintln(cmd.OutOrStdout(), "Merged model catalog from file")
		} else {
			ai.OverrideCatalog(m)
			fmt.Fprintln(cmd.OutOrStdout(), "Replaced model catalog from file")
		}
		return nil
	},
}

var (
	fetchURL      string
	fetchOutput   string
	fetchMerge    bool
	fetchProvider string
)

var modelsFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch model catalog/pricing JSON from a URL and apply it",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if fetchURL == "" && fetchProvider != "" {
			fetchURL = os.Getenv("VESSELVISION_" + envName(fetchProvider) + "_CATALOG_URL")
		}
		var m map[string]ai.ModelInfo
		switch {
		case fetchURL != "":
			var err error
			if m, err = fetchCatalog(fetchURL); err != nil {
				return err
			}
		case fetchProvider != "":
			preset, ok := ai.PresetCatalog(fetchProvider)
			if !ok {
				return fmt.Errorf("no built-in preset for provider %q", fetchProvider)
			}
			m = preset
			fmt.Fprintf(out, "Using built-in '%s' preset\n", fetchProvider)
		default:
			return fmt.Errorf("--url is required (or specify --provider with a known preset)")
		}
		if fetchOutput != "" {
			data, err := utils.PrettyJSON(m)
			if err != nil {
				return fmt.Errorf("marshal: %w", err)
			}
			if err := utils.SafeWriteFile(fetchOutput, data); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Fprintf(out, "Saved catalog to %s\n", fetchOutput)
		}
		if fetchMerge {
			ai.MergeCatalog(m)
			fmt.Fprintln(out, "Merged fetched catalog into in-memory catalog")
		} else {
			ai.OverrideCatalog(m)
			fmt.Fprintln(out, "Replaced in-memory catalog with fetched catalog")
		}
		return nil
	},
}

func envName(provider string) string {
	b := []byte(provider)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - 'a' + 'A'
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd, modelsShowCmd, modelsRecommendCmd, modelsSyncCmd, modelsFetchCmd)

	modelsListCmd.Flags().BoolVar(&modelsJSON, "json", false, "print the catalog as JSON")

	modelsRecommendCmd.Flags().StringVar(&recProvider, "provider", "", "provider (groq|openrouter|openai|ollama); defaults to config")
	modelsRecommendCmd.Flags().StringVar(&recTier, "tier", "balanced", "cheap|balanced|high-context")

	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to JSON catalog file")
	modelsSyncCmd.Flags().BoolVar(&syncMerge, "merge", false, "merge into existing catalog instead of replacing")

	modelsFetchCmd.Flags().StringVar(&fetchURL, "url", "", "URL to JSON catalog file")
	modelsFetchCmd.Flags().StringVar(&fetchOutput, "output", "", "optional path to save the fetched JSON")
	modelsFetchCmd.Flags().BoolVar(&fetchMerge, "merge", false, "merge into existing catalog instead of replacing")
	modelsFetchCmd.Flags().StringVar(&fetchProvider, "provider", "", "provider preset to apply when --url is not set (reads VESSELVISION_<PROVIDER>_CATALOG_URL first)")
}
