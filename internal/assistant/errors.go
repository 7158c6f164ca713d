package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
)

// Hint turns an Ask failure into a message for the person asking, with a
// pointer to the likely fix. provider and model only refine the wording.
func Hint(err error, provider, model string) string {
	var (
		missing *ai.MissingKeyError
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoData):
		return NoDataMessage
	case errors.Is(err, ErrEmptyQuestion):
		return "Please enter a question."
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to answer. Retry, or raise --timeout."
	case errors.As(err, &missing):
		return fmt.Sprintf("No API key configured. Set %s or add api_key to the config file.", missing.Env)
	case errors.As(err, &unreach):
		if provider == ai.ProviderOllama || provider == ai.ProviderLocal {
			return fmt.Sprintf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (config 'ollama_host').", unreach.Host)
		}
		return "Could not reach the model endpoint. Check your network connection and base_url."
	case errors.As(err, &authErr):
		return "Authentication failed. Check GROQ_API_KEY or api_key in the config file."
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Sprintf("Rate limited by the provider. Try again in about %ds.", int(rlErr.RetryAfter.Seconds()))
		}
		return "Rate limited by the provider. Please retry shortly."
	case errors.As(err, &nfErr):
		if provider == ai.ProviderOllama || provider == ai.ProviderLocal {
			return fmt.Sprintf("Local model %q is not available. Install it with 'ollama pull %s' or choose another model.", model, model)
		}
		return fmt.Sprintf("Model %q not found. See 'vesselvision models list' for known names.", model)
	case errors.As(err, &brErr):
		return "The request was rejected. Try fewer context rows or a lower max_tokens."
	case errors.As(err, &qErr):
		return "Quota or billing issue. Check your provider account."
	case errors.As(err, &sErr):
		return "The provider appears unavailable (server error). Please retry later."
	case errors.Is(err, ErrEmptyAnswer):
		return "The model returned an empty answer. Try rephrasing the question."
	}
	return fmt.Sprintf("Something went wrong: %v", err)
}
