package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultOllamaHost is where a local Ollama listens by default.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// OllamaClient is a minimal HTTP client for a local Ollama runtime,
// for ships or offices without a reliable uplink.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	retry      RetryConfig
}

// NewOllamaClient creates a client targeting host (e.g., http://127.0.0.1:11434).
func NewOllamaClient(host string, rc RetryConfig) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	rc = rc.withDefaults(RetryConfig{HTTPTimeout: 60 * time.Second, MaxAttempts: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: time.Second})
	return &OllamaClient{
		httpClient: &http.Client{Timeout: rc.HTTPTimeout},
		host:       strings.TrimRight(host, "/"),
		retry:      rc,
	}
}

// Structures aligned with Ollama /api/chat
type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

func (c *OllamaClient) payload(req GenerateRequest, stream bool) ([]byte, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	oreq := ollamaChatRequest{Model: req.Model, Messages: req.Messages, Stream: stream, Options: map[string]any{}}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}
	b, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return b, nil
}

func (c *OllamaClient) post(ctx context.Context, payload []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(httpReq)
}

// ollamaError classifies a non-2xx Ollama response. A 404 means the model is not pulled.
func ollamaError(resp *http.Response) error {
	apiErr := decodeAPIError(resp)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &ModelNotFoundError{APIError: apiErr}
	case resp.StatusCode >= 500:
		return &ServerError{APIError: apiErr}
	case resp.StatusCode == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	}
	return apiErr
}

// Generate sends a chat request to Ollama and maps the response to GenerateResponse.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	payload, err := c.payload(req, false)
	if err != nil {
		return nil, err
	}
	backoff := c.retry.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := c.post(ctx, payload)
		if err != nil {
			if isRetryableNetErr(err) && attempt < c.retry.MaxAttempts {
				if err := sleepCtx(ctx, withJitter(backoff)); err != nil {
					return nil, err
				}
				backoff *= 2
				continue
			}
			return nil, &UnreachableError{Host: c.host, Err: err}
		}
		out, err := func() (*GenerateResponse, error) {
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, ollamaError(resp)
			}
			var oresp ollamaChatResponse
			if err := json.NewDecoder(resp.Body).Decode(&oresp); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			return &GenerateResponse{
				Choices:   []Choice{{Message: Message{Role: "assistant", Content: oresp.Message.Content}}},
				Usage:     Usage{PromptTokens: oresp.PromptEvalCount, CompletionTokens: oresp.EvalCount, TotalTokens: oresp.PromptEvalCount + oresp.EvalCount},
				RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
			}, nil
		}()
		if err == nil {
			return out, nil
		}
		lastErr = err
		var nf *ModelNotFoundError
		if errors.As(err, &nf) || attempt == c.retry.MaxAttempts {
			break
		}
		zap.L().Debug("retrying ollama request", zap.Int("attempt", attempt), zap.Error(err))
		if err := sleepCtx(ctx, withJitter(backoff)); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, lastErr
}

// GenerateStream streams partial deltas from Ollama's NDJSON stream.
func (c *OllamaClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	payload, err := c.payload(req, true)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, payload)
	if err != nil {
		return &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ollamaError(resp)
	}
	dec := json.NewDecoder(resp.Body)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var oresp ollamaChatResponse
		if err := dec.Decode(&oresp); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode stream: %w", err)
		}
		if msg := oresp.Message.Content; msg != "" {
			onDelta(msg)
		}
		if oresp.Done {
			break
		}
	}
	return nil
}
