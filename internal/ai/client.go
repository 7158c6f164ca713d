package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Endpoint describes an OpenAI-compatible chat completions service.
type Endpoint struct {
	Provider string
	BaseURL  string
	// KeyEnv names the environment variable users are told to set.
	KeyEnv  string
	Headers map[string]string
}

// Built-in hosted endpoints.
var (
	GroqEndpoint = Endpoint{
		Provider: ProviderGroq,
		BaseURL:  "https://api.groq.com/openai/v1",
		KeyEnv:   "GROQ_API_KEY",
	}
	OpenRouterEndpoint = Endpoint{
		Provider: ProviderOpenRouter,
		BaseURL:  "https://openrouter.ai/api/v1",
		KeyEnv:   "OPENROUTER_API_KEY",
		Headers: map[string]string{
			"HTTP-Referer": "https://github.com/KaramelBytes/vesselvision-cli",
			"X-Title":      "VesselVision CLI",
		},
	}
)

// RetryConfig controls HTTP timeout and retry/backoff behavior.
type RetryConfig struct {
	HTTPTimeout time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig is used for hosted endpoints.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{HTTPTimeout: 60 * time.Second, MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
}

func (r RetryConfig) withDefaults(def RetryConfig) RetryConfig {
	if r.HTTPTimeout <= 0 {
		r.HTTPTimeout = def.HTTPTimeout
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = def.MaxAttempts
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = def.BaseDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = def.MaxDelay
	}
	return r
}

// Client talks to an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	endpoint   Endpoint
	retry      RetryConfig
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// Text returns the first choice's content, or "" when there is none.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

// NewClient builds a client for ep. Zero RetryConfig fields take defaults.
func NewClient(ep Endpoint, apiKey string, rc RetryConfig) *Client {
	rc = rc.withDefaults(DefaultRetryConfig())
	ep.BaseURL = strings.TrimRight(ep.BaseURL, "/")
	return &Client{
		httpClient: &http.Client{Timeout: rc.HTTPTimeout},
		apiKey:     apiKey,
		endpoint:   ep,
		retry:      rc,
	}
}

// Endpoint returns the endpoint the client targets.
func (c *Client) Endpoint() Endpoint { return c.endpoint }

func (c *Client) ValidateModel(model string) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.endpoint.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func (c *Client) checkKey() error {
	if c.apiKey == "" {
		return &MissingKeyError{Provider: c.endpoint.Provider, Env: c.endpoint.KeyEnv}
	}
	return nil
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := c.checkKey(); err != nil {
		return nil, err
	}
	if err := c.ValidateModel(req.Model); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	log := zap.L().With(zap.String("provider", c.endpoint.Provider), zap.String("model", req.Model))
	backoff := c.retry.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		httpReq, err := c.newRequest(ctx, payload)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if isRetryableNetErr(err) && attempt < c.retry.MaxAttempts {
				log.Debug("retrying after network error", zap.Int("attempt", attempt), zap.Error(err))
				lastErr = err
				if err := sleepCtx(ctx, c.capped(withJitter(backoff))); err != nil {
					return nil, err
				}
				backoff *= 2
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &UnreachableError{Host: c.endpoint.BaseURL, Err: err}
		}

		out, wait, err := c.handle(resp)
		if err == nil {
			log.Debug("completion received", zap.String("request_id", out.RequestID), zap.Int("total_tokens", out.Usage.TotalTokens))
			return out, nil
		}
		lastErr = err
		if wait < 0 || attempt == c.retry.MaxAttempts {
			break
		}
		if wait == 0 {
			wait = c.capped(withJitter(backoff))
			backoff *= 2
		}
		log.Debug("retrying after provider error", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) capped(d time.Duration) time.Duration {
	if c.retry.MaxDelay > 0 && d > c.retry.MaxDelay {
		return c.retry.MaxDelay
	}
	return d
}

// handle consumes one response. wait is negative when the error is final,
// zero for the standard backoff, positive when the server asked for a delay.
func (c *Client) handle(resp *http.Response) (*GenerateResponse, time.Duration, error) {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := retryAfter(resp); ra > 0 {
				return nil, ra, &RateLimitError{APIError: apiErr, RetryAfter: ra}
			}
			return nil, 0, classifyAPIError(apiErr, resp)
		}
		return nil, -1, classifyAPIError(apiErr, resp)
	}
	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, -1, fmt.Errorf("decode response: %w", err)
	}
	out.RequestID = extractRequestID(resp)
	return &out, 0, nil
}

// decodeAPIError reads an error body in either {"error":{...}} or flat form.
func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	src := raw
	if v, ok := raw["error"].(map[string]any); ok {
		src = v
	} else if s, ok := raw["error"].(string); ok {
		apiErr.Message = s
	}
	if msg, ok := src["message"].(string); ok && apiErr.Message == "" {
		apiErr.Message = msg
	}
	if code, ok := src["code"].(string); ok {
		apiErr.Code = code
	}
	return apiErr
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, io.EOF)
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := parseRetryAfterSeconds(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// parseRetryAfterSeconds interprets a Retry-After value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// classifyAPIError maps a generic APIError to typed errors.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	msg := apiErr.Message
	code := apiErr.Code
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr, RetryAfter: retryAfter(resp)}
	case sc == http.StatusNotFound:
		if code == "model_not_found" || containsAllFold(msg, "model", "not", "found") || containsAllFold(msg, "model", "does not exist") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	case code == "model_decommissioned" || code == "model_not_found":
		return &ModelNotFoundError{APIError: apiErr}
	case sc == http.StatusBadRequest || sc == http.StatusRequestEntityTooLarge:
		return &BadRequestError{APIError: apiErr}
	case code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing", "limit exceeded"):
		return &QuotaExceededError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func containsAllFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if !containsFold(s, sub) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	if s == "" || sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "X-Groq-Id", "OpenAI-Request-ID", "Openrouter-Request-ID", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GenerateStream streams content using the SSE-compatible stream.
// onDelta is called for each partial content chunk.
func (c *Client) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	if err := c.checkKey(); err != nil {
		return err
	}
	if err := c.ValidateModel(req.Model); err != nil {
		return err
	}
	payload := map[string]any{
		"model":    req.Model,
		"messages": req.Messages,
		"stream":   true,
	}
	if req.MaxTokens > 0 {
		payload["max_tokens"] = req.MaxTokens
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := c.newRequest(ctx, b)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &UnreachableError{Host: c.endpoint.BaseURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyAPIError(decodeAPIError(resp), resp)
	}
	type streamDelta struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var d streamDelta
		if err := json.Unmarshal([]byte(data), &d); err == nil && len(d.Choices) > 0 {
			onDelta(d.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read: %w", err)
	}
	return nil
}
