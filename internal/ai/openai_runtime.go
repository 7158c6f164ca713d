package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// SDKClient runs completions through the official OpenAI Go SDK. It targets
// api.openai.com unless a base URL is set, which also makes it usable against
// any OpenAI-compatible gateway.
type SDKClient struct {
	client  openai.Client
	hasKey  bool
	baseURL string
}

// NewSDKClient builds an SDK-backed runtime. Retries are delegated to the SDK.
func NewSDKClient(apiKey, baseURL string, rc RetryConfig) *SDKClient {
	rc = rc.withDefaults(DefaultRetryConfig())
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(rc.MaxAttempts - 1),
		option.WithRequestTimeout(rc.HTTPTimeout),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &SDKClient{client: openai.NewClient(opts...), hasKey: apiKey != "", baseURL: baseURL}
}

func (c *SDKClient) params(req GenerateRequest) (openai.ChatCompletionNewParams, error) {
	if !c.hasKey {
		return openai.ChatCompletionNewParams{}, &MissingKeyError{Provider: ProviderOpenAI, Env: "OPENAI_API_KEY"}
	}
	if req.Model == "" {
		return openai.ChatCompletionNewParams{}, errors.New("model cannot be empty")
	}
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	p := openai.ChatCompletionNewParams{Messages: msgs, Model: openai.ChatModel(req.Model)}
	if req.MaxTokens > 0 {
		p.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		p.Temperature = openai.Float(req.Temperature)
	}
	return p, nil
}

func (c *SDKClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	p, err := c.params(req)
	if err != nil {
		return nil, err
	}
	chat, err := c.client.Chat.Completions.New(ctx, p)
	if err != nil {
		return nil, c.mapError(err)
	}
	out := &GenerateResponse{
		ID: chat.ID,
		Usage: Usage{
			PromptTokens:     int(chat.Usage.PromptTokens),
			CompletionTokens: int(chat.Usage.CompletionTokens),
			TotalTokens:      int(chat.Usage.TotalTokens),
		},
		RequestID: chat.ID,
	}
	for _, ch := range chat.Choices {
		out.Choices = append(out.Choices, Choice{Message: Message{Role: "assistant", Content: ch.Message.Content}})
	}
	return out, nil
}

func (c *SDKClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	p, err := c.params(req)
	if err != nil {
		return err
	}
	stream := c.client.Chat.Completions.NewStreaming(ctx, p)
	defer stream.Close()
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			onDelta(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return c.mapError(err)
	}
	return nil
}

// mapError converts SDK errors into this package's typed errors.
func (c *SDKClient) mapError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		ae := &APIError{StatusCode: apierr.StatusCode, Code: apierr.Code, Message: apierr.Message}
		resp := apierr.Response
		if resp == nil {
			resp = &http.Response{Header: http.Header{}}
		}
		ae.RequestID = extractRequestID(resp)
		return classifyAPIError(ae, resp)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	host := c.baseURL
	if host == "" {
		host = "https://api.openai.com/v1"
	}
	return &UnreachableError{Host: host, Err: err}
}
