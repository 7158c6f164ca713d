// Package assistant turns a noon report table and a question into a chat
// completion request and returns the model's answer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	"github.com/KaramelBytes/vesselvision-cli/internal/table"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

// NoDataMessage is what users see when a question is asked against an empty table.
const NoDataMessage = "⚠️ No data found in the uploaded noon reports."

var (
	// ErrNoData is returned when the table has no rows; no request is sent.
	ErrNoData = errors.New("no data found in the uploaded noon reports")
	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("please enter a question")
	// ErrEmptyAnswer is returned when the provider responds without choices.
	ErrEmptyAnswer = errors.New("model returned no answer")
)

// Answer is one completed exchange.
type Answer struct {
	Question  string        `json:"question"`
	Text      string        `json:"answer"`
	Model     string        `json:"model"`
	Usage     ai.Usage      `json:"usage"`
	RequestID string        `json:"request_id,omitempty"`
	Prompt    string        `json:"-"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Assistant sends noon report questions to a runtime.
type Assistant struct {
	rt          ai.Runtime
	Model       string
	MaxTokens   int
	Temperature float64
	Limits      Limits
}

// New returns an Assistant for rt using the default model and limits.
func New(rt ai.Runtime) *Assistant {
	return &Assistant{rt: rt, Model: ai.DefaultModel, Limits: DefaultLimits()}
}

// Request builds the chat request for question without sending it.
func (a *Assistant) Request(t *table.CleanTable, question string) (ai.GenerateRequest, error) {
	if strings.TrimSpace(question) == "" {
		return ai.GenerateRequest{}, ErrEmptyQuestion
	}
	if t.Empty() {
		return ai.GenerateRequest{}, ErrNoData
	}
	return ai.GenerateRequest{
		Model: a.Model,
		Messages: []ai.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildPrompt(t, question, a.Limits)},
		},
		MaxTokens:   a.MaxTokens,
		Temperature: a.Temperature,
	}, nil
}

// Ask sends question about t and waits for the full answer.
func (a *Assistant) Ask(ctx context.Context, t *table.CleanTable, question string) (*Answer, error) {
	req, err := a.Request(t, question)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := a.rt.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyAnswer
	}
	ans := a.answer(req, question, resp.Text(), start)
	ans.Usage = resp.Usage
	ans.RequestID = resp.RequestID
	zap.L().Debug("answer received", zap.String("model", req.Model), zap.Duration("elapsed", ans.Elapsed), zap.Int("total_tokens", resp.Usage.TotalTokens))
	return ans, nil
}

// AskStream is Ask with incremental output. Runtimes without streaming
// support fall back to a single onDelta call with the full text.
func (a *Assistant) AskStream(ctx context.Context, t *table.CleanTable, question string, onDelta func(string)) (*Answer, error) {
	sr, ok := a.rt.(ai.StreamRuntime)
	if !ok {
		ans, err := a.Ask(ctx, t, question)
		if err != nil {
			return nil, err
		}
		onDelta(ans.Text)
		return ans, nil
	}
	req, err := a.Request(t, question)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	var b strings.Builder
	err = sr.GenerateStream(ctx, req, func(d string) {
		b.WriteString(d)
		onDelta(d)
	})
	if err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}
	if b.Len() == 0 {
		return nil, ErrEmptyAnswer
	}
	ans := a.answer(req, question, b.String(), start)
	ans.Usage = ai.Usage{PromptTokens: utils.CountTokens(req.Messages[1].Content), CompletionTokens: utils.CountTokens(ans.Text)}
	ans.Usage.TotalTokens = ans.Usage.PromptTokens + ans.Usage.CompletionTokens
	return ans, nil
}

func (a *Assistant) answer(req ai.GenerateRequest, question, text string, start time.Time) *Answer {
	return &Answer{
		Question: strings.TrimSpace(question),
		Text:     text,
		Model:    req.Model,
		Prompt:   req.Messages[len(req.Messages)-1].Content,
		Elapsed:  time.Since(start),
	}
}
