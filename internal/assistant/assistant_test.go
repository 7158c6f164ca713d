package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

type fakeRuntime struct {
	got  ai.GenerateRequest
	resp *ai.GenerateResponse
	err  error
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.got = req
	return f.resp, f.err
}

type fakeStreamer struct {
	fakeRuntime
	deltas []string
}

func (f *fakeStreamer) GenerateStream(_ context.Context, req ai.GenerateRequest, onDelta func(string)) error {
	f.got = req
	for _, d := range f.deltas {
		onDelta(d)
	}
	return f.err
}

func noon() *table.CleanTable {
	return &table.CleanTable{Columns: []*table.Column{
		{Name: "Date", Kind: table.KindText, Text: []string{"2024-01-01", "2024-01-02"}},
		{Name: "RPM", Kind: table.KindNumeric, Nums: []float64{80, 82}},
		{Name: "Fuel", Kind: table.KindNumeric, Nums: []float64{12.5, 13}},
	}}
}

func TestAskSendsTemplate(t *testing.T) {
	rt := &fakeRuntime{resp: &ai.GenerateResponse{
		Choices:   []ai.Choice{{Message: ai.Message{Role: "assistant", Content: "Fuel rose 4%."}}},
		Usage:     ai.Usage{TotalTokens: 42},
		RequestID: "req_1",
	}}
	a := New(rt)
	ans, err := a.Ask(context.Background(), noon(), "  Why did fuel increase last week? ")
	require.NoError(t, err)

	assert.Equal(t, "Fuel rose 4%.", ans.Text)
	assert.Equal(t, "Why did fuel increase last week?", ans.Question)
	assert.Equal(t, ai.DefaultModel, ans.Model)
	assert.Equal(t, 42, ans.Usage.TotalTokens)
	assert.Equal(t, "req_1", ans.RequestID)

	require.Len(t, rt.got.Messages, 2)
	assert.Equal(t, ai.Message{Role: "system", Content: SystemPrompt}, rt.got.Messages[0])
	user := rt.got.Messages[1].Content
	assert.True(t, strings.HasPrefix(user, "You are a marine performance analyst AI.\n\n"))
	assert.Contains(t, user, "--- NOON REPORT DATA ---\n")
	assert.Contains(t, user, "QUERY: Why did fuel increase last week?")
	assert.Contains(t, user, "2024-01-02  82   13")
}

func TestAskEmptyTable(t *testing.T) {
	rt := &fakeRuntime{}
	_, err := New(rt).Ask(context.Background(), &table.CleanTable{}, "What anomalies do you see?")
	assert.ErrorIs(t, err, ErrNoData)
	assert.Empty(t, rt.got.Model, "no request should be sent")
	assert.Equal(t, NoDataMessage, Hint(err, "groq", ai.DefaultModel))
}

func TestAskBlankQuestion(t *testing.T) {
	_, err := New(&fakeRuntime{}).Ask(context.Background(), noon(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAskPropagatesTypedErrors(t *testing.T) {
	authErr := &ai.AuthError{APIError: &ai.APIError{StatusCode: 401}}
	_, err := New(&fakeRuntime{err: authErr}).Ask(context.Background(), noon(), "q")
	var ae *ai.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, Hint(err, "groq", ai.DefaultModel), "Authentication failed")
}

func TestAskNoChoices(t *testing.T) {
	_, err := New(&fakeRuntime{resp: &ai.GenerateResponse{}}).Ask(context.Background(), noon(), "q")
	assert.ErrorIs(t, err, ErrEmptyAnswer)
}

func TestAskStream(t *testing.T) {
	rt := &fakeStreamer{deltas: []string{"RPM ", "is stable."}}
	var got strings.Builder
	ans, err := New(rt).AskStream(context.Background(), noon(), "Suggest RPM improvements", func(d string) { got.WriteString(d) })
	require.NoError(t, err)
	assert.Equal(t, "RPM is stable.", ans.Text)
	assert.Equal(t, "RPM is stable.", got.String())
	assert.Positive(t, ans.Usage.TotalTokens)
}

func TestAskStreamFallsBack(t *testing.T) {
	rt := &fakeRuntime{resp: &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Content: "done"}}}}}
	var got string
	ans, err := New(rt).AskStream(context.Background(), noon(), "q", func(d string) { got += d })
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, "done", ans.Text)
}

func TestHint(t *testing.T) {
	cases := []struct {
		err      error
		provider string
		want     string
	}{
		{&ai.MissingKeyError{Provider: "groq", Env: "GROQ_API_KEY"}, "groq", "GROQ_API_KEY"},
		{&ai.UnreachableError{Host: "http://127.0.0.1:11434", Err: errors.New("refused")}, "ollama", "Ollama not reachable"},
		{&ai.UnreachableError{Err: errors.New("dns")}, "groq", "Could not reach"},
		{&ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}, RetryAfter: 3 * time.Second}, "groq", "about 3s"},
		{&ai.ModelNotFoundError{APIError: &ai.APIError{StatusCode: 404}}, "ollama", "ollama pull"},
		{&ai.ServerError{APIError: &ai.APIError{StatusCode: 503}}, "groq", "server error"},
		{context.DeadlineExceeded, "groq", "too long"},
		{errors.New("boom"), "groq", "boom"},
	}
	for _, c := range cases {
		assert.Contains(t, Hint(c.err, c.provider, "llama3:latest"), c.want)
	}
	assert.Empty(t, Hint(nil, "", ""))
}
