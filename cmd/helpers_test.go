package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	"github.com/KaramelBytes/vesselvision-cli/internal/assistant"
	"github.com/KaramelBytes/vesselvision-cli/internal/chart"
	cfgpkg "github.com/KaramelBytes/vesselvision-cli/internal/config"
	"github.com/KaramelBytes/vesselvision-cli/internal/session"
	tbl "github.com/KaramelBytes/vesselvision-cli/internal/table"
)

type stubRuntime struct{}

func (stubRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return nil, nil
}

type stubStreamRuntime struct {
	called int
	err    error
}

func (s *stubStreamRuntime) Generate(context.Context, ai.GenerateRequest) (*ai.GenerateResponse, error) {
	return nil, nil
}

func (s *stubStreamRuntime) GenerateStream(ctx context.Context, req ai.GenerateRequest, onDelta func(string)) error {
	s.called++
	onDelta("chunk")
	return s.err
}

func sampleTable(t *testing.T) *tbl.CleanTable {
	t.Helper()
	rows := [][]string{
		{"Noon Report March"},
		{"Date", "VesselName", "Speed", "RPM"},
		{"2024-03-01", "Aurora", "12.5", "80"},
		{"2024-03-02", "Aurora", "13", "82"},
	}
	raw := &tbl.RawTable{}
	for _, r := range rows {
		cells := make([]tbl.Cell, len(r))
		for j, v := range r {
			cells[j] = tbl.ParseCell(v)
		}
		raw.Rows = append(raw.Rows, cells)
	}
	ct, _ := tbl.NormalizeRaw(raw, tbl.DefaultOptions())
	return ct
}

func TestSelectModelPrecedence(t *testing.T) {
	cfg := &cfgpkg.Global{DefaultModel: "cfg-model"}
	s := session.New("voyage", t.TempDir())
	s.Config.Model = "session-model"

	if got := selectModel(s, cfg, "cli-model"); got != "cli-model" {
		t.Fatalf("expected CLI model, got %q", got)
	}
	if got := selectModel(s, cfg, ""); got != "session-model" {
		t.Fatalf("expected session model, got %q", got)
	}
	s.Config.Model = ""
	if got := selectModel(s, cfg, ""); got != "cfg-model" {
		t.Fatalf("expected config model, got %q", got)
	}
	cfg.DefaultModel = ""
	if got := selectModel(s, cfg, ""); got != ai.DefaultModel {
		t.Fatalf("expected fallback model, got %q", got)
	}
	if got := selectModel(nil, nil, ""); got != ai.DefaultModel {
		t.Fatalf("expected fallback model without session, got %q", got)
	}
}

func TestEnforceBudget(t *testing.T) {
	if err := enforceBudget(0.0, 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := enforceBudget(0.5, 0); err != nil {
		t.Fatalf("no limit should never block: %v", err)
	}
	if err := enforceBudget(2.0, 1.0); err == nil {
		t.Fatal("expected error when cost exceeds budget")
	}
}

func TestProviderName(t *testing.T) {
	if got := providerName(nil, ""); got != ai.ProviderGroq {
		t.Fatalf("expected groq default, got %q", got)
	}
	if got := providerName(&cfgpkg.Global{DefaultProvider: "OpenRouter"}, ""); got != ai.ProviderOpenRouter {
		t.Fatalf("expected config provider, got %q", got)
	}
	if got := providerName(&cfgpkg.Global{DefaultProvider: "openrouter"}, "local"); got != ai.ProviderOllama {
		t.Fatalf("expected local to map to ollama, got %q", got)
	}
}

func TestBuildRuntime(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	rt, name, err := buildRuntime(&cfgpkg.Global{}, runtimeOptions{})
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	if name != ai.ProviderGroq || rt == nil {
		t.Fatalf("expected groq runtime, got %q %v", name, rt)
	}

	rt, name, err = buildRuntime(nil, runtimeOptions{ProviderFlag: "local", OllamaHost: "http://127.0.0.1:1"})
	if err != nil || name != ai.ProviderOllama || rt == nil {
		t.Fatalf("expected ollama runtime, got %q %v %v", name, rt, err)
	}

	if _, _, err := buildRuntime(nil, runtimeOptions{ProviderFlag: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRetryConfigOverrides(t *testing.T) {
	rc := retryConfig(&cfgpkg.Global{RetryMaxAttempts: 7, RetryBaseDelayMs: 10})
	if rc.MaxAttempts != 7 {
		t.Fatalf("expected 7 attempts, got %d", rc.MaxAttempts)
	}
	if rc.BaseDelay.Milliseconds() != 10 {
		t.Fatalf("expected 10ms base delay, got %v", rc.BaseDelay)
	}
}

func TestHandleStreamingHappyPath(t *testing.T) {
	runtime := &stubStreamRuntime{}
	buf := &bytes.Buffer{}
	delta := &bytes.Buffer{}

	ans, handled, err := handleStreaming(context.Background(), runtime, assistant.New(runtime), sampleTable(t), "Average speed?", streamingOptions{
		Enabled:     true,
		Writer:      buf,
		DeltaWriter: delta,
	})
	if err != nil {
		t.Fatalf("handleStreaming returned error: %v", err)
	}
	if !handled {
		t.Fatal("expected streaming to be handled")
	}
	if runtime.called != 1 {
		t.Fatalf("expected stream runtime to be invoked once, got %d", runtime.called)
	}
	if ans.Text != "chunk" {
		t.Fatalf("expected streamed answer, got %q", ans.Text)
	}
	if got := delta.String(); !strings.Contains(got, "chunk") {
		t.Fatalf("expected delta output, got %q", got)
	}
	if out := buf.String(); !strings.Contains(out, "(streaming)") {
		t.Fatalf("expected streaming log output, got %q", out)
	}
}

func TestHandleStreamingFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	_, handled, err := handleStreaming(context.Background(), stubRuntime{}, assistant.New(stubRuntime{}), sampleTable(t), "q", streamingOptions{
		Enabled: true,
		Writer:  buf,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handled {
		t.Fatal("expected fallback to non-streaming")
	}
	if out := buf.String(); !strings.Contains(out, "Streaming not supported") {
		t.Fatalf("expected fallback message, got %q", out)
	}
}

func TestHandleStreamingDisabled(t *testing.T) {
	runtime := &stubStreamRuntime{}
	_, handled, err := handleStreaming(context.Background(), runtime, assistant.New(runtime), sampleTable(t), "q", streamingOptions{})
	if err != nil || handled {
		t.Fatalf("expected no-op, got handled=%v err=%v", handled, err)
	}
	if runtime.called != 0 {
		t.Fatal("runtime should not be called when streaming is disabled")
	}
}

func TestHandleStreamingError(t *testing.T) {
	runtime := &stubStreamRuntime{err: errors.New("boom")}
	_, handled, err := handleStreaming(context.Background(), runtime, assistant.New(runtime), sampleTable(t), "q", streamingOptions{
		Enabled:     true,
		Quiet:       true,
		DeltaWriter: &bytes.Buffer{},
	})
	if !handled || err == nil {
		t.Fatalf("expected handled error, got handled=%v err=%v", handled, err)
	}
}

func TestFormatAndWriteOutputJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	ans := &assistant.Answer{Question: "Max speed?", Text: "13 knots", Model: "m"}
	if err := formatAndWriteOutput(ans, outputOptions{JSON: true, Session: "aurora", Writer: buf}); err != nil {
		t.Fatalf("formatAndWriteOutput: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if got["answer"] != "13 knots" || got["session"] != "aurora" {
		t.Fatalf("unexpected JSON: %v", got)
	}
}

func TestFormatAndWriteOutputFiles(t *testing.T) {
	dir := t.TempDir()
	ans := &assistant.Answer{Question: "q", Text: "Fuel use dropped 4%.\n\nSpeed held steady."}

	md := filepath.Join(dir, "out.md")
	buf := &bytes.Buffer{}
	if err := formatAndWriteOutput(ans, outputOptions{Raw: true, OutputPath: md, Writer: buf}); err != nil {
		t.Fatalf("write markdown: %v", err)
	}
	b, err := os.ReadFile(md)
	if err != nil || string(b) != ans.Text {
		t.Fatalf("unexpected markdown file: %q %v", b, err)
	}
	if !strings.Contains(buf.String(), "Saved output to") {
		t.Fatalf("expected save notice, got %q", buf.String())
	}

	pdf := filepath.Join(dir, "out.pdf")
	if err := formatAndWriteOutput(ans, outputOptions{Quiet: true, OutputPath: pdf, OutputFormat: "pdf", Writer: &bytes.Buffer{}}); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	b, err = os.ReadFile(pdf)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("expected a PDF file, err=%v", err)
	}

	if err := formatAndWriteOutput(ans, outputOptions{Quiet: true, OutputPath: pdf, OutputFormat: "docx", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestDescribeErrorKeepsCause(t *testing.T) {
	cause := &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}}
	err := describeError(cause, ai.ProviderGroq, ai.DefaultModel)
	var rl *ai.RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected wrapped RateLimitError, got %v", err)
	}
	if !strings.Contains(err.Error(), "detail:") {
		t.Fatalf("expected detail line, got %q", err.Error())
	}
}

func TestPreviewTable(t *testing.T) {
	out := previewTable(sampleTable(t), 1)
	for _, want := range []string{"Date", "VesselName", "2024-03-01", "12.5"} {
		if !strings.Contains(out, want) {
			t.Fatalf("preview missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "2024-03-02") {
		t.Fatalf("preview should hold one row:\n%s", out)
	}
}

func TestChartFileName(t *testing.T) {
	got := chartFileName(chart.Spec{Kind: chart.Bar, X: "Date", Y: "Fuel Consumption", Average: true})
	if got != "bar_Fuel_Consumption_vs_Date_avg.html" {
		t.Fatalf("unexpected file name %q", got)
	}
}
