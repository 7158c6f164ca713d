package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	"github.com/KaramelBytes/vesselvision-cli/internal/assistant"
	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

const noonCSV = "MV Aurora noon reports\n\nVesselName,Date,RPM,Fuel\nAurora,2024-01-01,80,12.5\nAurora,2024-01-02,82,13\n"

type stubRuntime struct {
	text string
	err  error
	got  ai.GenerateRequest
}

func (s *stubRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: s.text}}}}, nil
}

type upload struct{ name, body string }

func form(t *testing.T, files []upload, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		w, err := mw.CreateFormFile(FilesField, f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func post(t *testing.T, h http.Handler, path string, files []upload, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := form(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Error
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	New(nil, Options{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTablesReportsUnreadableUploads(t *testing.T) {
	h := New(nil, Options{Normalize: table.DefaultOptions()}).Handler()
	rec := post(t, h, "/api/tables", []upload{
		{"jan.csv", noonCSV},
		{"broken.xlsx", "not a workbook"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Columns []struct{ Name, Kind string }
		Rows    []map[string]any
		Files   []struct {
			Name   string
			Result *table.Result
			Error  string
		}
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Columns, 4)
	assert.Equal(t, "RPM", body.Columns[2].Name)
	assert.Equal(t, "numeric", body.Columns[2].Kind)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, 82.0, body.Rows[1]["RPM"])
	require.Len(t, body.Files, 2)
	assert.Equal(t, 1, body.Files[0].Result.HeaderRow, "blank lines are skipped by the csv reader")
	assert.Contains(t, body.Files[1].Error, "broken.xlsx")
}

func TestTablesReportsUnsupportedExtension(t *testing.T) {
	h := New(nil, Options{Normalize: table.DefaultOptions()}).Handler()
	rec := post(t, h, "/api/tables", []upload{
		{"jan.csv", noonCSV},
		{"notes.txt", "Aurora,80\n"},
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Files []struct {
			Name  string
			Error string
		}
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Files, 2)
	assert.Empty(t, body.Files[0].Error)
	assert.Contains(t, body.Files[1].Error, "unsupported file format")
	assert.Contains(t, body.Files[1].Error, `".txt"`)
}

func TestTablesRejectsNonMultipart(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tables", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	New(nil, Options{}).Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTablesUploadTooLarge(t *testing.T) {
	h := New(nil, Options{MaxUpload: 64}).Handler()
	rec := post(t, h, "/api/tables", []upload{{"big.csv", strings.Repeat("a,b,c\n", 200)}}, nil)
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
}

func TestAsk(t *testing.T) {
	rt := &stubRuntime{text: "Fuel rose with RPM."}
	h := New(assistant.New(rt), Options{}).Handler()
	rec := post(t, h, "/api/ask", []upload{{"jan.csv", noonCSV}}, map[string]string{"question": "What anomalies do you see?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Question string
		Answer   string
		Model    string
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Fuel rose with RPM.", body.Answer)
	assert.Equal(t, "What anomalies do you see?", body.Question)
	assert.Equal(t, ai.DefaultModel, body.Model)
	assert.Contains(t, rt.got.Messages[1].Content, "Aurora")
}

func TestAskErrors(t *testing.T) {
	auth := &ai.AuthError{APIError: &ai.APIError{StatusCode: 401}}
	cases := []struct {
		name     string
		rt       *stubRuntime
		files    []upload
		question string
		status   int
		msg      string
	}{
		{"no data", &stubRuntime{}, nil, "q", http.StatusUnprocessableEntity, assistant.NoDataMessage},
		{"unreadable only", &stubRuntime{}, []upload{{"x.pdf", "%PDF"}}, "q", http.StatusUnprocessableEntity, assistant.NoDataMessage},
		{"blank question", &stubRuntime{}, []upload{{"jan.csv", noonCSV}}, " ", http.StatusBadRequest, "question"},
		{"auth", &stubRuntime{err: auth}, []upload{{"jan.csv", noonCSV}}, "q", http.StatusBadGateway, "Authentication failed"},
		{"rate limit", &stubRuntime{err: &ai.RateLimitError{APIError: &ai.APIError{StatusCode: 429}}}, []upload{{"jan.csv", noonCSV}}, "q", http.StatusTooManyRequests, "Rate limited"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := New(assistant.New(c.rt), Options{}).Handler()
			rec := post(t, h, "/api/ask", c.files, map[string]string{"question": c.question})
			assert.Equal(t, c.status, rec.Code)
			assert.Contains(t, decodeError(t, rec), c.msg)
		})
	}
}

func TestAskWithoutRuntime(t *testing.T) {
	rec := post(t, New(nil, Options{}).Handler(), "/api/ask", []upload{{"jan.csv", noonCSV}}, map[string]string{"question": "q"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChart(t *testing.T) {
	h := New(nil, Options{}).Handler()
	rec := post(t, h, "/api/charts", []upload{{"jan.csv", noonCSV}}, map[string]string{"x": "Date", "y": "Fuel", "kind": "bar", "avg": "true"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Bar Chart: Fuel vs Date")

	rec = post(t, h, "/api/charts", []upload{{"jan.csv", noonCSV}}, map[string]string{"x": "Date", "y": "Fuel", "kind": "radar"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = post(t, h, "/api/charts", []upload{{"jan.csv", noonCSV}}, map[string]string{"x": "Date", "y": "Speed", "kind": "line"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "Speed")
}

func TestSummaryPDF(t *testing.T) {
	h := New(nil, Options{}).Handler()
	rec := post(t, h, "/api/summary.pdf", nil, map[string]string{"text": "Fuel rose 6%.\n\nRPM steady."})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = post(t, h, "/api/summary.pdf", nil, map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(nil, Options{}).ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
