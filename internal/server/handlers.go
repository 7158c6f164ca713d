package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/KaramelBytes/vesselvision-cli/internal/ai"
	"github.com/KaramelBytes/vesselvision-cli/internal/assistant"
	"github.com/KaramelBytes/vesselvision-cli/internal/chart"
	"github.com/KaramelBytes/vesselvision-cli/internal/parser"
	"github.com/KaramelBytes/vesselvision-cli/internal/report"
	"github.com/KaramelBytes/vesselvision-cli/internal/table"
)

// FilesField is the multipart field carrying noon report uploads.
const FilesField = "files"

type errorBody struct {
	Error string `json:"error"`
}

type fileReport struct {
	Name   string        `json:"name"`
	Result *table.Result `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type columnInfo struct {
	Name string     `json:"name"`
	Kind table.Kind `json:"kind"`
}

type tableBody struct {
	Columns []columnInfo     `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Files   []fileReport     `json:"files"`
}

type askBody struct {
	*assistant.Answer
	Files []fileReport `json:"files"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// loadUploads parses the multipart form and normalizes every uploaded file.
// An unreadable upload is reported and contributes an empty table.
func (s *Server) loadUploads(w http.ResponseWriter, r *http.Request) (*table.CleanTable, []fileReport, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d MB", s.opt.MaxUpload>>20))
			return nil, nil, false
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form with noon report files")
		return nil, nil, false
	}
	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File[FilesField]
	}
	parts := make([]*table.CleanTable, 0, len(headers))
	reports := make([]fileReport, 0, len(headers))
	for _, h := range headers {
		ct, res, err := s.normalizeUpload(h)
		if err != nil {
			s.log.Warn("upload unreadable", zap.String("file", h.Filename), zap.Error(err))
			reports = append(reports, fileReport{Name: h.Filename, Error: err.Error()})
			continue
		}
		parts = append(parts, ct)
		reports = append(reports, fileReport{Name: h.Filename, Result: res})
	}
	return table.Concat(parts...), reports, true
}

func (s *Server) normalizeUpload(h *multipart.FileHeader) (*table.CleanTable, *table.Result, error) {
	if !parser.Supported(h.Filename) {
		return nil, nil, table.Unreadable(h.Filename, fmt.Errorf("%w: %q", parser.ErrUnsupported, filepath.Ext(h.Filename)))
	}
	f, err := h.Open()
	if err != nil {
		return nil, nil, table.Unreadable(h.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, table.Unreadable(h.Filename, err)
	}
	ct, res, err := table.Normalize(parser.FromBytes(h.Filename, data), s.opt.Normalize)
	if err == nil {
		s.log.Debug("normalized upload",
			zap.String("file", h.Filename),
			zap.Int("header_row", res.HeaderRow),
			zap.Bool("fallback", res.Fallback),
			zap.Strings("dropped_columns", res.DroppedColumns),
		)
	}
	return ct, res, err
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	ct, reports, ok := s.loadUploads(w, r)
	if !ok {
		return
	}
	body := tableBody{Columns: make([]columnInfo, 0, ct.NumCols()), Rows: ct.Records(), Files: reports}
	for _, c := range ct.Columns {
		body.Columns = append(body.Columns, columnInfo{Name: c.Name, Kind: c.Kind})
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.asst == nil {
		writeError(w, http.StatusServiceUnavailable, "no model runtime configured")
		return
	}
	ct, reports, ok := s.loadUploads(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if s.opt.AskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opt.AskTimeout)
		defer cancel()
	}
	ans, err := s.asst.Ask(ctx, ct, r.FormValue("question"))
	if err != nil {
		writeError(w, askStatus(err), assistant.Hint(err, s.opt.Provider, s.asst.Model))
		return
	}
	writeJSON(w, http.StatusOK, askBody{Answer: ans, Files: reports})
}

func askStatus(err error) int {
	var rl *ai.RateLimitError
	switch {
	case errors.Is(err, assistant.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, assistant.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rl):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	ct, _, ok := s.loadUploads(w, r)
	if !ok {
		return
	}
	kind, err := chart.ParseKind(r.FormValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	avg, _ := strconv.ParseBool(r.FormValue("avg"))
	spec := chart.Spec{Kind: kind, X: r.FormValue("x"), Y: r.FormValue("y"), Average: avg}
	var buf bytes.Buffer
	if err := chart.Render(&buf, ct, spec); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chart.ErrMissingColumn) || errors.Is(err, chart.ErrNoData) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUpload)
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, r.FormValue("text"), report.Options{}); err != nil {
		if errors.Is(err, report.ErrEmptySummary) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="summary.pdf"`)
	_, _ = w.Write(buf.Bytes())
}
