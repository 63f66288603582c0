package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/dqguard-cli/internal/analysis"
	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/export"
	"github.com/KaramelBytes/dqguard-cli/internal/pipeline"
	"github.com/KaramelBytes/dqguard-cli/internal/rules"
)

// badRequest marks client input errors.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func invalid(format string, args ...any) error {
	return &badRequest{err: fmt.Errorf(format, args...)}
}

func statusFor(err error) int {
	var br *badRequest
	var tooBig *http.MaxBytesError
	var readErr *dataset.ReadError
	var fmtErr *dataset.UnsupportedFormatError
	var kindErr *rules.UnknownKindError
	var dialErr *export.UnknownDialectError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &readErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &br), errors.As(err, &fmtErr), errors.As(err, &kindErr), errors.As(err, &dialErr),
		errors.Is(err, anomaly.ErrInvalidContamination):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v before committing the status so an unencodable
// payload becomes a 500 instead of an empty success.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.log.Error("encode response", "error", err)
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.Warn("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// readUpload parses the multipart form and loads the "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, error) {
	limit := s.opt.MaxUpload
	if r.ContentLength > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, err
		}
		return nil, invalid("parse upload: %w", err)
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil, invalid("missing file field: %w", err)
	}
	defer file.Close()

	start := time.Now()
	ds, err := dataset.Read(file, hdr.Filename, s.opt.Load)
	if err != nil {
		var fmtErr *dataset.UnsupportedFormatError
		if errors.As(err, &fmtErr) {
			return nil, err
		}
		var readErr *dataset.ReadError
		if !errors.As(err, &readErr) {
			err = &dataset.ReadError{Path: hdr.Filename, Err: err}
		}
		return nil, err
	}
	observeStage("load", start)
	rowsProcessed.Add(float64(ds.Rows()))
	return ds, nil
}

// formRules decodes the optional "rules" field. ok is false when absent.
func formRules(r *http.Request) ([]rules.Rule, bool, error) {
	raw := strings.TrimSpace(r.FormValue("rules"))
	if raw == "" {
		return nil, false, nil
	}
	rs, err := rules.Decode(strings.NewReader(raw))
	if err != nil {
		return nil, false, &badRequest{err: err}
	}
	return rs, true, nil
}

func (s *Server) anomalyOptions(r *http.Request) (anomaly.Options, error) {
	opt := s.opt.Anomaly
	if v := strings.TrimSpace(r.FormValue("contamination")); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opt, invalid("invalid contamination %q", v)
		}
		opt.Contamination = c
	}
	return opt, nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ds, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	prof := analysis.Profile(ds)
	observeStage("profile", start)
	s.writeJSON(w, http.StatusOK, map[string]any{"info": dataset.Describe(ds), "profile": prof})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ds, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rs := rules.Suggest(analysis.Profile(ds))
	if rs == nil {
		rs = []rules.Rule{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"rules": rs})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ds, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rs, ok, err := formRules(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		rs = rules.Suggest(analysis.Profile(ds))
	}
	limit := s.opt.PreviewRows
	if v := strings.TrimSpace(r.FormValue("rows")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, invalid("invalid rows %q", v))
			return
		}
		limit = n
	}
	start := time.Now()
	res := rules.Preview(ds, rs)
	observeStage("preview", start)

	n := min(limit, res.Data.Rows())
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		cells := res.Data.Row(i)
		rows[i] = make([]string, len(cells))
		for j, v := range cells {
			rows[i][j] = dataset.Format(v)
		}
	}
	notes := res.Notes
	if notes == nil {
		notes = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"notes":      notes,
		"columns":    res.Data.Header(),
		"rows":       rows,
		"total_rows": res.Data.Rows(),
	})
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	ds, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opt, err := s.anomalyOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := pipeline.Run(ds, nil, opt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	observeElapsed("anomalies", res.Elapsed)
	rowsFlagged.Add(float64(len(res.Anomalies.Flagged)))
	s.record(r, ds.Name, "serve:anomalies", res)

	scores, flagged := res.Anomalies.Scores, res.Anomalies.Flagged
	if scores == nil {
		scores = []anomaly.RowScore{}
	}
	if flagged == nil {
		flagged = []anomaly.FlaggedRow{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"columns": res.Anomalies.Columns,
		"scores":  scores,
		"flagged": flagged,
		"health":  res.Health,
	})
}

type sqlRequest struct {
	Table   string          `json:"table"`
	Dialect string          `json:"dialect"`
	Rules   json.RawMessage `json:"rules"`
	// Columns, when present, limits the script to rules on these columns.
	Columns []string `json:"columns,omitempty"`
}

func (s *Server) handleExportSQL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUpload)
	var req sqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, err)
			return
		}
		s.writeError(w, r, invalid("parse request: %w", err))
		return
	}
	table := strings.TrimSpace(req.Table)
	if table == "" {
		table = s.opt.TableName
	}
	dialect := s.opt.Dialect
	if req.Dialect != "" {
		d, err := export.ParseDialect(req.Dialect)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		dialect = d
	}
	var rs []rules.Rule
	if len(req.Rules) > 0 && string(req.Rules) != "null" {
		decoded, err := rules.Decode(bytes.NewReader(req.Rules))
		if err != nil {
			s.writeError(w, r, &badRequest{err: err})
			return
		}
		rs = decoded
	}
	s.writeText(w, "text/plain; charset=utf-8", export.SQLScript(table, rs, dialect, req.Columns)+"\n")
}

func (s *Server) handleExportSuite(w http.ResponseWriter, r *http.Request) {
	ds, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rs, ok, err := formRules(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	prof := analysis.Profile(ds)
	if !ok {
		rs = rules.Suggest(prof)
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = s.opt.SuiteName
	}
	s.writeJSON(w, http.StatusOK, export.BuildSuite(prof, rs, name))
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	ds, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rs, _, err := formRules(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opt, err := s.anomalyOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := pipeline.Run(ds, rs, opt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	observeElapsed("report", res.Elapsed)
	s.record(r, ds.Name, "serve:report", res)
	s.writeText(w, "text/markdown; charset=utf-8", res.Report)
}

func (s *Server) record(r *http.Request, file, command string, res *pipeline.Result) {
	if s.opt.History == nil {
		return
	}
	if err := s.opt.History.Record(r.Context(), res.HistoryRun(file, command)); err != nil {
		s.log.Warn("record history", "error", err)
	}
}
