package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/dqguard-cli/internal/anomaly"
	"github.com/KaramelBytes/dqguard-cli/internal/dataset"
	"github.com/KaramelBytes/dqguard-cli/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customersCSV = "CustomerID,Email,Age,Country\n1,a@x.com,10,USA\n2,,20,USA\n2,b@x.com,30,India\n"

const outlierCSV = "x,y\n1,10\n2,11\n3,9\n4,10\n5,12\n100,10\n"

func newTestServer(t *testing.T, mut ...func(*Options)) *Server {
	t.Helper()
	opt := Options{
		Anomaly:   anomaly.DefaultOptions(),
		Load:      dataset.DefaultOptions(),
		SuiteName: "test_suite",
		TableName: "my_table",
	}
	for _, m := range mut {
		m(&opt)
	}
	return New(opt)
}

func upload(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = do(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dqguard_http_requests_total")
}

func TestProfileEndpoint(t *testing.T) {
	rec := do(newTestServer(t), upload(t, "/api/profile", "customers.csv", customersCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	info := out["info"].(map[string]any)
	assert.Equal(t, 3.0, info["rows"])
	prof := out["profile"].(map[string]any)
	assert.Equal(t, 4.0, prof["n_cols"])
	cols := prof["columns"].(map[string]any)
	assert.Contains(t, cols, "Email")
}

func TestSuggestEndpoint(t *testing.T) {
	rec := do(newTestServer(t), upload(t, "/api/suggest", "customers.csv", customersCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rs := decode(t, rec)["rules"].([]any)
	assert.NotEmpty(t, rs)
	first := rs[0].(map[string]any)
	assert.Equal(t, "CustomerID", first["column"])
	assert.Equal(t, "not_null", first["rule"])
}

func TestPreviewEndpoint(t *testing.T) {
	req := upload(t, "/api/preview", "customers.csv", customersCSV, map[string]string{
		"rules": `[{"column":"CustomerID","rule":"dedupe_key"},{"column":"nope","rule":"not_null"}]`,
		"rows":  "1",
	})
	rec := do(newTestServer(t), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, []any{
		"Dropped 1 duplicate rows based on key CustomerID.",
		"Column 'nope' not in dataframe; skipping not_null.",
	}, out["notes"])
	assert.Len(t, out["rows"], 1)
	assert.Equal(t, 2.0, out["total_rows"])
	assert.Equal(t, []any{"CustomerID", "Email", "Age", "Country"}, out["columns"])
}

func TestPreviewRejectsBadRules(t *testing.T) {
	req := upload(t, "/api/preview", "customers.csv", customersCSV, map[string]string{
		"rules": `[{"column":"a","rule":"explode"}]`,
	})
	rec := do(newTestServer(t), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "unknown rule")
}

func TestAnomaliesEndpointRecordsHistory(t *testing.T) {
	store, err := history.Open(t.Context(), history.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "h.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s := newTestServer(t, func(o *Options) { o.History = store })
	rec := do(s, upload(t, "/api/anomalies", "xy.csv", outlierCSV, map[string]string{"contamination": "0.16"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Len(t, out["scores"], 6)
	flagged := out["flagged"].([]any)
	require.Len(t, flagged, 1)
	assert.Equal(t, 5.0, flagged[0].(map[string]any)["row"])
	assert.Contains(t, out, "health")

	runs, err := store.List(t.Context(), history.Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "xy.csv", runs[0].File)
	assert.Equal(t, 1, runs[0].Flagged)
}

func TestAnomaliesRejectsContamination(t *testing.T) {
	s := newTestServer(t)
	for _, c := range []string{"abc", "1.5"} {
		rec := do(s, upload(t, "/api/anomalies", "xy.csv", outlierCSV, map[string]string{"contamination": c}))
		assert.Equal(t, http.StatusBadRequest, rec.Code, c)
	}
}

func TestExportSQLEndpoint(t *testing.T) {
	s := newTestServer(t)
	body := `{"table":"orders","dialect":"mysql","rules":[{"column":"id","rule":"dedupe_key"}]}`
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/export/sql", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, rec.Body.String(), "PARTITION BY `id`")

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/export/sql", strings.NewReader(`{"table":"orders"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "-- Cleaning script for orders\nWITH src AS (SELECT * FROM orders)\nSELECT * FROM src;\n", rec.Body.String())

	body = `{"table":"orders","columns":["amount"],"rules":[{"column":"id","rule":"dedupe_key"}]}`
	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/export/sql", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "-- Column 'id' not in dataframe; skipping dedupe_key.")
	assert.NotContains(t, rec.Body.String(), "step_1")

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/export/sql", strings.NewReader(`{"dialect":"oracle"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, httptest.NewRequest(http.MethodPost, "/api/export/sql", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportSuiteAndReport(t *testing.T) {
	s := newTestServer(t)
	rec := do(s, upload(t, "/api/export/suite", "customers.csv", customersCSV, map[string]string{
		"rules": `[{"column":"Email","rule":"not_null"}]`,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	suite := decode(t, rec)
	assert.Equal(t, "test_suite", suite["expectation_suite_name"])
	assert.Len(t, suite["expectations"], 1)

	rec = do(s, upload(t, "/api/export/report", "customers.csv", customersCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, rec.Body.String(), "# Data Quality Report")
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.MaxUpload = 64 })

	rec := do(s, upload(t, "/api/profile", "big.csv", strings.Repeat("a,b\n", 100), nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	s = newTestServer(t)
	rec = do(s, upload(t, "/api/profile", "notes.pdf", "x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, upload(t, "/api/profile", "empty.csv", "", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/profile", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	rec = do(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileEndpointWithInfinityCell(t *testing.T) {
	rec := do(newTestServer(t), upload(t, "/api/profile", "amounts.csv", "amount\n1\n2\ninf\n4\n", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cols := decode(t, rec)["profile"].(map[string]any)["columns"].(map[string]any)
	amount := cols["amount"].(map[string]any)
	assert.NotContains(t, amount, "min")
	assert.NotContains(t, amount, "std")
}

func TestWriteJSONUnencodableIsServerError(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.writeJSON(rec, http.StatusOK, map[string]float64{"v": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "encode response")
}
