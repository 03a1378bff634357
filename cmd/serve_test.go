package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/maude-cli/internal/config"
	"github.com/sells-group/maude-cli/internal/store"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	cfg = &config.Config{
		Insights: config.InsightsConfig{Grain: "week", ThresholdK: 2.0, TopManufacturers: 5},
	}

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	return newServeMux(context.Background(), st)
}

func TestServe_Health(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServe_ResolveRequiresDataset(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_ResolveRejectsBadBody(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_ListRunsEmpty(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServe_RunNotFound(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/nonexistent", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_InsightsMetaRequiresDataset(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/insights/meta", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_AnalyzeRequiresDatasetAndPrefix(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/insights/analyze", strings.NewReader(`{"prefix":"A05"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_AnalyzeRecordsRun(t *testing.T) {
	mux := newTestMux(t)

	dataset := filepath.Join(t.TempDir(), "resolved.csv")
	require.NoError(t, os.WriteFile(dataset, []byte(`IMDRF Code,Manufacturer,Event Date
A050101,ACME,15-03-2024
A050101,ACME,16-03-2024
A050102,OTHER,17-03-2024
`), 0o644))

	body := fmt.Sprintf(`{"dataset":%q,"prefix":"A05"}`, dataset)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/insights/analyze", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?kind=insights", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunKindInsights, runs[0].Kind)
	assert.Equal(t, store.RunStatusComplete, runs[0].Status)
}

func TestServe_AnalyzeFailureMarksRunFailed(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/insights/analyze",
		strings.NewReader(`{"dataset":"/nonexistent.csv","prefix":"A05"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?kind=insights", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusFailed, runs[0].Status)
}
