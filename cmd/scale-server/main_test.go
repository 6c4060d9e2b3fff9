package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/counting-scale/internal/config"
	"github.com/banshee-data/counting-scale/internal/simulation"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "COUNTING_SCALE_DATA_DIR", "COUNTING_SCALE_STORE", "COUNTING_SCALE_DB"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir string, v map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, "scale.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{
		"listen":          ":4000",
		"store_backend":   "file",
		"data_file":       "data/configurations.json",
		"sqlite_path":     "data/counting_scale.db",
		"reference_count": 25,
	})
	t.Setenv("PORT", "5000")
	t.Setenv("COUNTING_SCALE_DATA_DIR", dir)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.GetListen())
	assert.Equal(t, filepath.Join(dir, "configurations.json"), cfg.GetDataFile())
	assert.Equal(t, filepath.Join(dir, "counting_scale.db"), cfg.GetSQLitePath())
	assert.Equal(t, 25, cfg.GetReferenceCount())
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidEnvBackend(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, t.TempDir(), map[string]interface{}{})
	t.Setenv("COUNTING_SCALE_STORE", "postgres")
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func newTestMux(t *testing.T, backendName string) http.Handler {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, map[string]interface{}{
		"store_backend":     backendName,
		"data_file":         filepath.Join(dir, "configurations.json"),
		"sqlite_path":       filepath.Join(dir, "scale.db"),
		"production_delay":  "0s",
		"calibration_delay": "0s",
		"weighing_delay":    "0s",
		"reference_count":   10,
		"sample_size":       40,
		"seed":              7,
	})
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	b, err := openBackend(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	mux, err := newMux(cfg, b)
	require.NoError(t, err)
	return mux
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_FileBackendCycle(t *testing.T) {
	mux := newTestMux(t, config.StoreFile)

	rec := post(t, mux, "/api/production", `{"count":300,"nominal_weight":5,"tolerance_percent":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = post(t, mux, "/api/calibrate", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap simulation.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.Calibration)
	assert.Equal(t, 10, snap.Calibration.ReferenceCount)

	rec = post(t, mux, "/api/weigh", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.NotNil(t, snap.Result)
	assert.Equal(t, 40, snap.Result.SampleSize)

	// Run history needs the sqlite backend.
	assert.Equal(t, http.StatusNotFound, get(t, mux, "/api/runs").Code)
}

func TestServer_SQLiteBackendRecordsRuns(t *testing.T) {
	mux := newTestMux(t, config.StoreSQLite)

	rec := post(t, mux, "/api/configurations",
		`{"name":"mixed","groups":[{"name":"a","count":100,"nominal_weight":2,"tolerance_percent":1},{"name":"b","count":100,"nominal_weight":4,"tolerance_percent":1}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = post(t, mux, "/api/production", `{"configuration":"mixed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusOK, post(t, mux, "/api/calibrate", `{"reference_count":20}`).Code)
	require.Equal(t, http.StatusOK, post(t, mux, "/api/weigh", `{"sample_size":50}`).Code)

	rec = get(t, mux, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var runs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.EqualValues(t, 200, runs[0]["population_size"])
	assert.EqualValues(t, 50, runs[0]["sample_size"])

	assert.Equal(t, http.StatusOK, get(t, mux, "/charts/errors").Code)
}
