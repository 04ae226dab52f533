package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/NewsSort/internal/classifier"
	"github.com/IshaanNene/NewsSort/internal/config"
	"github.com/IshaanNene/NewsSort/internal/observability"
	"github.com/IshaanNene/NewsSort/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type stubModel struct {
	pred classifier.Prediction
	err  error
}

func (m *stubModel) Predict(_ context.Context, text string) (classifier.Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return classifier.Prediction{}, types.ErrEmptyHeadline
	}
	return m.pred, m.err
}

func (m *stubModel) Labels() []string { return []string{"Politics", "Sports"} }
func (m *stubModel) Kind() string     { return "stub" }

func newTestServer(t *testing.T, model classifier.Model) (*httptest.Server, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetrics(testLogger)
	s := NewServer(config.DefaultConfig(), model, m, testLogger)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func postJSON(t *testing.T, u, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(u, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestIndexServesForm(t *testing.T) {
	ts, _ := newTestServer(t, &stubModel{})

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp404, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	resp404.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp404.StatusCode)
}

func TestClassifyForm(t *testing.T) {
	ts, m := newTestServer(t, &stubModel{pred: classifier.Prediction{Label: "Sports", Confidence: 0.75}})

	tests := []struct {
		headline string
		want     string
	}{
		{"Harimau Malaya win", "Sports"},
		{"   ", EmptyHeadlineMessage},
		{"<script>x</script>", "&lt;script&gt;"},
	}
	for _, tt := range tests {
		t.Run(tt.headline, func(t *testing.T) {
			resp, err := http.PostForm(ts.URL+"/classify", url.Values{"headline": {tt.headline}})
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, readAll(t, resp), tt.want)
		})
	}
	assert.EqualValues(t, 2, m.Predictions.Load())
	assert.EqualValues(t, 1, m.PredictionErrors.Load())
}

func TestPredictAPI(t *testing.T) {
	ts, _ := newTestServer(t, &stubModel{pred: classifier.Prediction{Label: "Politics", Confidence: 0.5}})

	resp, out := postJSON(t, ts.URL+"/api/predict", `{"text":"Parliament passes bill"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Politics", out["label"])
	assert.InDelta(t, 0.5, out["confidence"], 1e-9)

	resp, out = postJSON(t, ts.URL+"/api/predict", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, EmptyHeadlineMessage, out["error"])

	resp, _ = postJSON(t, ts.URL+"/api/predict", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredictAPIUnknownLabel(t *testing.T) {
	ts, _ := newTestServer(t, &stubModel{err: fmt.Errorf("%w: %q", types.ErrUnknownLabel, "Weather")})

	resp, out := postJSON(t, ts.URL+"/api/predict", `{"text":"Rain expected"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, out["error"], "Weather")
}

func TestLabelsHealthMetrics(t *testing.T) {
	ts, _ := newTestServer(t, &stubModel{pred: classifier.Prediction{Label: "Sports"}})

	resp, err := http.Get(ts.URL + "/api/labels")
	require.NoError(t, err)
	var labels struct {
		Kind   string   `json:"kind"`
		Labels []string `json:"labels"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&labels))
	resp.Body.Close()
	assert.Equal(t, "stub", labels.Kind)
	assert.Equal(t, []string{"Politics", "Sports"}, labels.Labels)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])

	postJSON(t, ts.URL+"/api/predict", `{"text":"Cup final tonight"}`)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body := readAll(t, resp)
	assert.Contains(t, body, "newssort_predictions_total 1")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Metrics.Enabled = false
	s := NewServer(cfg, &stubModel{}, nil, testLogger)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
