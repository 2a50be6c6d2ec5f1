package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/salesforecast/dataset"
	"github.com/YuminosukeSato/salesforecast/internal/config"
	"github.com/YuminosukeSato/salesforecast/internal/forecast"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/sklearn/fasttree"
	"github.com/YuminosukeSato/salesforecast/sklearn/pipeline"
)

func fittedModel(t *testing.T) *pipeline.Model {
	t.Helper()
	rows := make([]dataset.ProductData, 120)
	for i := range rows {
		units := float64(100 + 10*i)
		rows[i] = dataset.ProductData{
			ProductID: fmt.Sprintf("%d", 263+i%2),
			Year:      2017,
			Month:     float64(1 + i%12),
			Units:     units,
			Avg:       units / 10,
			Count:     10,
			Max:       units / 3,
			Min:       1,
			Prev:      units,
			Next:      0.8*units + 50,
		}
	}

	opts := fasttree.DefaultOptions()
	opts.NumTrees = 20
	m, err := forecast.BuildPipeline(opts).Fit(context.Background(), dataset.FromProducts(rows))
	require.NoError(t, err)
	m.ID = "test-model"
	return m
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := New(fittedModel(t))
	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-model", body["model_id"])
	assert.Equal(t, float64(20), body["trees"])
}

func TestModelManifest(t *testing.T) {
	s := New(fittedModel(t))
	rec := do(t, s, http.MethodGet, "/api/v1/model", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var m pipeline.Manifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "test-model", m.ModelID)
	assert.Equal(t, 20, m.NumTrees)
}

func TestForecast(t *testing.T) {
	model := fittedModel(t)
	s := New(model)

	row := dataset.ProductData{ProductID: "263", Year: 2017, Month: 10, Units: 600, Avg: 60, Count: 10, Max: 200, Min: 1, Prev: 600}
	payload, err := json.Marshal(row)
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/v1/forecast", string(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var got dataset.ProductUnitPrediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	want, err := model.PredictOne(row)
	require.NoError(t, err)
	assert.InDelta(t, want.Score, got.Score, 1e-9)
}

func TestForecast_Rejected(t *testing.T) {
	s := New(fittedModel(t))

	tests := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed json", `{"productId":`, http.StatusBadRequest, ""},
		{"missing product id", `{"year":2017,"month":10}`, http.StatusUnprocessableEntity, "ProductData.productId"},
		{"month out of range", `{"productId":"263","year":2017,"month":13}`, http.StatusUnprocessableEntity, "ProductData.month"},
		{"negative units", `{"productId":"263","year":2017,"month":1,"units":-5}`, http.StatusUnprocessableEntity, "ProductData.units"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/forecast", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
			if tt.field != "" {
				assert.Contains(t, resp.Fields, tt.field)
			}
		})
	}
}

func TestForecastBatch(t *testing.T) {
	model := fittedModel(t)
	s := New(model)

	rows := forecast.Samples()
	req := BatchRequest{}
	for _, r := range rows {
		req.Rows = append(req.Rows, r.Data)
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	rec := do(t, s, http.MethodPost, "/api/v1/forecast/batch", string(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Scores, len(rows))
	for i, r := range rows {
		want, err := model.PredictOne(r.Data)
		require.NoError(t, err)
		assert.InDelta(t, want.Score, resp.Scores[i], 1e-9)
	}

	rec = do(t, s, http.MethodPost, "/api/v1/forecast/batch", `{"rows":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestForecastBatch_TooLarge(t *testing.T) {
	s := New(fittedModel(t))

	t.Run("body over the byte limit", func(t *testing.T) {
		body := `{"rows":[` + strings.Repeat(" ", MaxBatchBytes) + `]}`
		rec := do(t, s, http.MethodPost, "/api/v1/forecast/batch", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	})

	t.Run("too many rows", func(t *testing.T) {
		row := `{"productId":"263","year":2017,"month":1}`
		body := `{"rows":[` + strings.Repeat(row+",", MaxBatchSize) + row + `]}`
		rec := do(t, s, http.MethodPost, "/api/v1/forecast/batch", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	})

	t.Run("single row over the byte limit", func(t *testing.T) {
		body := `{"productId":"263",` + strings.Repeat(" ", MaxBodyBytes) + `"year":2017,"month":1}`
		rec := do(t, s, http.MethodPost, "/api/v1/forecast", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	})
}

func TestForecast_InternalErrorIsLogged(t *testing.T) {
	model := fittedModel(t)
	model.Regressor.NumFeatures++
	s := New(model)
	logger := log.NewTestLogger(log.LevelDebug)
	s.logger = logger

	rec := do(t, s, http.MethodPost, "/api/v1/forecast", `{"productId":"263","year":2017,"month":10,"units":500}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	entry, ok := logger.Find("Forecast failed")
	require.True(t, ok)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Contains(t, entry["error"], "predict")
	assert.NotEmpty(t, entry[log.StacktraceKey])
	assert.Equal(t, log.OperationPredict, entry[log.OperationKey])
}

func TestMetrics(t *testing.T) {
	s := New(fittedModel(t))
	do(t, s, http.MethodPost, "/api/v1/forecast", `{"productId":"263","year":2017,"month":10,"units":500}`)
	do(t, s, http.MethodPost, "/api/v1/forecast", `{"year":2017}`)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `forecast_predictions_total{outcome="ok"} 1`)
	assert.Contains(t, body, `forecast_predictions_total{outcome="error"} 1`)
	assert.Contains(t, body, "forecast_prediction_duration_seconds_count 2")
}

func TestRun_Shutdown(t *testing.T) {
	s := New(fittedModel(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, config.ServerConfig{
			Addr:            "127.0.0.1:0",
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		})
	}()
	cancel()
	assert.NoError(t, <-done)
}

func TestNotFound(t *testing.T) {
	s := New(fittedModel(t))
	rec := do(t, s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
