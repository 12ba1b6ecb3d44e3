package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"BreadthPull/internal/domain/models"
	"BreadthPull/internal/usecase"
	xhttp "BreadthPull/pkg/http"
	xlogger "BreadthPull/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	report     *models.Report
	err        error
	refreshErr error
	refreshes  int
}

func (f *fakeService) Latest() (*models.Report, error) {
	if f.report == nil {
		if f.err != nil {
			return nil, f.err
		}
		return nil, usecase.ErrNoReport
	}
	return f.report, nil
}

func (f *fakeService) Refresh(ctx context.Context) (*models.Report, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.report, nil
}

func (f *fakeService) LastError() error { return f.err }

func sampleReport() *models.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.Point, 40)
	for i := range points {
		points[i] = models.Point{Date: start.AddDate(0, 0, i), Value: float64(100 + i)}
	}
	series := models.NewTimeSeries(points)
	return &models.Report{
		RunID:   "run-1",
		Basket:  []string{"bitcoin", "ethereum"},
		Primary: "bitcoin",
		Loaded:  []string{"bitcoin", "ethereum"},
		Indicators: []models.Indicator{{
			Name:        models.Total,
			Title:       "Total Crypto Market Cap",
			Label:       "Bullish",
			ShortWindow: 10,
			LongWindow:  30,
			Signal:      models.TrendSignal{Date: start.AddDate(0, 0, 39), Short: 134.5, Long: 124.5, Trend: models.Ascending},
			Series:      series,
			ShortSMA:    series.Tail(31),
			LongSMA:     series.Tail(11),
		}},
		Errors:     map[models.Composite]string{models.Others: "basket incomplete: missing solana"},
		Disclaimer: usecase.Disclaimer,
	}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h *BreadthEchoHandler, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	srv := xhttp.NewServer(h, xhttp.WithMetricsPath(""))
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestIndicatorEndpointTrimsSeries(t *testing.T) {
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{report: sampleReport()}, nil)
	rec, env := do(t, h, http.MethodGet, "/api/indicators/TOTAL?tail=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		Name     string         `json:"name"`
		Label    string         `json:"label"`
		Series   []models.Point `json:"series"`
		ShortSMA []models.Point `json:"short_sma"`
		Signal   struct {
			Trend string `json:"trend"`
		} `json:"signal"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "TOTAL", view.Name)
	assert.Equal(t, "Bullish", view.Label)
	assert.Len(t, view.Series, 5)
	assert.Len(t, view.ShortSMA, 5)
	assert.Equal(t, "ascending", view.Signal.Trend)
	assert.Equal(t, 139.0, view.Series[4].Value)
}

func TestIndicatorEndpointDefaultsTail(t *testing.T) {
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{report: sampleReport()}, nil)
	_, env := do(t, h, http.MethodGet, "/api/indicators/TOTAL")

	var view struct {
		Series []models.Point `json:"series"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Len(t, view.Series, 40)
}

func TestIndicatorEndpointRejectsUnknownName(t *testing.T) {
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{report: sampleReport()}, nil)
	rec, env := do(t, h, http.MethodGet, "/api/indicators/BOGUS")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_ONEOF")
}

func TestIndicatorEndpointReportsFailedComposite(t *testing.T) {
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{report: sampleReport()}, nil)
	rec, env := do(t, h, http.MethodGet, "/api/indicators/OTHERS")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, string(env.Data), "basket incomplete")
}

func TestReportEndpointBeforeFirstRun(t *testing.T) {
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{}, nil)
	rec, env := do(t, h, http.MethodGet, "/api/report")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_UNAVAILABLE")
}

func TestReportEndpointSummary(t *testing.T) {
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{report: sampleReport()}, nil)
	rec, env := do(t, h, http.MethodGet, "/api/report?summary=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var view struct {
		RunID      string `json:"run_id"`
		Disclaimer string `json:"disclaimer"`
		Indicators []struct {
			Name   string         `json:"name"`
			Series []models.Point `json:"series"`
		} `json:"indicators"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "run-1", view.RunID)
	assert.NotEmpty(t, view.Disclaimer)
	require.Len(t, view.Indicators, 1)
	assert.Empty(t, view.Indicators[0].Series)
	assert.Contains(t, view.Errors, "OTHERS")
}

func TestIndicatorsEndpointListsSummaries(t *testing.T) {
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{report: sampleReport()}, nil)
	_, env := do(t, h, http.MethodGet, "/api/indicators")

	var list struct {
		Rows  []map[string]interface{} `json:"rows"`
		Total int64                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)
	assert.NotContains(t, list.Rows[0], "series")
}

func TestRefreshEndpoint(t *testing.T) {
	svc := &fakeService{report: sampleReport()}
	h := NewBreadthEchoHandler(xlogger.Nop(), svc, nil)
	rec, _ := do(t, h, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.refreshes)

	svc.refreshErr = models.ErrNoData
	rec, _ = do(t, h, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc.refreshErr = errors.New("boom")
	rec, _ = do(t, h, http.MethodPost, "/api/refresh")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{report: sampleReport()}, nil)
	rec, env := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "run-1")
}

func TestStreamPushesReports(t *testing.T) {
	hub := NewStreamHub(xlogger.Nop(), 3)
	h := NewBreadthEchoHandler(xlogger.Nop(), &fakeService{report: sampleReport()}, hub)
	srv := httptest.NewServer(xhttp.NewServer(h, xhttp.WithMetricsPath("")).Echo())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), sampleReport()))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var view struct {
		RunID      string `json:"run_id"`
		Indicators []struct {
			Series []models.Point `json:"series"`
		} `json:"indicators"`
	}
	require.NoError(t, conn.ReadJSON(&view))
	assert.Equal(t, "run-1", view.RunID)
	require.Len(t, view.Indicators, 1)
	assert.Len(t, view.Indicators[0].Series, 3)
}
