package api

import (
	"context"
	"errors"
	"net/http"

	"BreadthPull/internal/domain/models"
	"BreadthPull/internal/usecase"
	xhttp "BreadthPull/pkg/http"
	xlogger "BreadthPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ReportService is the part of the breadth service the API needs.
type ReportService interface {
	Latest() (*models.Report, error)
	Refresh(ctx context.Context) (*models.Report, error)
	LastError() error
}

// BreadthEchoHandler serves the latest breadth report over HTTP.
type BreadthEchoHandler struct {
	logger *xlogger.Logger
	svc    ReportService
	stream *StreamHub
}

func NewBreadthEchoHandler(logger *xlogger.Logger, svc ReportService, stream *StreamHub) *BreadthEchoHandler {
	return &BreadthEchoHandler{logger: logger, svc: svc, stream: stream}
}

func (h *BreadthEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/report", h.Report)
	g.GET("/indicators", h.Indicators)
	g.GET("/indicators/:name", h.Indicator)
	g.POST("/refresh", h.Refresh)
	if h.stream != nil {
		g.GET("/stream", h.stream.Serve)
	}
}

func (h *BreadthEchoHandler) Health(c echo.Context) error {
	body := map[string]interface{}{"status": "ok"}
	if r, err := h.svc.Latest(); err == nil {
		body["run_id"] = r.RunID
		body["generated_at"] = r.GeneratedAt
	}
	if err := h.svc.LastError(); err != nil {
		body["last_error"] = err.Error()
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *BreadthEchoHandler) Report(c echo.Context) error {
	req := &models.ReportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.latest()
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	tail := req.Tail
	if req.Summary {
		tail = 0
	}
	return xhttp.SuccessResponse(c, models.NewReportView(r, tail))
}

func (h *BreadthEchoHandler) Indicators(c echo.Context) error {
	r, err := h.latest()
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	rows := make([]models.Indicator, len(r.Indicators))
	copy(rows, r.Indicators)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *BreadthEchoHandler) Indicator(c echo.Context) error {
	req := &models.IndicatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	r, err := h.latest()
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	name := models.Composite(req.Name)
	ind, ok := r.Indicator(name)
	if !ok {
		reason := "not computed in the latest run"
		if msg, failed := r.Errors[name]; failed {
			reason = msg
		}
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("indicator %s unavailable: %s", name, reason).
			WithParam("name", req.Name))
	}
	return xhttp.SuccessResponse(c, models.NewIndicatorView(ind, req.Tail))
}

func (h *BreadthEchoHandler) Refresh(c echo.Context) error {
	r, err := h.svc.Refresh(c.Request().Context())
	if err != nil {
		h.logger.Error("refresh failed", xlogger.Error(err))
		if errors.Is(err, models.ErrNoData) {
			return xhttp.AppErrorResponse(c, xhttp.UnavailableError("no market data available").WithError(err))
		}
		return xhttp.AppErrorResponse(c, xhttp.InternalError("refresh failed").WithError(err))
	}
	return xhttp.DataResponse(c, http.StatusOK, models.NewReportView(r, 0))
}

func (h *BreadthEchoHandler) latest() (*models.Report, error) {
	r, err := h.svc.Latest()
	if err == nil {
		return r, nil
	}
	if errors.Is(err, usecase.ErrNoReport) {
		return nil, xhttp.UnavailableError("report not ready yet").WithError(err)
	}
	return nil, xhttp.UnavailableError("latest run failed").WithError(err)
}
