package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"BreadthPull/internal/domain/models"
	drepo "BreadthPull/internal/domain/repository"
	xlogger "BreadthPull/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const streamWriteTimeout = 10 * time.Second

// StreamHub pushes every new report to connected websocket clients.
type StreamHub struct {
	logger   *xlogger.Logger
	upgrader websocket.Upgrader
	tail     int

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    *models.Report
}

var _ drepo.ReportSink = (*StreamHub)(nil)

// NewStreamHub creates a hub sending the last tail points of every series.
func NewStreamHub(logger *xlogger.Logger, tail int) *StreamHub {
	return &StreamHub{
		logger: logger,
		tail:   tail,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *StreamHub) Name() string { return "websocket" }

// Publish broadcasts r. Clients that cannot be written to are dropped.
func (h *StreamHub) Publish(_ context.Context, r *models.Report) error {
	view := models.NewReportView(r, h.tail)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = r
	for conn := range h.clients {
		if err := h.write(conn, view); err != nil {
			h.logger.Debug("dropping websocket client", xlogger.String("remote", conn.RemoteAddr().String()), xlogger.Error(err))
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and keeps the client registered until it disconnects.
// The latest report, if any, is sent right after the upgrade.
func (h *StreamHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	// The server read deadline still applies to the hijacked connection.
	_ = conn.SetReadDeadline(time.Time{})

	h.mu.Lock()
	if h.last != nil {
		if err := h.write(conn, models.NewReportView(h.last, h.tail)); err != nil {
			h.mu.Unlock()
			_ = conn.Close()
			return nil
		}
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", xlogger.String("remote", conn.RemoteAddr().String()))

	// Drain client frames so close and ping control messages are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
	return nil
}

// Close disconnects every client.
func (h *StreamHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		delete(h.clients, conn)
	}
	return nil
}

func (h *StreamHub) write(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(v)
}
