// Copyright (C) 2025 TON Community
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scaffold

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ton-community/tinfoil/services/scaffold/ast"
	"github.com/ton-community/tinfoil/services/scaffold/wrappers"
)

// Handlers holds the HTTP handlers for the scaffold service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the handlers around svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`

	// Diagnostics carries per-location syntax problems when Code is
	// SYNTAX_ERROR; empty otherwise.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// getOrCreateRequestID returns the caller-provided X-Request-ID or mints
// a new one, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Header("X-Request-ID", id)
	return id
}

// ExtractRequest is the body of POST /v1/scaffold/extract.
type ExtractRequest struct {
	// Path is the wrapper source file, absolute or relative to the
	// service working directory.
	Path string `json:"path"`

	// Class is the exact contract class name to extract.
	Class string `json:"class"`
}

// HandleExtract handles POST /v1/scaffold/extract.
//
// Description:
//
//	Extracts the public operation surface of one wrapper class and
//	returns its WrapperInfo. Syntax errors and convention violations are
//	client errors, not server errors: the file was read fine, it just
//	does not hold up as a wrapper.
//
// Response:
//
//	200 OK: wrappers.WrapperInfo
//	400 Bad Request: Malformed body or missing field
//	404 Not Found: Source file does not exist
//	413 Request Entity Too Large: Source exceeds the size limit
//	422 Unprocessable Entity: Syntax error or missing createFromAddress
//	500 Internal Server Error: Anything else
func (h *Handlers) HandleExtract(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleExtract")

	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if req.Path == "" || req.Class == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "path and class are required",
			Code:  "MISSING_PARAMETER",
		})
		return
	}

	info, err := h.svc.Extract(c.Request.Context(), req.Path, req.Class)
	if err != nil {
		h.writeExtractError(c, logger, err)
		return
	}

	logger.Info("wrapper extracted",
		slog.String("file", req.Path),
		slog.String("class", req.Class),
		slog.Int("send_ops", info.SendFunctions.Len()),
		slog.Int("get_ops", info.GetFunctions.Len()),
	)
	c.JSON(http.StatusOK, info)
}

// writeExtractError maps the extraction error taxonomy onto HTTP statuses.
func (h *Handlers) writeExtractError(c *gin.Context, logger *slog.Logger, err error) {
	var synErr *ast.SyntaxError
	var capErr *wrappers.MissingCapabilityError

	switch {
	case errors.As(err, &synErr):
		diags := make([]string, 0, len(synErr.Diagnostics))
		for _, d := range synErr.Diagnostics {
			diags = append(diags, d.String())
		}
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:       synErr.Error(),
			Code:        "SYNTAX_ERROR",
			Diagnostics: diags,
		})

	case errors.As(err, &capErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: capErr.Error(),
			Code:  "MISSING_CAPABILITY",
		})

	case errors.Is(err, fs.ErrNotExist):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "FILE_NOT_FOUND",
		})

	case errors.Is(err, ast.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: err.Error(),
			Code:  "FILE_TOO_LARGE",
		})

	default:
		logger.Error("extraction failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "EXTRACTION_FAILED",
		})
	}
}

// ScanRequest is the body of POST /v1/scaffold/scan. The body is optional;
// an absent or empty dir scans the configured wrappers directory.
type ScanRequest struct {
	Dir string `json:"dir"`
}

// ScanResponse is the body of a successful scan.
type ScanResponse struct {
	RunID      string                 `json:"runId"`
	Wrappers   *wrappers.WrappersData `json:"wrappers"`
	Skipped    []wrappers.SkippedFile `json:"skipped,omitempty"`
	DurationMs int64                  `json:"durationMs"`
}

// HandleScan handles POST /v1/scaffold/scan.
//
// Description:
//
//	Scans a wrapper directory, rewrites the manifests, and notifies
//	event subscribers. Per-file failures are reported in Skipped, not as
//	an error status.
//
// Response:
//
//	200 OK: ScanResponse
//	400 Bad Request: Malformed body
//	404 Not Found: Directory does not exist
//	500 Internal Server Error: Scan or manifest write failed
func (h *Handlers) HandleScan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleScan")

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}

	result, err := h.svc.Scan(c.Request.Context(), req.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "DIR_NOT_FOUND",
			})
			return
		}
		logger.Error("scan failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "SCAN_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, ScanResponse{
		RunID:      result.RunID,
		Wrappers:   result.Wrappers,
		Skipped:    result.Skipped,
		DurationMs: result.Duration.Milliseconds(),
	})
}

// HealthResponse is the body of GET /v1/scaffold/health.
type HealthResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds float64      `json:"uptimeSeconds"`
	Subscribers   int          `json:"subscribers"`
	LastScan      *ScanSummary `json:"lastScan,omitempty"`
}

// HandleHealth handles GET /v1/scaffold/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		UptimeSeconds: h.svc.Uptime().Seconds(),
		Subscribers:   h.svc.Hub().SubscriberCount(),
		LastScan:      h.svc.LastScan(),
	})
}

// Websocket keepalive tuning for /v1/scaffold/events.
const (
	eventsWriteWait = 10 * time.Second
	eventsPongWait  = 60 * time.Second
	eventsPingEvery = (eventsPongWait * 9) / 10
)

// eventsUpgrader upgrades /v1/scaffold/events requests. The service is a
// local development tool, so cross-origin browser clients are allowed.
var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleEvents handles GET /v1/scaffold/events.
//
// Description:
//
//	Upgrades to a websocket and streams ChangeEvent JSON frames until the
//	client disconnects or the hub shuts down. The handler is the only
//	writer on the connection; a reader goroutine just drains client
//	frames to keep pong handling alive and detect closes.
//
// Thread Safety: Each connection is served by its own handler invocation.
func (h *Handlers) HandleEvents(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEvents")

	conn, err := eventsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	events, cancel := h.svc.Hub().Subscribe()
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info("event subscriber connected", slog.String("remote", conn.RemoteAddr().String()))

	pingTicker := time.NewTicker(eventsPingEvery)
	defer pingTicker.Stop()

	for {
		select {
		case <-readerDone:
			logger.Info("event subscriber disconnected")
			return

		case ev, ok := <-events:
			if !ok {
				// Hub closed; the service is shutting down.
				deadline := time.Now().Add(eventsWriteWait)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				logger.Warn("event write failed", slog.String("error", err.Error()))
				return
			}

		case <-pingTicker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
