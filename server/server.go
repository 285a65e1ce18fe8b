// Package server is the HTTP ingress. A chat relay posts verified messages
// to /messages; the inventory views are read-only.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"pantrybot/chat"
	"pantrybot/inventory"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type MessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type MessageResponse struct {
	Reply string `json:"reply"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	echo          *echo.Echo
	chat          *chat.Service
	store         *inventory.Store
	thresholdDays int
}

func New(chatSvc *chat.Service, store *inventory.Store, thresholdDays int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency_ms", v.Latency.Milliseconds()}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("HTTP: Request", attrs...)
			return nil
		},
	}))

	s := &Server{
		echo:          e,
		chat:          chatSvc,
		store:         store,
		thresholdDays: thresholdDays,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.health)
	s.echo.POST("/messages", s.message)

	g := s.echo.Group("/ingredients")
	g.GET("", s.list)
	g.GET("/expiring", s.expiring)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	slog.Info("HTTP: Listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) message(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if req.ConversationID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "conversation_id is required"})
	}

	reply := s.chat.Handle(c.Request().Context(), req.ConversationID, req.Text)
	return c.JSON(http.StatusOK, MessageResponse{Reply: reply})
}

func (s *Server) list(c echo.Context) error {
	listing, err := s.store.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listing)
}

func (s *Server) expiring(c echo.Context) error {
	days := s.thresholdDays
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "days must be an integer"})
		}
		days = n
	}

	report, err := s.store.CheckExpiring(c.Request().Context(), s.store.Now(), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, inventory.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, inventory.ErrStorageUnavailable):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "inventory unavailable"})
	}
	slog.Error("HTTP: Unhandled error", "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
