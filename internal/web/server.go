// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web mirrors the dashboard over HTTP and WebSocket.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/relabs-tech/nmeatop/internal/status"
)

// Config enables the mirror.
type Config struct {
	Addr         string        `yaml:"addr"`
	PushInterval time.Duration `yaml:"push_interval"`
}

const (
	defaultPushInterval = time.Second
	writeWait           = 5 * time.Second
	shutdownTimeout     = 3 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // read-only telemetry; any origin may watch
	},
}

// Server serves snapshots of a status store. It only ever reads the store.
type Server struct {
	store  *status.Store
	cfg    Config
	logger log.Logger
	echo   *echo.Echo

	// done is closed when Run returns; hijacked websocket connections do not
	// see the server shutdown otherwise.
	done chan struct{}
}

// NewServer builds the routes. Call Run to start listening.
func NewServer(store *status.Store, cfg Config, logger log.Logger) *Server {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushInterval
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		store:  store,
		cfg:    cfg,
		logger: log.With(logger, "component", "web"),
		echo:   e,
		done:   make(chan struct{}),
	}
	e.GET("/api/health", s.handleHealth)
	e.GET("/api/status", s.handleStatus)
	e.GET("/ws", s.handleWS)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run listens on cfg.Addr until ctx is cancelled. The listener is bound
// before Run waits on ctx, so a cancelled ctx never leaves a server behind.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.cfg.Addr, err)
	}
	s.echo.Listener = ln

	errCh := make(chan error, 1)
	go func() {
		level.Info(s.logger).Log("msg", "web mirror listening", "addr", ln.Addr().String())
		errCh <- s.echo.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: serve %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		level.Warn(s.logger).Log("msg", "web shutdown", "err", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		level.Warn(s.logger).Log("msg", "web server stopped", "err", err)
	}
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleWS(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		level.Warn(s.logger).Log("msg", "websocket upgrade failed", "err", err)
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	closed := make(chan struct{})
	go func() {
		// Drain client frames so close messages are noticed.
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(s.store.Snapshot()); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				level.Debug(s.logger).Log("msg", "websocket write failed", "err", err)
			}
			return nil
		}

		select {
		case <-ticker.C:
		case <-closed:
			return nil
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		}
	}
}
