// Package api serves the HBnB REST views under /api/v1 on top of a
// types.Storage. Handlers are thin: they validate the request body, call
// the store, and render entity dictionaries as JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// Listener defaults.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 5000
)

// MaxBodySize caps request bodies, well below the largest record the file
// backend can store.
const MaxBodySize = "1M"

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// Config holds the HTTP listener settings. Environment variables override
// whatever the struct already holds.
type Config struct {
	Host string `env:"HBNB_API_HOST"`
	Port int    `env:"HBNB_API_PORT"`
}

// DefaultConfig returns the listener defaults.
func DefaultConfig() Config {
	return Config{Host: DefaultHost, Port: DefaultPort}
}

// ParseEnv overlays HBNB_API_HOST and HBNB_API_PORT onto base.
func ParseEnv(base Config) (Config, error) {
	cfg := base
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server binds the views to a listener.
type Server struct {
	cfg  Config
	echo *echo.Echo
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(cfg Config, store types.Storage) *Server {
	return &Server{cfg: cfg, echo: NewEcho(store)}
}

// NewEcho returns an echo instance serving the views over store.
func NewEcho(store types.Storage) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(MaxBodySize))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	RegisterRoutes(e, &Handler{Store: store})
	return e
}

// Handler exposes the echo instance, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.echo }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr()
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// errorHandler renders every echo error as {"error": "..."}; unknown routes
// get "Not found".
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	} else {
		log.Printf("unhandled error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	msg := http.StatusText(code)
	if code == http.StatusNotFound {
		msg = "Not found"
	}
	if c.Request().Method == http.MethodHead {
		c.NoContent(code)
		return
	}
	c.JSON(code, map[string]string{"error": msg})
}
