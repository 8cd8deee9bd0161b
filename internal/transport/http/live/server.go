package livehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"verge/internal/logger"
	"verge/internal/pkg/circuit"
)

const DefaultAddr = ":9991"

// Server exposes the hunt API, the live event stream and health endpoints.
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr     string
	Hunt     HuntService
	Events   gin.HandlerFunc
	Breakers *circuit.Registry
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Hunt == nil {
		return nil, errors.New("live http server requires a hunt service")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api, err := NewRouter(cfg.Hunt, cfg.Breakers)
	if err != nil {
		return nil, err
	}
	group := router.Group("/api/hunt")
	api.Register(group)
	if cfg.Events != nil {
		group.GET("/ws", cfg.Events)
	}
	return &Server{addr: cfg.Addr, router: router}, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
