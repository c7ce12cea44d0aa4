// Package httpapi serves read-only operational views over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"volumebot/internal/asset"
	"volumebot/internal/health"
	"volumebot/internal/memorystore"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type SnapshotSource interface {
	Get(asset string) (memorystore.Snapshot, bool)
	GetAll() []memorystore.Snapshot
}

type StatusSource interface {
	LastStatus() (health.Status, bool)
}

// StorageChecker reports whether the settings database answers.
type StorageChecker interface {
	IsHealthy(ctx context.Context) bool
}

type Server struct {
	addr      string
	snapshots SnapshotSource
	health    StatusSource
	storage   StorageChecker
	users     func() int
	logger    *zap.Logger
	engine    *gin.Engine
}

// NewServer builds the router. users reports the number of known
// subscribers.
func NewServer(addr string, snapshots SnapshotSource, status StatusSource, storage StorageChecker, users func() int, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:      addr,
		snapshots: snapshots,
		health:    status,
		storage:   storage,
		users:     users,
		logger:    logger,
		engine:    gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.accessLog)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.getHealth)
	s.engine.GET("/snapshots", s.getSnapshots)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("http request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("took", time.Since(start)))
}

func (s *Server) getHealth(c *gin.Context) {
	st, checked := s.health.LastStatus()
	storageOK := s.storage.IsHealthy(c.Request.Context())

	code := http.StatusOK
	if (checked && !st.Healthy) || !storageOK {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"checked":   checked,
		"exchange":  st,
		"storage":   storageOK,
		"snapshots": len(s.snapshots.GetAll()),
		"users":     s.users(),
	})
}

// getSnapshots lists the cache, or one asset with ?asset=BTC/USDT.
func (s *Server) getSnapshots(c *gin.Context) {
	if raw := c.Query("asset"); raw != "" {
		snap, ok := s.snapshots.Get(asset.Normalize(raw))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no cached data for " + asset.Normalize(raw)})
			return
		}
		c.JSON(http.StatusOK, snap)
		return
	}
	c.JSON(http.StatusOK, s.snapshots.GetAll())
}
