// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pdiddy/plan-engine/internal/queue"
	"github.com/pdiddy/plan-engine/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The worker's progress surface is consumed by the owning service, not
	// browsers; origin checks happen at that layer.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ProgressReader is the queue view the server needs: the stored snapshot for
// polling clients.
type ProgressReader interface {
	GetProgress(ctx context.Context, jobID string) (types.ProgressEvent, error)
}

// Server is the worker's HTTP surface: health, progress polling, and the
// websocket progress stream.
type Server struct {
	hub    *Hub
	store  ProgressReader
	log    *zap.Logger
	engine *gin.Engine
	http   *http.Server
}

// NewServer wires the routes. The server does not listen until Start.
func NewServer(store ProgressReader, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{hub: hub, store: store, log: log, engine: engine}
	engine.GET("/healthz", s.handleHealth)
	engine.GET("/jobs/:id/progress", s.handleProgress)
	engine.GET("/ws/jobs/:id/progress", s.handleProgressStream)
	return s
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start begins serving on addr and blocks until the listener stops.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.engine}
	s.log.Info("progress server listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleProgress serves the stored snapshot for clients without a websocket.
func (s *Server) handleProgress(c *gin.Context) {
	ev, err := s.store.GetProgress(c.Request.Context(), c.Param("id"))
	if errors.Is(err, queue.ErrNoJob) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "progress unavailable"})
		return
	}
	c.JSON(http.StatusOK, ev)
}

// handleProgressStream upgrades to a websocket and forwards hub events for
// the job until the client disconnects or the hub closes.
func (s *Server) handleProgressStream(c *gin.Context) {
	jobID := c.Param("id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.String("jobId", jobID), zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := s.hub.Subscribe(Topic(jobID))
	defer cancel()

	// Reader goroutine: notices client disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
