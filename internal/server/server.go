package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

// Ingestor indexes a path and reports the number of chunks written.
type Ingestor interface {
	Ingest(ctx context.Context, root string, progress func(done, total int)) (int, error)
}

// Asker answers a question against the index.
type Asker interface {
	Ask(ctx context.Context, question string, k int, filters map[string]string) (domain.Answer, error)
}

// Server is the HTTP boundary over the ingest and ask pipelines.
type Server struct {
	ingestor Ingestor
	asker    Asker
	addr     string
	mode     string
}

func New(ingestor Ingestor, asker Asker, addr, mode string) *Server {
	if addr == "" {
		addr = ":8080"
	}
	return &Server{
		ingestor: ingestor,
		asker:    asker,
		addr:     addr,
		mode:     mode,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.mode != "" {
		gin.SetMode(s.mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/ingest", s.handleIngest)
		v1.POST("/query", s.handleQuery)
	}
	return r
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Infof("server stopped")
	return nil
}
