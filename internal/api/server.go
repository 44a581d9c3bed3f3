// Package api exposes a knowledge graph over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/internal/config"
	"github.com/xkilldash9x/skillgraph/internal/fragment"
	"github.com/xkilldash9x/skillgraph/internal/knowledgegraph"
	"github.com/xkilldash9x/skillgraph/internal/snapshot"
)

// maxFragmentBytes caps the body of POST /fragments.
const maxFragmentBytes = 8 << 20

const shutdownTimeout = 5 * time.Second

// Server serves queries against one graph and accepts new fragments.
type Server struct {
	graph *knowledgegraph.Graph
	store *snapshot.Store
	cfg   config.Interface
	log   *zap.Logger
}

// NewServer creates a server. The snapshot store is used by POST /snapshot.
func NewServer(graph *knowledgegraph.Graph, store *snapshot.Store, cfg config.Interface, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{graph: graph, store: store, cfg: cfg, log: logger.Named("api")}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(s.cfg.Server().Mode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.healthz)
	r.GET("/stats", s.stats)
	r.GET("/nodes", s.findNodes)
	r.GET("/nodes/:id", s.node)
	r.GET("/nodes/:id/neighbors", s.neighbors)
	r.GET("/overlap", s.overlap)
	r.POST("/fragments", s.ingestFragment)
	r.POST("/snapshot", s.saveSnapshot)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server().Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("Request served",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.graph.Stats())
}

func (s *Server) findNodes(c *gin.Context) {
	seq := s.graph.FindNodes(c.Query("type"), c.Query("label"))
	c.JSON(http.StatusOK, knowledgegraph.NodeSummaries(seq))
}

func (s *Server) node(c *gin.Context) {
	id := c.Param("id")
	n, ok := s.graph.Node(id)
	if !ok {
		respondError(c, http.StatusNotFound, "node_not_found", fmt.Errorf("node %q not found", id))
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) neighbors(c *gin.Context) {
	c.JSON(http.StatusOK, s.graph.Neighbors(c.Param("id")))
}

func (s *Server) overlap(c *gin.Context) {
	candidate, job := c.Query("candidate"), c.Query("job")
	if candidate == "" || job == "" {
		respondError(c, http.StatusBadRequest, "missing_parameter", errors.New("both candidate and job query parameters are required"))
		return
	}
	c.JSON(http.StatusOK, s.graph.SkillOverlap(candidate, job))
}

type ingestResponse struct {
	Remap map[string]string `json:"remap"`
	Nodes int               `json:"nodes"`
	Edges int               `json:"edges"`
}

// ingestFragment accepts one fragment document. The optional "source" query
// parameter sets the provenance tag.
func (s *Server) ingestFragment(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFragmentBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "read_failed", err)
		return
	}
	if len(body) > maxFragmentBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "too_large", fmt.Errorf("fragment exceeds %d bytes", maxFragmentBytes))
		return
	}

	frag, err := fragment.Decode(body)
	if err != nil {
		s.log.Warn("Fragment rejected", zap.Error(err))
		respondError(c, http.StatusBadRequest, "malformed_fragment", err)
		return
	}

	remap := s.graph.Ingest(frag, c.Query("source"))
	stats := s.graph.Stats()
	c.JSON(http.StatusOK, ingestResponse{Remap: remap, Nodes: stats.Nodes, Edges: stats.Edges})
}

func (s *Server) saveSnapshot(c *gin.Context) {
	path, err := s.store.Save(c.Request.Context(), s.graph, s.cfg.Graph().SnapshotPath)
	if err != nil {
		s.log.Error("Snapshot save failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "snapshot_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path})
}
