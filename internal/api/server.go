package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rulecast/internal/catalog"
	"rulecast/internal/config"
	"rulecast/internal/ingestion"
	"rulecast/internal/logging"
	"rulecast/internal/manifest"
	"rulecast/internal/metrics"
	"rulecast/internal/storyboard"
)

const shutdownTimeout = 5 * time.Second

// Dependencies wires the HTTP server.
type Dependencies struct {
	Config   config.API
	Pipeline *ingestion.Pipeline
	Store    manifest.Store
	// Catalog and Recorder are optional.
	Catalog  *catalog.Store
	Recorder *metrics.Recorder
	Compiler *storyboard.Compiler
	Logger   *slog.Logger
	// ContractPath is the file POST /v1/contract/reload reads. Empty means
	// the built-in rules are active and reload is refused.
	ContractPath string
}

// Server is the rulecast HTTP API.
type Server struct {
	bind     string
	logger   *slog.Logger
	pipeline *ingestion.Pipeline
	store    manifest.Store
	catalog  *catalog.Store
	recorder *metrics.Recorder
	compiler *storyboard.Compiler

	contractPath string

	engine   *gin.Engine
	listener net.Listener
	server   *http.Server
}

// New validates dependencies and builds the router.
func New(deps Dependencies) (*Server, error) {
	if deps.Pipeline == nil || deps.Store == nil || deps.Compiler == nil {
		return nil, errors.New("api server requires a pipeline, a manifest store, and a storyboard compiler")
	}
	s := &Server{
		bind:     strings.TrimSpace(deps.Config.Bind),
		logger:   logging.NewComponentLogger(deps.Logger, "api"),
		pipeline: deps.Pipeline,
		store:    deps.Store,
		catalog:  deps.Catalog,
		recorder: deps.Recorder,
		compiler: deps.Compiler,

		contractPath: strings.TrimSpace(deps.ContractPath),
	}
	s.engine = s.routes(deps.Config.MaxBodyBytes())
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       deps.Config.ReadTimeout(),
		WriteTimeout:      deps.Config.WriteTimeout(),
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the router for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes(maxBody int64) *gin.Engine {
	r := gin.New()
	r.Use(s.recovery())
	r.Use(requestID())
	r.Use(s.accessLog())
	r.Use(limitBody(maxBody))

	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	v1.GET("/contract", s.contract)
	v1.POST("/contract/reload", s.reloadContract)

	manifests := v1.Group("/manifests")
	manifests.POST("", s.createManifest)
	manifests.GET("", s.listManifests)
	manifests.GET("/:id", s.getManifest)
	manifests.GET("/:id/history", s.manifestHistory)
	manifests.POST("/:id/storyboard", s.manifestStoryboard)

	v1.POST("/storyboards", s.compileStoryboard)

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, ErrorBody{Code: codeNotFound, Message: "route not found"})
	})
	return r
}

// Start listens on the configured bind address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
