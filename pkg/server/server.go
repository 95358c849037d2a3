package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adfharrison1/go-tours/pkg/admin"
	"github.com/adfharrison1/go-tours/pkg/api"
	"github.com/adfharrison1/go-tours/pkg/config"
	"github.com/adfharrison1/go-tours/pkg/content"
	"github.com/adfharrison1/go-tours/pkg/site"
	"github.com/adfharrison1/go-tours/pkg/storage"
)

// Server holds references to storage, router, etc.
type Server struct {
	cfg     *config.Config
	router  *mux.Router
	engine  *storage.StorageEngine
	store   *content.Store
	site    *site.Site
	admin   *admin.Admin
	metrics *Metrics
	logger  *zap.Logger
}

// StorageOptions maps the storage section of cfg to engine options
func StorageOptions(cfg config.StorageConfig, logger *zap.Logger) []storage.StorageOption {
	options := []storage.StorageOption{
		storage.WithDataDir(cfg.DataDir),
		storage.WithTransactionSave(cfg.TransactionSave),
		storage.WithJournal(cfg.Journal),
		storage.WithJournalSync(cfg.JournalSync),
		storage.WithLogger(logger.Named("storage")),
	}
	if cfg.BackgroundSave > 0 {
		options = append(options, storage.WithBackgroundSave(cfg.BackgroundSave))
	}
	return options
}

// New creates a Server from cfg. Call InitDB before serving.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := storage.NewStorageEngine(StorageOptions(cfg.Storage, logger)...)
	store := content.NewStore(engine, logger.Named("content"))

	pub, err := site.New(store, site.Options{
		BaseURL:          cfg.Server.BaseURL,
		TemplatesDir:     cfg.Site.TemplatesDir,
		StaticDir:        cfg.Site.StaticDir,
		Dev:              cfg.Site.Dev,
		CacheSize:        cfg.Site.CacheSize,
		MediaDir:         cfg.MediaDir(),
		ContactPerMinute: cfg.Site.ContactRate,
		ContactBurst:     cfg.Site.ContactBurst,
		TrustProxy:       cfg.Server.TrustProxy,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up site: %w", err)
	}

	panel, err := admin.New(store, admin.Options{
		Username:       cfg.Admin.Username,
		PasswordHash:   cfg.Admin.PasswordHash,
		SessionTTL:     cfg.Admin.SessionTTL,
		LoginPerMinute: cfg.Admin.LoginRate,
		LoginBurst:     cfg.Admin.LoginBurst,
		MediaDir:       cfg.MediaDir(),
		MaxUploadBytes: cfg.Admin.MaxUploadMB << 20,
		SecureCookie:   cfg.Admin.SecureCookie,
		TrustProxy:     cfg.Server.TrustProxy,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up admin: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		router: mux.NewRouter(),
		engine: engine,
		store:  store,
		site:   pub,
		admin:  panel,
		logger: logger.Named("server"),
	}
	if cfg.Server.Metrics {
		s.metrics = NewMetrics(engine, pub.Cache(), panel.Sessions())
	}
	s.routes(api.NewHandler(store, logger))
	return s, nil
}

// routes wires the operational endpoints, the admin panel with its JSON
// API and finally the public site, whose catch-all routes come last
func (s *Server) routes(handler *api.Handler) {
	s.router.Use(s.requestLogger, s.recoverer)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	apiRouter := s.admin.RegisterRoutes(s.router)
	handler.RegisterRoutes(apiRouter)
	s.site.RegisterRoutes(s.router)

	// Middleware only runs for matched routes
	s.router.NotFoundHandler = s.requestLogger(s.recoverer(s.router.NotFoundHandler))
	s.router.MethodNotAllowedHandler = s.requestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}))
}

// InitDB loads the data directory and makes sure every content collection
// and index exists
func (s *Server) InitDB() error {
	if err := s.engine.Load(); err != nil {
		return fmt.Errorf("failed to load data from %s: %w", s.cfg.Storage.DataDir, err)
	}
	if err := s.store.Setup(); err != nil {
		return err
	}
	stats := s.engine.GetStats()
	s.logger.Info("Loaded data",
		zap.String("data_dir", s.cfg.Storage.DataDir),
		zap.Int("collections", len(stats.Collections)),
		zap.Int64("documents", stats.Documents))
	return nil
}

// SaveDB checkpoints every dirty collection to disk
func (s *Server) SaveDB() error {
	if err := s.engine.Checkpoint(); err != nil {
		s.logger.Error("Could not save data", zap.String("data_dir", s.cfg.Storage.DataDir), zap.Error(err))
		return err
	}
	s.logger.Info("Saved data", zap.String("data_dir", s.cfg.Storage.DataDir))
	return nil
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}

// Store exposes the content store for the CLI
func (s *Server) Store() *content.Store {
	return s.store
}

// Engine exposes the storage engine for backups
func (s *Server) Engine() *storage.StorageEngine {
	return s.engine
}

// Close stops background work and flushes the store
func (s *Server) Close() error {
	return s.engine.Close()
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully and closes the store
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(s.logger),
	}

	s.engine.StartBackgroundWorkers()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.site.Run(gctx)
	})
	g.Go(func() error {
		s.logger.Info("Starting go-tours server",
			zap.String("addr", ln.Addr().String()),
			zap.String("site", s.cfg.Server.BaseURL),
			zap.String("admin", s.cfg.Server.BaseURL+"/admin"))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server")
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if closeErr := s.Close(); closeErr != nil {
		s.logger.Error("Could not save data on shutdown", zap.Error(closeErr))
		if err == nil {
			err = closeErr
		}
	}
	s.logger.Info("Server exited")
	return err
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status         string    `json:"status"`
	Collections    int       `json:"collections"`
	Documents      int64     `json:"documents"`
	LSN            int64     `json:"lsn"`
	LastCheckpoint time.Time `json:"last_checkpoint,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.GetStats()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(HealthResponse{
		Status:         "healthy",
		Collections:    len(stats.Collections),
		Documents:      stats.Documents,
		LSN:            stats.LSN,
		LastCheckpoint: stats.LastCheckpoint,
	}); err != nil {
		s.logger.Warn("Could not write health response", zap.Error(err))
	}
}
