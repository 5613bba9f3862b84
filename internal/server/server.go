// Package server runs the local daemon: quick send, context-menu clicks and
// raw webhook execution over HTTP, plus a menu kept in sync with the store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/YangQing-Lin/hooky-cli/internal/contextmenu"
	"github.com/YangQing-Lin/hooky-cli/internal/metrics"
	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/quicksend"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Server is the daemon.
type Server struct {
	manager    *store.Manager
	dispatcher quicksend.Dispatcher
	extractor  pagecontext.Extractor
	metrics    *metrics.Metrics
	log        *zap.Logger

	menu   contextmenu.Menu
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithExtractor sets the base page extractor used under payload-supplied pages.
func WithExtractor(ex pagecontext.Extractor) Option {
	return func(s *Server) { s.extractor = ex }
}

// WithMetrics enables /metrics and the quick-send outcome counter.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a server over the store and dispatcher.
func New(manager *store.Manager, dispatcher quicksend.Dispatcher, opts ...Option) *Server {
	s := &Server{
		manager:    manager,
		dispatcher: dispatcher,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.healthz)
	r.Post("/execute", s.execute)
	r.Post("/quicksend", s.quickSend)
	r.Route("/menu", func(r chi.Router) {
		r.Get("/", s.listMenu)
		r.Post("/{itemID}", s.clickMenu)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Menu returns the current menu items.
func (s *Server) Menu() []contextmenu.Item {
	return s.menu.Items()
}

// RebuildMenu reloads the templates and rebuilds the menu from scratch.
func (s *Server) RebuildMenu(ctx context.Context) error {
	st, err := s.manager.Load(ctx)
	if err != nil {
		return err
	}
	n := s.menu.Rebuild(st.Templates)
	if s.metrics != nil {
		s.metrics.SetMenuItems(n)
	}
	s.log.Debug("menu rebuilt", zap.Int("items", n))
	return nil
}

// WatchMenu rebuilds the menu now and on every change of the store key,
// until ctx is done.
func (s *Server) WatchMenu(ctx context.Context) error {
	changes, err := s.manager.KV().Watch(ctx, store.StoreKey)
	if err != nil {
		return err
	}
	if err := s.RebuildMenu(ctx); err != nil {
		s.log.Warn("initial menu build failed", zap.Error(err))
	}
	for range changes {
		if err := s.RebuildMenu(ctx); err != nil {
			s.log.Warn("menu rebuild failed", zap.Error(err))
		}
	}
	return nil
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := s.WatchMenu(watchCtx); err != nil {
			s.log.Warn("store watch unavailable", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// pageProvider layers a payload-supplied page over the configured extractor.
func (s *Server) pageProvider(page *pagecontext.Page) quicksend.PageInfo {
	var ex pagecontext.Extractor = s.extractor
	if page != nil {
		ex = pagecontext.StaticExtractor{Page: *page, Base: s.extractor}
	}
	return pagecontext.NewProvider(ex, s.log)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var verr *store.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, map[string]any{"error": store.ErrValidation.Error(), "fields": verr.Fields})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
