package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/domain"
	"github.com/spigell/labconnect/internal/labs"
)

const (
	defaultListen     = ":8080"
	defaultMaxUpload  = 10 << 20
	defaultSessionTTL = time.Hour
	shutdownTimeout   = 10 * time.Second
)

//go:embed templates/*.html
var templatesFS embed.FS

// Searcher runs the matching workflow for one resume.
type Searcher interface {
	Match(ctx context.Context, resume *domain.ResumeDocument) (*labs.Results, error)
}

type Config struct {
	Listen      string        `mapstructure:"listen"`
	MaxUploadMB int64         `mapstructure:"max-upload-mb"`
	SessionTTL  time.Duration `mapstructure:"session-ttl"`
}

type Server struct {
	searcher  Searcher
	source    labs.Source
	sessions  *Sessions
	logger    *zap.Logger
	listen    string
	maxUpload int64
	pages     *template.Template
	router    chi.Router
}

func New(cfg Config, searcher Searcher, source labs.Source, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pages, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		searcher:  searcher,
		source:    source,
		logger:    logger,
		listen:    cfg.Listen,
		maxUpload: cfg.MaxUploadMB << 20,
		pages:     pages,
	}
	if s.listen == "" {
		s.listen = defaultListen
	}
	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUpload
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	s.sessions = NewSessions(ttl)

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Post("/search", s.handleSearch)
	r.Get("/labs", s.handleLabsPage)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/labs", s.handleAPILabs)
		r.Post("/match", s.handleAPIMatch)
	})

	s.router = r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("listen", s.listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
