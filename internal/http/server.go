package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/middleware/ratelimit"
	"tracker/internal/middleware/security"
	"tracker/internal/middleware/trace"
	"tracker/internal/session"
	"tracker/internal/workflow"
	appweb "tracker/web"
)

// EntryStore is the owner-scoped row access the handlers need.
type EntryStore interface {
	List(ctx context.Context, owner string) ([]core.LogEntry, error)
	Get(ctx context.Context, id int64, owner string) (core.LogEntry, error)
	Update(ctx context.Context, id int64, owner string, d core.DraftEntry) (core.MutationResult, error)
	Delete(ctx context.Context, id int64, owner string) (core.MutationResult, error)
}

// EntryFlow drives the analyze, confirm and discard steps.
type EntryFlow interface {
	Analyze(ctx context.Context, sess *session.Session, text string) workflow.AnalyzeOutcome
	Confirm(ctx context.Context, sess *session.Session, owner string, edited core.DraftEntry) (core.LogEntry, error)
	Discard(sess *session.Session)
}

// ReadinessChecker reports whether a dependency can serve requests.
type ReadinessChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Addr               string
	IdentityHeader     string
	DefaultUser        string
	CurrencySymbol     string
	RateLimitPerMinute int
	SessionTTL         time.Duration
}

type Dependencies struct {
	Entries  EntryStore
	Flow     EntryFlow
	Sessions *session.Store
	Ready    ReadinessChecker
	Metrics  *metrics.Metrics
	Logger   *applog.Logger
	// Now defaults to time.Now.
	Now      func() time.Time
}

type Server struct {
	http.Server

	templates *template.Template
	entries   EntryStore
	flow      EntryFlow
	sessions  *session.Store
	ready     ReadinessChecker
	metrics   *metrics.Metrics
	logger    *applog.Logger
	now       func() time.Time
	started   time.Time

	identityHeader string
	defaultUser    string
	currency       string
	sessionTTL     time.Duration

	detector *security.Detector
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires the routes. A template
// that fails to parse is a startup error.
func NewServer(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Entries == nil || deps.Flow == nil || deps.Sessions == nil {
		return nil, errors.New("http server: entries, flow and sessions are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentHTTP})
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	if cfg.DefaultUser == "" {
		cfg.DefaultUser = core.PlaceholderOwner
	}

	s := &Server{
		entries:        deps.Entries,
		flow:           deps.Flow,
		sessions:       deps.Sessions,
		ready:          deps.Ready,
		metrics:        deps.Metrics,
		logger:         logger,
		now:            now,
		started:        now(),
		identityHeader: cfg.IdentityHeader,
		defaultUser:    cfg.DefaultUser,
		currency:       cfg.CurrencySymbol,
		sessionTTL:     cfg.SessionTTL,
		detector:       security.NewDetector(),
	}

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	s.tracer = trace.NewMiddleware(logger, deps.Metrics, s.detector.ExtractClientIP, routeTemplate)
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	}

	handler, err := s.routes()
	if err != nil {
		s.stopBackground()
		return nil, err
	}
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes() (http.Handler, error) {
	r := mux.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static)).Methods(http.MethodGet)

	ui := r.NewRoute().Subrouter()
	ui.Use(s.withIdentity, s.withSession, security.NoStore)
	if s.limiter != nil {
		ui.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ExtractClientIP(r))
			TooManyRequestsError().Write(w)
		}))
	}

	ui.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	ui.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	ui.HandleFunc("/entries", s.handleConfirm).Methods(http.MethodPost)
	ui.HandleFunc("/entries/discard", s.handleDiscard).Methods(http.MethodPost)
	ui.HandleFunc("/entries/{id:[0-9]+}", s.handleUpdate).Methods(http.MethodPost)
	ui.HandleFunc("/entries/{id:[0-9]+}/delete", s.handleDelete).Methods(http.MethodPost)
	ui.HandleFunc("/ui/dashboard", s.handleDashboard).Methods(http.MethodGet)
	ui.HandleFunc("/ui/entries/{id:[0-9]+}/edit", s.handleEditForm).Methods(http.MethodGet)
	ui.HandleFunc("/budget", s.handleBudget).Methods(http.MethodPost)
	ui.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	return r, nil
}

// routeTemplate labels metrics by route pattern so ids do not explode the
// label set.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) stopBackground() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// render executes a template into b, or a fresh 200 response when b is
// nil. Output is buffered so a failing template never sends half a page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Template execution failed", err, applog.ComponentHTTP, applog.OpRender,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
		InternalServerError("Something went wrong while rendering the page.").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.Header("Content-Type", "text/html; charset=utf-8").Body(buf.Bytes()).Write(w)
}
