package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	"fintrack/internal/sheets"
	appweb "fintrack/web"
)

// CurrencyCodes lists the currency codes offered in forms.
type CurrencyCodes interface {
	Codes(ctx context.Context) []string
}

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the pages. ReportMirror is optional:
// without it the "sheets" export type is refused.
type Deps struct {
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Budgets      *services.BudgetService
	Reports      *services.ReportService
	Reconciler   *services.Reconciler
	Importer     *services.Importer
	Codes        CurrencyCodes
	DB           Pinger

	ReportMirror sheets.ReportWriter
	ReportSheet  string
}

type Options struct {
	RateLimitPerMinute int
	Logger             *log.Logger
}

// appMetrics counters are updated with sync/atomic.
type appMetrics struct {
	startedAt    time.Time
	transactions int64
	imported     int64
	exports      int64
	reconciled   int64
}

type Server struct {
	http.Server

	deps   Deps
	pages  map[string]*template.Template
	logger *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	if deps.ReportSheet == "" {
		deps.ReportSheet = "Report"
	}

	detector := security.NewDetector()
	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		deps:             deps,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(rlConfig),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		appMetrics:       &appMetrics{startedAt: time.Now()},
	}

	pages, err := parsePages(appweb.TemplatesFS)
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err, "error_type", log.ErrorTypeConfiguration)
	}
	s.pages = pages

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr: addr,
		Handler: chain(mux,
			s.traceMiddleware.Middleware,
			detector.Middleware,
			security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
			log.Middleware(logger),
			log.RequestIDMiddleware(trace.FromRequest),
			s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit),
		),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleHome)

	mux.HandleFunc("POST /transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleDeleteTransaction)
	mux.HandleFunc("DELETE /transactions/{id}/delete", s.handleDeleteTransaction)

	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("POST /categories/{id}", s.handleRenameCategory)
	mux.HandleFunc("POST /categories/{id}/delete", s.handleDeleteCategory)
	mux.HandleFunc("DELETE /categories/{id}/delete", s.handleDeleteCategory)

	mux.HandleFunc("GET /budget", s.handleBudgets)
	mux.HandleFunc("POST /budget", s.handleSetBudget)
	mux.HandleFunc("POST /budget/{id}/delete", s.handleDeleteBudget)
	mux.HandleFunc("DELETE /budget/{id}/delete", s.handleDeleteBudget)

	mux.HandleFunc("GET /settings", s.handleSettings)
	mux.HandleFunc("POST /settings", s.handleSetCurrency)

	mux.HandleFunc("POST /import", s.handleImport)

	mux.HandleFunc("GET /report", s.handleReport)
	mux.HandleFunc("POST /report/export", s.handleExport)
	mux.HandleFunc("POST /report/chart", s.handleChart)
}

// chain wraps h so that the first middleware is the outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later.").
		Header("Retry-After", "60").
		Write(w)
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

var templateFuncs = template.FuncMap{
	"money": core.FormatAmount,
	"lower": strings.ToLower,
}

// parsePages builds one template set per page, each combining the shared
// layout with the page's own "title" and "content" blocks.
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(fsys, "templates/layout.html")
	if err != nil {
		return nil, err
	}
	names, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		file := path.Base(name)
		if file == "layout.html" {
			continue
		}
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, name); err != nil {
			return nil, err
		}
		pages[strings.TrimSuffix(file, ".html")] = t
	}
	return pages, nil
}

// render executes the layout of page into a buffer so a template failure
// becomes a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page string, data any) {
	s.renderTemplate(w, r, page, "layout", data)
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, page, name string, data any) {
	t, ok := s.pages[page]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Template not loaded",
			"template", page,
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			"template", page, log.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
