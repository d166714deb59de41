package http

import (
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ressarcimento/internal/ledger"
	"ressarcimento/internal/log"
	"ressarcimento/internal/metrics"
	"ressarcimento/internal/middleware/security"
	"ressarcimento/internal/middleware/trace"
	"ressarcimento/internal/spreadsheet"
	appweb "ressarcimento/web"
)

// storeTimeout bounds persistence calls made on behalf of a request.
// The Sheets backend is the slow one.
const storeTimeout = 15 * time.Second

// Options carries the optional collaborators of a Server.
type Options struct {
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	ExportPrefix string
	Now          func() time.Time
}

type Server struct {
	http.Server
	ledger       *ledger.Ledger
	templates    *template.Template
	logger       *log.Logger
	metrics      *metrics.Metrics
	exportPrefix string
	now          func() time.Time
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, l *ledger.Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportPrefix == "" {
		opts.ExportPrefix = spreadsheet.DefaultPrefix
	}

	mux := http.NewServeMux()
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:       l,
		logger:       logger,
		metrics:      opts.Metrics,
		exportPrefix: opts.ExportPrefix,
		now:          opts.Now,
	}

	// Parse embedded templates at startup.
	t, err := parseTemplates()
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	// UI partials
	mux.Handle("GET /ui/records", security.NoStore(http.HandlerFunc(s.handleRecordsPartial)))
	mux.Handle("GET /ui/week", security.NoStore(http.HandlerFunc(s.handleWeekPartial)))

	// Mutations
	mux.HandleFunc("POST /records", s.handleCreateRecord)
	mux.HandleFunc("POST /records/{index}/delete", s.handleDeleteRecord)
	mux.HandleFunc("DELETE /records/{index}", s.handleDeleteRecord)
	mux.HandleFunc("POST /records/clear", s.handleClearRecords)
	mux.HandleFunc("POST /records/import", s.handleImportRecords)
	mux.HandleFunc("POST /reload", s.handleReload)

	mux.Handle("GET /export/weekly", security.NoStore(http.HandlerFunc(s.handleExportWeekly)))

	routeOf := func(r *http.Request) string {
		if _, pattern := mux.Handler(r); pattern != "" {
			return pattern
		}
		return "unmatched"
	}

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(trace.RequestID)(handler)
	handler = log.Middleware(logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, opts.Metrics, extractClientIP).WithRoute(routeOf).Middleware(handler)
	s.Handler = handler

	return s
}

func parseTemplates() (*template.Template, error) {
	return template.New("").ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports not ready while the last load failed, so a proxy stops
// routing writes to an instance that would reject them anyway.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if res := s.ledger.LastLoad(); res.Failed() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: " + res.Err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
