// Package http serves the office dashboard: login, jobs, payments, reports
// and user management, rendered from embedded templates.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"lihkab/internal/auth"
	"lihkab/internal/log"
	"lihkab/internal/middleware/ratelimit"
	"lihkab/internal/middleware/security"
	"lihkab/internal/middleware/trace"
	"lihkab/internal/services"
	appweb "lihkab/web"
)

const loginPath = "/login"

// Options wires the server to its services.
type Options struct {
	Addr           string
	Jobs           *services.JobService
	Users          *services.UserService
	Sessions       *auth.Manager
	Logger         *log.Logger
	GatewayTimeout time.Duration
	// Ready checks the backing store for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
	// RateLimit bounds POST requests per client; zero uses the defaults.
	RateLimit ratelimit.Config
}

// Server is the web front end.
type Server struct {
	http.Server
	templates  *template.Template
	jobs       *services.JobService
	users      *services.UserService
	sessions   *auth.Manager
	logger     *log.Logger
	structured *log.StructuredLogger
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	timeout    time.Duration
	ready      func(ctx context.Context) error
	started    time.Time
	now        func() time.Time

	shutdownOnce sync.Once
}

// NewServer parses the templates and builds the route table.
func NewServer(opts Options) (*Server, error) {
	if opts.Jobs == nil || opts.Users == nil || opts.Sessions == nil {
		return nil, errors.New("http: jobs, users and sessions are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = 15 * time.Second
	}

	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:  tmpl,
		jobs:       opts.Jobs,
		users:      opts.Users,
		sessions:   opts.Sessions,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:   security.NewDetector(),
		timeout:    opts.GatewayTimeout,
		ready:      opts.Ready,
		started:    time.Now(),
		now:        time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	} else {
		mux.Handle("GET /static/", security.StaticAssets(3600)(http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	member := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(auth.RequireLogin(loginPath)(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(auth.RequireLogin(loginPath)(auth.RequireAdmin(h)))
	}

	mux.Handle("GET /{$}", member(s.handleDashboard))
	mux.Handle("GET /api/monthly-income", member(s.handleMonthlyIncome))

	mux.Handle("GET /jobs", member(s.handleJobs))
	mux.Handle("POST /jobs", member(s.handleAddJob))
	mux.Handle("POST /jobs/save", member(s.handleSaveJobs))

	mux.Handle("GET /payments", member(s.handlePayments))
	mux.Handle("GET /payments/pending.pdf", member(s.handlePendingPDF))
	mux.Handle("GET /payments/report.xlsx", member(s.handleReportXLSX))

	mux.Handle("GET /users", admin(s.handleUsers))
	mux.Handle("POST /users", admin(s.handleAddUser))
	mux.Handle("POST /users/delete", admin(s.handleDeleteUser))
}

// middleware is applied outermost first: logger, trace, headers, screening,
// rate limit, session.
func (s *Server) middleware(next http.Handler) http.Handler {
	h := s.sessions.Middleware(next)
	h = s.limiter.Middleware(s.detector.ClientIP, nil)(h)
	h = s.screen(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.tracer.Handler(h)
	return log.Middleware(s.logger)(h)
}

// screen answers 404 to requests that look like vulnerability probes.
func (s *Server) screen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.Suspicious(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldPath, r.URL.Path, log.FieldClientIP, s.detector.ClientIP(r))
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start runs background helpers owned by the server.
func (s *Server) Start() {
	s.limiter.Start()
}

// Shutdown stops accepting requests and ends the background helpers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// gatewayContext bounds a handler's calls to the backing store.
func (s *Server) gatewayContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}
