package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"finance/internal/cache"
	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/middleware/ratelimit"
	"finance/internal/middleware/security"
	"finance/internal/middleware/trace"
	"finance/internal/services"
	appweb "finance/web"
)

// Ledger is the service surface the web UI needs.
type Ledger interface {
	AddTransaction(ctx context.Context, in services.AddInput) (core.Transaction, string, error)
	Summary(ctx context.Context) (core.Summary, error)
	ExpenseBreakdown(ctx context.Context) ([]core.CategoryAmount, error)
	Transactions(ctx context.Context, f services.TransactionFilter) ([]core.Transaction, error)
	Categories(ctx context.Context) ([]string, error)
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr               string
	Currency           string
	CacheTTL           time.Duration
	RateLimitPerMinute int
	Logger             *applog.Logger
}

const (
	keySummary   = "summary"
	keyBreakdown = "breakdown"
	keyChart     = "chart.svg"

	readTimeout = 7 * time.Second
)

type Server struct {
	http.Server
	ledger    Ledger
	templates *template.Template
	logger    *applog.Logger
	currency  string

	summaryCache   *cache.LRUCache[core.Summary]
	breakdownCache *cache.LRUCache[[]core.CategoryAmount]
	chartCache     *cache.LRUCache[[]byte]
	cacheManager   *cache.Manager
	group          singleflight.Group
	// generation changes on every mutation so in-flight loads don't repopulate stale data
	generation atomic.Int64

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	ipResolver      *security.ClientIPResolver

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	transactionsCreated int64
	resets              int64
	uptime              time.Time
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Currency == "" {
		opts.Currency = core.DefaultCurrencySymbol
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:         ledger,
		logger:         logger,
		currency:       opts.Currency,
		summaryCache:   cache.NewLRUCache[core.Summary](4, opts.CacheTTL),
		breakdownCache: cache.NewLRUCache[[]core.CategoryAmount](4, opts.CacheTTL),
		chartCache:     cache.NewLRUCache[[]byte](4, opts.CacheTTL),
		cacheManager:   cache.NewManager(opts.Logger),
		rateLimiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		ipResolver:     security.NewClientIPResolver(),
		appMetrics:     &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(opts.Logger, s.ipResolver.ExtractClientIP)

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.breakdownCache)
	s.cacheManager.Register(s.chartCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(s.templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("/transactions", s.handleCreateTransaction)
	mux.HandleFunc("/reset", s.handleReset)

	mux.HandleFunc("GET /ui/summary", s.handleSummary)
	mux.HandleFunc("GET /ui/chart", s.handleChartPartial)
	mux.HandleFunc("GET /ui/transactions", s.handleTransactions)
	mux.HandleFunc("GET /chart.svg", s.handleChartSVG)

	limited := s.rateLimiter.Middleware(s.ipResolver.ExtractClientIP, s.onRateLimit, http.MethodPost)(mux)
	secured := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)
	return s.traceMiddleware.Middleware(secured)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").
		Header("Retry-After", "60").
		Write(w)
}

// invalidate drops every cached read after a ledger mutation.
func (s *Server) invalidate() {
	s.generation.Add(1)
	s.summaryCache.Purge()
	s.breakdownCache.Purge()
	s.chartCache.Purge()
}

// chartVersion lets the page bust the browser cache of /chart.svg.
func (s *Server) chartVersion() string {
	return strconv.FormatInt(s.generation.Load(), 10)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
