package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Sessions    SessionService
	Flash       FlashReader       // Optional: notifications are empty without it
	Metrics     *Metrics          // Optional: disables /metrics and instrumentation when nil
	RateLimit   *RateLimiter      // Optional: applied to auth POST endpoints
	SignupRoles []domainauth.Role // Optional: every role may sign up when empty
	Cookie      CookieConfig
	Health      map[string]HealthCheck
	Logger      *slog.Logger // Optional
}

// pageRoute maps a declared path to the page model name served for it.
type pageRoute struct {
	path string
	page string
}

var pageRoutes = []pageRoute{
	{domainauth.PathLogin, PageLogin},
	{domainauth.PathSignup, PageSignup},
	{domainauth.PathReset, PageReset},
	{domainauth.PathCitizenHome, PageCitizenHome},
	{"/u/report", PageReport},
	{"/u/reports", PageReports},
	{domainauth.PathStationAdminHome, PageStationAdmin},
	{domainauth.PathOfficialHome, PageOfficial},
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	m := services.Metrics

	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, m.Instrument(pattern, h))
	}

	pages := &PageHandlers{Flash: services.Flash, Logger: logger}
	guard := Guard(services.Sessions, m)
	handle("GET /{$}", guard(pages.Page(PageLanding)))
	for _, pr := range pageRoutes {
		handle("GET "+pr.path, guard(pages.Page(pr.page)))
	}
	// Unknown paths still pass through Guard so namespace containment applies.
	handle("GET /", guard(pages.NotFound()))

	auth := &AuthHandlers{Sessions: services.Sessions, SignupRoles: services.SignupRoles, Logger: logger}
	limit := func(h http.HandlerFunc) http.Handler { return services.RateLimit.Middleware(h) }
	handle("POST /auth/login", limit(auth.Login))
	handle("POST /auth/signup", limit(auth.Signup))
	handle("POST /auth/logout", http.HandlerFunc(auth.Logout))
	handle("POST /auth/reset", limit(auth.RequestReset))
	handle("POST /auth/reset/confirm", limit(auth.ConfirmReset))

	api := &SessionHandlers{Sessions: services.Sessions, Flash: services.Flash, Metrics: m, Logger: logger}
	handle("GET /api/session", http.HandlerFunc(api.Session))
	handle("GET /api/authorize", http.HandlerFunc(api.Authorize))
	handle("GET /api/notifications", http.HandlerFunc(api.Notifications))

	health := healthHandler(services.Health)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	var h http.Handler = mux
	h = ClientSession(services.Cookie)(h)
	h = Logging(logger)(h)
	return Recover(logger)(h)
}
