package httpx

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/service"
)

// ClientCookieName identifies the browser client across requests.
const ClientCookieName = "kavach_sid"

const defaultClientCookieMaxAge = 365 * 24 * time.Hour

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CookieConfig controls the client cookie attributes.
type CookieConfig struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

// ClientSession reads the client cookie, issuing a fresh random id when it is missing
// or malformed, and stores the id in the request context.
func ClientSession(cfg CookieConfig) func(http.Handler) http.Handler {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultClientCookieMaxAge
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var clientID string
			if c, err := r.Cookie(ClientCookieName); err == nil {
				if id, parseErr := uuid.Parse(c.Value); parseErr == nil {
					clientID = id.String()
				}
			}
			if clientID == "" {
				clientID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     ClientCookieName,
					Value:    clientID,
					Path:     "/",
					Domain:   cfg.Domain,
					HttpOnly: true,
					Secure:   cfg.Secure || isSecureRequest(r),
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(maxAge.Seconds()),
				})
			}
			next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), clientID)))
		})
	}
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// RateLimiter is a token bucket per client IP.
type RateLimiter struct {
	limit          rate.Limit
	burst          int
	ttl            time.Duration
	trustForwarded bool
	now            func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimitOptions configures NewRateLimiter.
type RateLimitOptions struct {
	PerSecond float64
	Burst     int
	// TrustForwarded keys buckets by the first X-Forwarded-For address. Enable only
	// behind a proxy that overwrites the header.
	TrustForwarded bool
}

// NewRateLimiter constructs a RateLimiter. Idle buckets are dropped after five minutes.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:          rate.Limit(opts.PerSecond),
		burst:          burst,
		ttl:            5 * time.Minute,
		trustForwarded: opts.TrustForwarded,
		now:            time.Now,
		buckets:        make(map[string]*bucket),
	}
}

// Allow reports whether a request from key may proceed.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Middleware rejects requests over budget with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, l.trustForwarded)
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(ip) {
			w.Header().Set("Retry-After", "1")
			WriteError(w, ErrorParams{
				Code:    http.StatusTooManyRequests,
				ErrCode: "rate_limited",
				Err:     errTooManyRequests,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Guard resolves the client's session and authorizes the request path. Rendered pages
// see the session through SessionFromContext. Browsers are redirected; API clients
// receive the decision as JSON.
func Guard(sessions SessionService, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			d, sess := sessions.Decide(ctx, ClientIDFromContext(ctx), r.URL.Path)
			metrics.ObserveDecision(d)

			if d.Renders() {
				next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
				return
			}
			if d.Outcome == service.OutcomeLoading {
				w.Header().Set("Retry-After", "1")
			}
			if d.Outcome == service.OutcomeLoading || !IsBrowserRequest(r) {
				WriteJSON(w, decisionStatus(d), DecisionResult{Path: r.URL.Path, Decision: d, Session: NewSessionView(sess)})
				return
			}
			http.Redirect(w, r, redirectLocation(d, r), http.StatusSeeOther)
		})
	}
}

// decisionStatus is the status code a JSON client receives for a decision.
func decisionStatus(d service.Decision) int {
	switch {
	case d.Outcome == service.OutcomeLoading:
		return http.StatusServiceUnavailable
	case d.Outcome == service.OutcomeRender:
		return http.StatusOK
	case d.Reason == service.ReasonUnauthenticated:
		return http.StatusUnauthorized
	case d.Reason == service.ReasonAlreadySignedIn:
		return http.StatusOK
	default:
		return http.StatusForbidden
	}
}

// redirectLocation appends the requested page to login redirects so sign-in can return to it.
func redirectLocation(d service.Decision, r *http.Request) string {
	if d.Reason != service.ReasonUnauthenticated {
		return d.Target
	}
	back := safeRedirectPath(r.URL.RequestURI())
	if back == "/" {
		return d.Target
	}
	return d.Target + "?redirect_uri=" + url.QueryEscape(back)
}

// IsBrowserRequest reports whether the client expects navigations rather than JSON.
// API routes never are; otherwise the Accept header decides, defaulting to browser.
func IsBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	if strings.Contains(accept, "text/html") {
		return true
	}
	return !strings.Contains(accept, "application/json")
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	return candidate
}

// postAuthRedirect picks where a client goes after signing in: the requested page when
// the new session may view it, otherwise the role's home, or the landing page when no
// principal resolved.
func postAuthRedirect(authz *service.Authorizer, sess domainauth.Session, requested string) string {
	if !sess.IsAuthenticated() {
		return domainauth.PathLanding
	}
	home := sess.Principal.Role().Home()
	target := safeRedirectPath(requested)
	if target == "/" || authz == nil {
		return home
	}
	u, err := url.Parse(target)
	if err != nil {
		return home
	}
	if authz.Evaluate(sess, u.Path).Renders() {
		return target
	}
	return home
}
