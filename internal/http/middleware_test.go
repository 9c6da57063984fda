package httpx

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/service"
)

func TestSafeRedirectPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/u/report", "/u/report"},
		{"/u/report?draft=1", "/u/report?draft=1"},
		{"https://evil.example/u", "/"},
		{"//evil.example/u", "/"},
		{"u/report", "/"},
		{"javascript:alert(1)", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeRedirectPath(tt.in), tt.in)
	}
}

func TestIsBrowserRequest(t *testing.T) {
	tests := []struct {
		path   string
		accept string
		want   bool
	}{
		{"/u/report", "", true},
		{"/u/report", "text/html,application/xhtml+xml", true},
		{"/u/report", "application/json", false},
		{"/u/report", "*/*", true},
		{"/api/session", "text/html", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.accept != "" {
			r.Header.Set("Accept", tt.accept)
		}
		assert.Equal(t, tt.want, IsBrowserRequest(r), "%s %s", tt.path, tt.accept)
	}
}

func TestDecisionStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, decisionStatus(service.Decision{Outcome: service.OutcomeLoading}))
	assert.Equal(t, http.StatusOK, decisionStatus(service.Decision{Outcome: service.OutcomeRender}))
	assert.Equal(t, http.StatusUnauthorized, decisionStatus(service.Decision{
		Outcome: service.OutcomeRedirect, Reason: service.ReasonUnauthenticated,
	}))
	assert.Equal(t, http.StatusOK, decisionStatus(service.Decision{
		Outcome: service.OutcomeRedirect, Reason: service.ReasonAlreadySignedIn,
	}))
	assert.Equal(t, http.StatusForbidden, decisionStatus(service.Decision{
		Outcome: service.OutcomeRedirect, Reason: service.ReasonPermissionDenied,
	}))
	assert.Equal(t, http.StatusForbidden, decisionStatus(service.Decision{
		Outcome: service.OutcomeRedirect, Reason: service.ReasonNamespace,
	}))
}

func TestRedirectLocation(t *testing.T) {
	unauth := service.Decision{Outcome: service.OutcomeRedirect, Target: domainauth.PathLogin, Reason: service.ReasonUnauthenticated}

	r := httptest.NewRequest(http.MethodGet, "/u/reports?page=2", nil)
	assert.Equal(t, "/auth/login?redirect_uri=%2Fu%2Freports%3Fpage%3D2", redirectLocation(unauth, r))

	root := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, domainauth.PathLogin, redirectLocation(unauth, root))

	denied := service.Decision{Outcome: service.OutcomeRedirect, Target: "/u/dashboard", Reason: service.ReasonNamespace}
	assert.Equal(t, "/u/dashboard", redirectLocation(denied, r))
}

func TestPostAuthRedirect(t *testing.T) {
	authz := service.NewAuthorizer(service.AuthorizerOptions{Routes: domainauth.DefaultRouteTable()})
	citizen := domainauth.NewCitizen("uid-1", "asha@example.in", domainauth.ProfileAttributes{})
	sess := domainauth.Session{
		Status:     domainauth.StatusReady,
		Credential: &domainauth.Credential{UID: "uid-1"},
		Principal:  &citizen,
	}

	assert.Equal(t, "/u/report", postAuthRedirect(authz, sess, "/u/report"))
	assert.Equal(t, domainauth.PathCitizenHome, postAuthRedirect(authz, sess, "/sa/dashboard"))
	assert.Equal(t, domainauth.PathCitizenHome, postAuthRedirect(authz, sess, "https://evil.example/"))
	assert.Equal(t, domainauth.PathCitizenHome, postAuthRedirect(authz, sess, ""))
	assert.Equal(t, domainauth.PathLanding, postAuthRedirect(authz, domainauth.Session{Status: domainauth.StatusReady}, "/u/report"))
}

func TestClientSession(t *testing.T) {
	var seen string
	h := ClientSession(CookieConfig{Domain: "kavach.example.in", Secure: true})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = ClientIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	cookie := rec.Result().Cookies()
	require.Len(t, cookie, 1)
	assert.Equal(t, seen, cookie[0].Value)
	assert.Equal(t, "kavach.example.in", cookie[0].Domain)
	assert.True(t, cookie[0].Secure)
	assert.Equal(t, int(defaultClientCookieMaxAge.Seconds()), cookie[0].MaxAge)

	existing := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: existing})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, existing, seen)
	assert.Empty(t, rec.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientCookieName, Value: "not-a-uuid"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestRateLimiter_PerKeyBucketsAndSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewRateLimiter(RateLimitOptions{PerSecond: 1, Burst: 2})
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))

	now = now.Add(10 * time.Minute)
	assert.True(t, l.Allow("10.0.0.3"))
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
}

func TestRateLimiter_NilAndDisabledPassThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	var nilLimiter *RateLimiter
	rec := httptest.NewRecorder()
	nilLimiter.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	off := NewRateLimiter(RateLimitOptions{})
	for i := 0; i < 5; i++ {
		rec = httptest.NewRecorder()
		off.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:52100"
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "192.0.2.10", clientIP(r, false))
	assert.Equal(t, "203.0.113.7", clientIP(r, true))

	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "192.0.2.10", clientIP(r, true))
}

func TestRecover(t *testing.T) {
	h := Recover(slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "boom"))
}
