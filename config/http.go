package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://app.example.com").
	// Used for absolute links such as password reset emails.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for the client session cookie.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure forces the Secure attribute on cookies; defaults from BaseURL's scheme.
	CookieSecure bool `env:"APP_COOKIE_SECURE" envDefault:"false"`

	// TrustProxy keys rate limits by X-Forwarded-For. Enable only behind a proxy that sets it.
	TrustProxy bool `env:"HTTP_TRUST_PROXY" envDefault:"false"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	h.CookieDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h.CookieDomain), "."))
	if strings.HasPrefix(h.BaseURL, "https://") {
		h.CookieSecure = true
	}
}

// Validate rejects a malformed base URL and cookie domains that are public suffixes,
// since browsers drop cookies scoped to them.
func (h *HTTPConfig) Validate() error {
	u, err := url.Parse(h.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_BASE_URL %q must be an absolute URL", h.BaseURL)
	}
	return ValidateCookieDomain(h.CookieDomain)
}

// ValidateCookieDomain accepts an empty domain, localhost, an IP, or a registrable domain.
func ValidateCookieDomain(domain string) error {
	if domain == "" || domain == "localhost" || net.ParseIP(domain) != nil {
		return nil
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q is not a registrable domain: %w", domain, err)
	}
	return nil
}
