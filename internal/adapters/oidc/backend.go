package oidc

// Package oidc provides an AccountBackend that signs users in against an external
// OpenID Connect provider using the resource-owner password grant.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/ports"
)

const (
	// DefaultSubjectPath selects the account id from ID token claims.
	DefaultSubjectPath = "sub"
	// DefaultEmailPath selects the email from ID token claims.
	DefaultEmailPath = "email"
)

// Config holds configuration for the OIDC backend.
type Config struct {
	ClientID     string
	ClientSecret string
	DiscoveryURL string
	Scope        string
	// SubjectPath and EmailPath are JMESPath expressions evaluated against the ID token claims.
	SubjectPath string
	EmailPath   string
	HTTPClient  *http.Client // Optional, defaults to a 30s-timeout client
}

// Backend implements ports.AccountBackend against an OIDC provider. Registration and
// password reset belong to the provider and are reported as unsupported.
type Backend struct {
	config      *oauth2.Config
	httpClient  *http.Client
	verifier    *gooidc.IDTokenVerifier
	subjectPath string
	emailPath   string
}

var _ ports.AccountBackend = (*Backend)(nil)

// NewBackend discovers the provider and validates the claim expressions.
func NewBackend(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}
	subjectPath := firstNonEmpty(strings.TrimSpace(cfg.SubjectPath), DefaultSubjectPath)
	emailPath := firstNonEmpty(strings.TrimSpace(cfg.EmailPath), DefaultEmailPath)
	for _, expr := range []string{subjectPath, emailPath} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid claim expression %q: %w", expr, err)
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scope := cfg.Scope
	if strings.TrimSpace(scope) == "" {
		scope = "openid email profile"
	}
	return &Backend{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
		httpClient:  httpClient,
		verifier:    op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		subjectPath: subjectPath,
		emailPath:   emailPath,
	}, nil
}

// Authenticate exchanges the password for tokens and maps the verified ID token to an Account.
func (b *Backend) Authenticate(ctx context.Context, email, password string) (domainauth.Account, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domainauth.Account{}, domainauth.ErrInvalidCredentials
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	tok, err := b.config.PasswordCredentialsToken(ctx, strings.TrimSpace(email), password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && (re.ErrorCode == "invalid_grant" || re.ErrorCode == "invalid_request") {
			return domainauth.Account{}, domainauth.ErrInvalidCredentials
		}
		return domainauth.Account{}, fmt.Errorf("password grant: %w", err)
	}

	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return domainauth.Account{}, err
	}
	idTok, err := b.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Account{}, fmt.Errorf("verify id_token: %w", err)
	}
	var claims map[string]any
	if err := idTok.Claims(&claims); err != nil {
		return domainauth.Account{}, fmt.Errorf("parse id_token claims: %w", err)
	}

	uid, err := claimString(b.subjectPath, claims)
	if err != nil {
		return domainauth.Account{}, err
	}
	if uid == "" {
		return domainauth.Account{}, fmt.Errorf("id_token has no subject at %q", b.subjectPath)
	}
	claimEmail, err := claimString(b.emailPath, claims)
	if err != nil {
		return domainauth.Account{}, err
	}
	return domainauth.Account{UID: uid, Email: firstNonEmpty(claimEmail, strings.TrimSpace(email))}, nil
}

// Register is not available; accounts are created in the provider.
func (b *Backend) Register(context.Context, string, string) (domainauth.Account, error) {
	return domainauth.Account{}, domainauth.NewProviderError("create account", domainauth.ErrUnsupported)
}

// RequestPasswordReset is not available; passwords are managed by the provider.
func (b *Backend) RequestPasswordReset(context.Context, string) error {
	return domainauth.NewProviderError("password reset", domainauth.ErrUnsupported)
}

func claimString(expr string, claims map[string]any) (string, error) {
	v, err := jmespath.Search(expr, claims)
	if err != nil {
		return "", fmt.Errorf("evaluate claim %q: %w", expr, err)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		return fmt.Sprintf("%.0f", t), nil
	default:
		return "", fmt.Errorf("claim %q is %T, want string", expr, v)
	}
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	s, ok := tok.Extra("id_token").(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
