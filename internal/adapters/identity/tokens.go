package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/util"
)

const tokenIssuer = "kavach"

// minSecretLen is the shortest HS256 key accepted.
const minSecretLen = 32

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by a credential token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenOptions configures a TokenIssuer.
type TokenOptions struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

// TokenIssuer signs and verifies credential tokens using HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer validates options and constructs a TokenIssuer.
func NewTokenIssuer(opts TokenOptions) (*TokenIssuer, error) {
	secret := strings.TrimSpace(opts.Secret)
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("token secret must be at least %d characters", minSecretLen)
	}
	if opts.TTL <= 0 {
		return nil, errors.New("token ttl must be greater than zero")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), ttl: opts.TTL, now: now}, nil
}

// TTL returns the lifetime of issued tokens.
func (ti *TokenIssuer) TTL() time.Duration { return ti.ttl }

// Issue signs a credential for the account.
func (ti *TokenIssuer) Issue(acct domainauth.Account) (domainauth.Credential, error) {
	uid := strings.TrimSpace(acct.UID)
	if uid == "" {
		return domainauth.Credential{}, errors.New("account id is required")
	}

	now := ti.now().UTC().Truncate(time.Second)
	exp := now.Add(ti.ttl)
	claims := Claims{
		Email: acct.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        util.NewID(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return domainauth.Credential{}, fmt.Errorf("sign token: %w", err)
	}
	return domainauth.Credential{
		UID:       uid,
		Email:     acct.Email,
		Token:     signed,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// Verify checks the token signature and claims and returns the credential it encodes.
func (ti *TokenIssuer) Verify(token string) (domainauth.Credential, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domainauth.Credential{}, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return domainauth.Credential{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" || claims.IssuedAt == nil {
		return domainauth.Credential{}, ErrInvalidToken
	}

	return domainauth.Credential{
		UID:       claims.Subject,
		Email:     claims.Email,
		Token:     token,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
