package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/service"
)

// AuthHandlers provides HTTP handlers for the explicit identity operations. Each request
// opens a resolver for the calling client, runs one operation, and reports the session
// it settled into.
type AuthHandlers struct {
	Sessions SessionService
	// SignupRoles limits the roles sign up may request. Empty allows every role.
	SignupRoles []domainauth.Role
	Logger      *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

type signupRequest struct {
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	Role        string            `json:"role,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	PhotoURL    string            `json:"photo_url,omitempty"`
	StationID   string            `json:"station_id,omitempty"`
	StationName string            `json:"station_name,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// withResolver opens a resolver for the client and runs fn with it.
func (h *AuthHandlers) withResolver(w http.ResponseWriter, r *http.Request, fallback string, fn func(*service.Resolver)) {
	clientID := ClientIDFromContext(r.Context())
	if clientID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: errMissingClient})
		return
	}
	res, err := h.Sessions.Open(r.Context(), clientID)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "open session failed", "error", err)
		WriteAppError(w, err, fallback)
		return
	}
	defer res.Close()
	fn(res)
}

// Login signs the client in.
// POST /auth/login {"email","password","redirect_uri"}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	h.withResolver(w, r, service.MsgLoginFailed, func(res *service.Resolver) {
		if err := res.Login(r.Context(), req.Email, req.Password); err != nil {
			WriteAppError(w, err, service.MsgLoginFailed)
			return
		}
		sess, _ := h.Sessions.Await(r.Context(), res)
		WriteJSON(w, http.StatusOK, AuthResult{
			Session:  NewSessionView(sess),
			Redirect: postAuthRedirect(h.Sessions.Authorizer(), sess, req.RedirectURI),
		})
	})
}

// Signup creates an account with its profile and signs it in. The role defaults to
// citizen; station and official accounts must name their station.
// POST /auth/signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	role, err := h.signupRole(req.Role)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err, Field: "role"})
		return
	}

	h.withResolver(w, r, service.MsgSignupFailed, func(res *service.Resolver) {
		err := res.Signup(r.Context(), service.SignupInput{
			Email:    req.Email,
			Password: req.Password,
			Role:     role,
			Fields: domainauth.ProfileFields{
				DisplayName: strings.TrimSpace(req.DisplayName),
				PhoneNumber: strings.TrimSpace(req.PhoneNumber),
				PhotoURL:    strings.TrimSpace(req.PhotoURL),
				StationID:   strings.TrimSpace(req.StationID),
				StationName: strings.TrimSpace(req.StationName),
				Extra:       req.Extra,
			},
		})
		if err != nil {
			WriteAppError(w, err, service.MsgSignupFailed)
			return
		}
		sess, _ := h.Sessions.Await(r.Context(), res)
		WriteJSON(w, http.StatusCreated, AuthResult{
			Session:  NewSessionView(sess),
			Redirect: postAuthRedirect(h.Sessions.Authorizer(), sess, ""),
		})
	})
}

func (h *AuthHandlers) signupRole(raw string) (domainauth.Role, error) {
	if strings.TrimSpace(raw) == "" {
		return domainauth.RoleCitizen, nil
	}
	role, err := domainauth.ParseRole(raw)
	if err != nil {
		return "", err
	}
	if len(h.SignupRoles) > 0 && !slices.Contains(h.SignupRoles, role) {
		return "", fmt.Errorf("%s accounts cannot be created by sign up", role)
	}
	return role, nil
}

// Logout signs the client out. Signing out while signed out succeeds.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.withResolver(w, r, service.MsgLogoutFailed, func(res *service.Resolver) {
		if err := res.Logout(r.Context()); err != nil {
			WriteAppError(w, err, service.MsgLogoutFailed)
			return
		}
		sess, _ := h.Sessions.Await(r.Context(), res)
		WriteJSON(w, http.StatusOK, AuthResult{Session: NewSessionView(sess), Redirect: domainauth.PathLanding})
	})
}

// RequestReset asks the identity provider to email a reset link.
// POST /auth/reset {"email"}.
func (h *AuthHandlers) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	h.withResolver(w, r, service.MsgResetFailed, func(res *service.Resolver) {
		if err := res.RequestPasswordReset(r.Context(), req.Email); err != nil {
			WriteAppError(w, err, service.MsgResetFailed)
			return
		}
		WriteJSON(w, http.StatusAccepted, map[string]string{"status": "sent", "message": service.MsgResetSent})
	})
}

// ConfirmReset sets a new password using the token from the reset link.
// POST /auth/reset/confirm {"token","password"}.
func (h *AuthHandlers) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	err := h.Sessions.ConfirmPasswordReset(r.Context(), ClientIDFromContext(r.Context()), req.Token, req.Password)
	if errors.Is(err, service.ErrResetUnsupported) {
		WriteError(w, ErrorParams{Code: http.StatusNotImplemented, ErrCode: "unsupported", Err: err})
		return
	}
	if err != nil {
		WriteAppError(w, err, service.MsgResetConfirmFailed)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "updated",
		"message":  service.MsgResetConfirmed,
		"redirect": domainauth.PathLogin,
	})
}
