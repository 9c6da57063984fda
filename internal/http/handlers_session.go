package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/ports"
	"github.com/kavach-app/kavach/internal/service"
)

var (
	errTooManyRequests = errors.New("too many requests, please try again later")
	errMissingClient   = errors.New("client session cookie is missing")
)

// SessionService resolves and authorizes sessions for browser clients.
// *service.SessionHub implements it.
type SessionService interface {
	Open(ctx context.Context, clientID string) (*service.Resolver, error)
	Await(ctx context.Context, r *service.Resolver) (domainauth.Session, error)
	Resolve(ctx context.Context, clientID string) (domainauth.Session, error)
	Decide(ctx context.Context, clientID, path string) (service.Decision, domainauth.Session)
	Preview(ctx context.Context, clientID, path string) (service.Decision, domainauth.Session)
	ConfirmPasswordReset(ctx context.Context, clientID, token, newPassword string) error
	Authorizer() *service.Authorizer
}

// FlashReader drains the notifications queued for a client.
type FlashReader interface {
	Drain(ctx context.Context, clientID string) ([]ports.Notification, error)
}

// SessionHandlers serves the session API.
type SessionHandlers struct {
	Sessions SessionService
	Flash    FlashReader
	Metrics  *Metrics
	Logger   *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Session returns the client's resolved session.
// GET /api/session.
func (h *SessionHandlers) Session(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Sessions.Resolve(r.Context(), ClientIDFromContext(r.Context()))
	if err != nil && !sess.IsReady() {
		w.Header().Set("Retry-After", "1")
		WriteJSON(w, http.StatusServiceUnavailable, NewSessionView(sess))
		return
	}
	WriteJSON(w, http.StatusOK, NewSessionView(sess))
}

// Authorize evaluates a navigation without performing it. Nothing is flashed.
// GET /api/authorize?path=/u/report.
func (h *SessionHandlers) Authorize(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("path must be an absolute application path"),
			Field:   "path",
		})
		return
	}
	d, sess := h.Sessions.Preview(r.Context(), ClientIDFromContext(r.Context()), path)
	h.Metrics.ObserveDecision(d)
	WriteJSON(w, decisionStatus(d), DecisionResult{Path: path, Decision: d, Session: NewSessionView(sess)})
}

// Notifications drains the client's pending notifications.
// GET /api/notifications.
func (h *SessionHandlers) Notifications(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string][]ports.Notification{
		"notifications": drainFlash(r.Context(), h.Flash, h.logger()),
	})
}

func drainFlash(ctx context.Context, flash FlashReader, logger *slog.Logger) []ports.Notification {
	out := []ports.Notification{}
	if flash == nil {
		return out
	}
	got, err := flash.Drain(ctx, ClientIDFromContext(ctx))
	if err != nil {
		logger.WarnContext(ctx, "drain notifications failed", "error", err)
		return out
	}
	return append(out, got...)
}
