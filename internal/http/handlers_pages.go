package httpx

import (
	"log/slog"
	"net/http"
)

// Page names returned in PageModel.Page.
const (
	PageLanding      = "landing"
	PageLogin        = "login"
	PageSignup       = "signup"
	PageReset        = "reset"
	PageCitizenHome  = "citizen_dashboard"
	PageReport       = "report_incident"
	PageReports      = "my_reports"
	PageStationAdmin = "station_dashboard"
	PageOfficial     = "official_dashboard"
	PageNotFound     = "not_found"
)

// PageHandlers serves the JSON page models behind Guard.
type PageHandlers struct {
	Flash  FlashReader
	Logger *slog.Logger
}

// Page returns a handler for the named page.
func (h *PageHandlers) Page(name string) http.Handler {
	return h.page(name, http.StatusOK)
}

// NotFound is served for undeclared paths that Guard let through.
func (h *PageHandlers) NotFound() http.Handler {
	return h.page(PageNotFound, http.StatusNotFound)
}

func (h *PageHandlers) page(name string, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		model := PageModel{Page: name}
		if sess, ok := SessionFromContext(r.Context()); ok {
			model.Principal = NewPrincipalView(sess.Principal)
		}
		logger := h.Logger
		if logger == nil {
			logger = slog.Default()
		}
		model.Notifications = drainFlash(r.Context(), h.Flash, logger)
		WriteJSON(w, status, model)
	})
}
