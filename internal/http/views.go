package httpx

import (
	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/ports"
	"github.com/kavach-app/kavach/internal/service"
)

// StationView is the JSON form of a station assignment.
type StationView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PrincipalView is the JSON form of a resolved principal.
type PrincipalView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Home  string `json:"home"`
	domainauth.ProfileAttributes
	Station *StationView `json:"station,omitempty"`
}

// NewPrincipalView converts p; nil stays nil.
func NewPrincipalView(p *domainauth.Principal) *PrincipalView {
	if p == nil {
		return nil
	}
	v := &PrincipalView{
		ID:                p.ID,
		Email:             p.Email,
		Role:              string(p.Role()),
		Home:              p.Role().Home(),
		ProfileAttributes: p.ProfileAttributes,
	}
	if st, ok := p.Station(); ok {
		v.Station = &StationView{ID: st.ID, Name: st.Name}
	}
	return v
}

// SessionView is the JSON form of a session snapshot.
type SessionView struct {
	Status        domainauth.Status      `json:"status"`
	Authenticated bool                   `json:"authenticated"`
	Credential    *domainauth.Credential `json:"credential,omitempty"`
	Principal     *PrincipalView         `json:"principal"`
}

// NewSessionView converts sess.
func NewSessionView(sess domainauth.Session) SessionView {
	return SessionView{
		Status:        sess.Status,
		Authenticated: sess.IsAuthenticated(),
		Credential:    sess.Credential,
		Principal:     NewPrincipalView(sess.Principal),
	}
}

// PageModel is returned for every page route. Rendering happens in the client.
type PageModel struct {
	Page          string               `json:"page"`
	Principal     *PrincipalView       `json:"principal"`
	Notifications []ports.Notification `json:"notifications"`
}

// AuthResult is returned by the auth endpoints on success.
type AuthResult struct {
	Session  SessionView `json:"session"`
	Redirect string      `json:"redirect"`
}

// DecisionResult is returned by /api/authorize and by Guard to JSON clients.
type DecisionResult struct {
	Path     string           `json:"path"`
	Decision service.Decision `json:"decision"`
	Session  SessionView      `json:"session"`
}
