package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Station identifies the police station a station_admin or official is attached to.
type Station struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewStation validates and builds a Station. Both fields must be non-empty.
func NewStation(id, name string) (Station, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return Station{}, errors.New("station id is required")
	}
	if name == "" {
		return Station{}, errors.New("station name is required")
	}
	return Station{ID: id, Name: name}, nil
}

// ProfileAttributes are the optional, role-independent profile fields.
type ProfileAttributes struct {
	DisplayName string `json:"display_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Principal is the resolved identity for the current session.
//
// The role and station are unexported so the only way to obtain a Principal is through
// NewCitizen, NewStationAdmin, NewOfficial or PrincipalFromProfile. A citizen never
// carries a station; the other variants always carry a validated one.
type Principal struct {
	ID    string
	Email string
	ProfileAttributes

	role    Role
	station *Station
}

// NewCitizen builds a citizen principal.
func NewCitizen(id, email string, attrs ProfileAttributes) Principal {
	return Principal{ID: id, Email: email, ProfileAttributes: attrs, role: RoleCitizen}
}

// NewStationAdmin builds a station administrator principal.
func NewStationAdmin(id, email string, attrs ProfileAttributes, st Station) Principal {
	return Principal{ID: id, Email: email, ProfileAttributes: attrs, role: RoleStationAdmin, station: &st}
}

// NewOfficial builds a government official principal.
func NewOfficial(id, email string, attrs ProfileAttributes, st Station) Principal {
	return Principal{ID: id, Email: email, ProfileAttributes: attrs, role: RoleOfficial, station: &st}
}

// Role returns the principal's role.
func (p Principal) Role() Role { return p.role }

// Station returns the station assignment; ok is false for citizens.
func (p Principal) Station() (Station, bool) {
	if p.station == nil {
		return Station{}, false
	}
	return *p.station, true
}

// ProfileDocument is the stored profile record keyed by the account identifier.
type ProfileDocument struct {
	Email       string            `json:"email"`
	Role        string            `json:"role"`
	CreatedAt   time.Time         `json:"created_at"`
	DisplayName string            `json:"display_name,omitempty"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	PhotoURL    string            `json:"photo_url,omitempty"`
	StationID   string            `json:"station_id,omitempty"`
	StationName string            `json:"station_name,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// ProfileFields are the caller-supplied fields merged into a new profile at signup.
type ProfileFields struct {
	DisplayName string
	PhoneNumber string
	PhotoURL    string
	StationID   string
	StationName string
	Extra       map[string]string
}

// NewProfileDocument assembles the document written at signup.
func NewProfileDocument(email string, role Role, createdAt time.Time, f ProfileFields) ProfileDocument {
	doc := ProfileDocument{
		Email:       email,
		Role:        string(role),
		CreatedAt:   createdAt.UTC(),
		DisplayName: f.DisplayName,
		PhoneNumber: f.PhoneNumber,
		PhotoURL:    f.PhotoURL,
		StationID:   f.StationID,
		StationName: f.StationName,
	}
	if len(f.Extra) > 0 {
		doc.Extra = make(map[string]string, len(f.Extra))
		for k, v := range f.Extra {
			doc.Extra[k] = v
		}
	}
	return doc
}

// PrincipalFromProfile merges the account identifier with a stored profile.
// It fails when the role is unknown or when the station fields do not match the role.
func PrincipalFromProfile(id string, doc ProfileDocument) (Principal, error) {
	if strings.TrimSpace(id) == "" {
		return Principal{}, errors.New("principal id is required")
	}
	role, err := ParseRole(doc.Role)
	if err != nil {
		return Principal{}, err
	}
	attrs := ProfileAttributes{
		DisplayName: doc.DisplayName,
		PhoneNumber: doc.PhoneNumber,
		PhotoURL:    doc.PhotoURL,
	}

	switch role {
	case RoleCitizen:
		if doc.StationID != "" || doc.StationName != "" {
			return Principal{}, fmt.Errorf("%s profile must not carry a station", role)
		}
		return NewCitizen(id, doc.Email, attrs), nil
	case RoleStationAdmin:
		st, stErr := NewStation(doc.StationID, doc.StationName)
		if stErr != nil {
			return Principal{}, fmt.Errorf("%s profile: %w", role, stErr)
		}
		return NewStationAdmin(id, doc.Email, attrs, st), nil
	case RoleOfficial:
		st, stErr := NewStation(doc.StationID, doc.StationName)
		if stErr != nil {
			return Principal{}, fmt.Errorf("%s profile: %w", role, stErr)
		}
		return NewOfficial(id, doc.Email, attrs, st), nil
	default:
		return Principal{}, fmt.Errorf("unknown role %q", role)
	}
}
