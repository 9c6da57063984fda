package auth

import (
	"errors"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles() {
		got, err := ParseRole(string(r))
		if err != nil || got != r {
			t.Fatalf("ParseRole(%q) = %q, %v", r, got, err)
		}
	}
	if got, err := ParseRole(" Station_Admin "); err != nil || got != RoleStationAdmin {
		t.Fatalf("expected normalized station_admin, got %q, %v", got, err)
	}
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestRole_RankAndHome(t *testing.T) {
	if !(RoleCitizen.Rank() < RoleStationAdmin.Rank() && RoleStationAdmin.Rank() < RoleOfficial.Rank()) {
		t.Fatalf("unexpected rank order")
	}
	homes := map[Role]string{
		RoleCitizen:      "/u/dashboard",
		RoleStationAdmin: "/a/dashboard",
		RoleOfficial:     "/sa/dashboard",
	}
	for r, want := range homes {
		if got := r.Home(); got != want {
			t.Fatalf("%s home = %q, want %q", r, got, want)
		}
	}
	if Role("ghost").Rank() >= 0 {
		t.Fatalf("unknown role should rank below citizen")
	}
}

func TestPrincipalFromProfile_Citizen(t *testing.T) {
	p, err := PrincipalFromProfile("u1", ProfileDocument{Email: "a@x.io", Role: "citizen", DisplayName: "Asha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role() != RoleCitizen || p.ID != "u1" || p.DisplayName != "Asha" {
		t.Fatalf("unexpected principal: %+v", p)
	}
	if _, ok := p.Station(); ok {
		t.Fatalf("citizen must not carry a station")
	}
}

func TestPrincipalFromProfile_StationRoles(t *testing.T) {
	for _, role := range []Role{RoleStationAdmin, RoleOfficial} {
		doc := ProfileDocument{Email: "o@x.io", Role: string(role), StationID: "st-9", StationName: "Central"}
		p, err := PrincipalFromProfile("u2", doc)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", role, err)
		}
		st, ok := p.Station()
		if !ok || st.ID != "st-9" || st.Name != "Central" {
			t.Fatalf("%s: unexpected station %+v ok=%v", role, st, ok)
		}
		if p.Role() != role {
			t.Fatalf("role = %s, want %s", p.Role(), role)
		}
	}
}

func TestPrincipalFromProfile_Rejects(t *testing.T) {
	cases := map[string]ProfileDocument{
		"unknown role":         {Role: "mayor"},
		"admin missing name":   {Role: "station_admin", StationID: "st-1"},
		"official missing id":  {Role: "official", StationName: "North"},
		"citizen with station": {Role: "citizen", StationID: "st-1", StationName: "North"},
	}
	for name, doc := range cases {
		if _, err := PrincipalFromProfile("u3", doc); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := PrincipalFromProfile("", ProfileDocument{Role: "citizen"}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestNewProfileDocument_CopiesExtra(t *testing.T) {
	extra := map[string]string{"ward": "7"}
	doc := NewProfileDocument("e@x.io", RoleCitizen, time.Unix(10, 0), ProfileFields{Extra: extra})
	extra["ward"] = "8"
	if doc.Extra["ward"] != "7" {
		t.Fatalf("extra fields must be copied")
	}
	if doc.Role != "citizen" || !doc.CreatedAt.Equal(time.Unix(10, 0)) {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestRouteTable(t *testing.T) {
	table := DefaultRouteTable()
	d, ok := table.Lookup("/u/report")
	if !ok || !d.Allows(RoleCitizen) || d.Allows(RoleOfficial) {
		t.Fatalf("unexpected declaration %+v", d)
	}
	if !table.Resolve("/nowhere").Public() {
		t.Fatalf("undeclared paths resolve public")
	}
	ns, ok := table.NamespaceFor("/sa/anything")
	if !ok || ns.Owner != RoleOfficial {
		t.Fatalf("unexpected namespace %+v", ns)
	}
	if _, ok := table.NamespaceFor("/auth/login"); ok {
		t.Fatalf("auth pages belong to no namespace")
	}
	if len(table.Routes()) != 9 || table.Routes()[0].Path != "/" {
		t.Fatalf("unexpected route order")
	}
	if got := len(table.Namespaces()); got != 3 {
		t.Fatalf("expected 3 namespaces, got %d", got)
	}
}

func TestRouteTable_NamespaceOwnerIsLeastPrivileged(t *testing.T) {
	table := NewRouteTable([]RouteDeclaration{
		{Path: "/ops/board", AllowedRoles: []Role{RoleOfficial}},
		{Path: "/ops/queue", AllowedRoles: []Role{RoleStationAdmin, RoleOfficial}},
		{Path: "/help/faq"},
		{Path: "/about", AllowedRoles: []Role{RoleCitizen}},
	})
	ns := table.Namespaces()
	if len(ns) != 1 || ns[0].Prefix != "/ops/" || ns[0].Owner != RoleStationAdmin {
		t.Fatalf("unexpected namespaces %+v", ns)
	}
}

func TestRoleHomeIsDeclaredForRole(t *testing.T) {
	table := DefaultRouteTable()
	for _, r := range Roles() {
		d, ok := table.Lookup(r.Home())
		if !ok || !d.Allows(r) {
			t.Fatalf("home %q for %s is not a route allowing it", r.Home(), r)
		}
	}
}

func TestIsAuthPage(t *testing.T) {
	for _, p := range []string{"/", "/auth/login", "/auth/signup", "/auth/reset"} {
		if !IsAuthPage(p) {
			t.Fatalf("%s should be an auth page", p)
		}
	}
	if IsAuthPage("/u/dashboard") || IsAuthPage("/authx") {
		t.Fatalf("unexpected auth page match")
	}
}

func TestSession_Flags(t *testing.T) {
	p := NewCitizen("u", "e", ProfileAttributes{})
	if (Session{Status: StatusLoading, Principal: &p}).IsAuthenticated() {
		t.Fatalf("loading session is not authenticated")
	}
	if !(Session{Status: StatusReady, Principal: &p}).IsAuthenticated() {
		t.Fatalf("expected authenticated")
	}
}

func TestProviderError(t *testing.T) {
	base := errors.New("quota exceeded")
	err := AsProviderError("login", base)
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Message != "quota exceeded" || !errors.Is(err, base) {
		t.Fatalf("unexpected provider error %#v", err)
	}
	if AsProviderError("login", ErrInvalidCredentials) != ErrInvalidCredentials {
		t.Fatalf("sentinels pass through unchanged")
	}
	if AsProviderError("login", nil) != nil {
		t.Fatalf("nil stays nil")
	}
}
