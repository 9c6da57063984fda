package auth

import "strings"

// Well-known paths.
const (
	PathLanding          = "/"
	PathLogin            = "/auth/login"
	PathSignup           = "/auth/signup"
	PathReset            = "/auth/reset"
	PathCitizenHome      = "/u/dashboard"
	PathStationAdminHome = "/a/dashboard"
	PathOfficialHome     = "/sa/dashboard"

	// AuthNamespace holds the public sign-in pages.
	AuthNamespace = "/auth/"
)

// RouteDeclaration is static metadata for a navigable path.
// A nil AllowedRoles marks a public page.
type RouteDeclaration struct {
	Path         string
	AllowedRoles []Role
}

// Public reports whether any visitor may view the route.
func (d RouteDeclaration) Public() bool { return d.AllowedRoles == nil }

// Allows reports whether the role is in the route's allowed set.
func (d RouteDeclaration) Allows(r Role) bool {
	for _, allowed := range d.AllowedRoles {
		if allowed == r {
			return true
		}
	}
	return false
}

// Namespace is a path prefix owned by a role.
type Namespace struct {
	Prefix string
	Owner  Role
}

// Contains reports whether path falls under the namespace.
func (n Namespace) Contains(path string) bool {
	return strings.HasPrefix(path, n.Prefix)
}

// RouteTable is the static route configuration. It is not mutated after construction.
type RouteTable struct {
	routes     map[string]RouteDeclaration
	order      []string
	namespaces []Namespace
}

// NewRouteTable builds a table from declarations. Namespaces are derived from the
// protected routes: every protected path's first segment forms a namespace owned by the
// least privileged role allowed anywhere under it.
func NewRouteTable(decls []RouteDeclaration) RouteTable {
	t := RouteTable{
		routes: make(map[string]RouteDeclaration, len(decls)),
		order:  make([]string, 0, len(decls)),
	}
	for _, d := range decls {
		if _, dup := t.routes[d.Path]; !dup {
			t.order = append(t.order, d.Path)
		}
		t.routes[d.Path] = d
	}
	t.namespaces = deriveNamespaces(t.Routes())
	return t
}

func deriveNamespaces(decls []RouteDeclaration) []Namespace {
	owners := make(map[string]Role)
	var prefixes []string
	for _, d := range decls {
		if d.Public() {
			continue
		}
		prefix, ok := namespacePrefix(d.Path)
		if !ok {
			continue
		}
		for _, r := range d.AllowedRoles {
			cur, seen := owners[prefix]
			if !seen {
				prefixes = append(prefixes, prefix)
			}
			if !seen || r.Rank() < cur.Rank() {
				owners[prefix] = r
			}
		}
	}
	out := make([]Namespace, 0, len(prefixes))
	for _, p := range prefixes {
		out = append(out, Namespace{Prefix: p, Owner: owners[p]})
	}
	return out
}

// namespacePrefix returns "/seg/" for paths of the form "/seg/...".
func namespacePrefix(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/")
	if !ok {
		return "", false
	}
	seg, _, found := strings.Cut(rest, "/")
	if !found || seg == "" {
		return "", false
	}
	return "/" + seg + "/", true
}

// DefaultRouteTable returns the application's route declarations.
func DefaultRouteTable() RouteTable {
	citizen := []Role{RoleCitizen}
	return NewRouteTable([]RouteDeclaration{
		{Path: PathLanding},
		{Path: PathLogin},
		{Path: PathSignup},
		{Path: PathReset},
		{Path: PathCitizenHome, AllowedRoles: citizen},
		{Path: "/u/report", AllowedRoles: citizen},
		{Path: "/u/reports", AllowedRoles: citizen},
		{Path: PathStationAdminHome, AllowedRoles: []Role{RoleStationAdmin}},
		{Path: PathOfficialHome, AllowedRoles: []Role{RoleOfficial}},
	})
}

// Lookup returns the declaration for an exact path.
func (t RouteTable) Lookup(path string) (RouteDeclaration, bool) {
	d, ok := t.routes[path]
	return d, ok
}

// Resolve returns the declaration for path. Undeclared paths resolve to a public
// declaration so that they fall through to the not-found page.
func (t RouteTable) Resolve(path string) RouteDeclaration {
	if d, ok := t.routes[path]; ok {
		return d
	}
	return RouteDeclaration{Path: path}
}

// Routes returns the declarations in registration order.
func (t RouteTable) Routes() []RouteDeclaration {
	out := make([]RouteDeclaration, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.routes[p])
	}
	return out
}

// Namespaces returns the derived namespaces.
func (t RouteTable) Namespaces() []Namespace {
	return append([]Namespace(nil), t.namespaces...)
}

// NamespaceFor returns the namespace containing path, if any.
func (t RouteTable) NamespaceFor(path string) (Namespace, bool) {
	for _, ns := range t.namespaces {
		if ns.Contains(path) {
			return ns, true
		}
	}
	return Namespace{}, false
}

// IsAuthPage reports whether path is the landing page or under the public auth namespace.
func IsAuthPage(path string) bool {
	return path == PathLanding || strings.HasPrefix(path, AuthNamespace)
}
