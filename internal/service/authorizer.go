package service

import (
	domainauth "github.com/kavach-app/kavach/internal/domain/auth"
	"github.com/kavach-app/kavach/internal/observability/metrics"
	"github.com/kavach-app/kavach/internal/observability/statsd"
)

// Outcome is the kind of routing decision.
type Outcome string

const (
	OutcomeLoading  Outcome = "loading"
	OutcomeRender   Outcome = "render"
	OutcomeRedirect Outcome = "redirect"
)

// Reasons attached to redirects.
const (
	ReasonUnauthenticated  = "unauthenticated"
	ReasonPermissionDenied = "permission_denied"
	ReasonAlreadySignedIn  = "already_signed_in"
	ReasonNamespace        = "namespace"
)

// Decision is the result of authorizing a navigation.
// Notify is the user-facing message to show with a redirect, if any.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Target  string  `json:"target,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Notify  string  `json:"notify,omitempty"`
}

// Renders reports whether the page may be shown.
func (d Decision) Renders() bool { return d.Outcome == OutcomeRender }

// AuthorizerOptions groups dependencies for Authorizer.
type AuthorizerOptions struct {
	Routes  domainauth.RouteTable
	Metrics statsd.Sink // Optional
}

// Authorizer decides whether a session may view a path. It is stateless apart from the
// static route table and safe for concurrent use.
type Authorizer struct {
	routes  domainauth.RouteTable
	metrics statsd.Sink
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(opts AuthorizerOptions) *Authorizer {
	return &Authorizer{routes: opts.Routes, metrics: opts.Metrics}
}

// Routes returns the route table the authorizer evaluates against.
func (a *Authorizer) Routes() domainauth.RouteTable { return a.routes }

// Authorize applies the per-route rule to a session.
func (a *Authorizer) Authorize(sess domainauth.Session, route domainauth.RouteDeclaration) Decision {
	if !sess.IsReady() {
		return Decision{Outcome: OutcomeLoading}
	}
	if route.Public() {
		return Decision{Outcome: OutcomeRender}
	}
	if sess.Principal == nil {
		return Decision{Outcome: OutcomeRedirect, Target: domainauth.PathLogin, Reason: ReasonUnauthenticated}
	}
	role := sess.Principal.Role()
	if route.Allows(role) {
		return Decision{Outcome: OutcomeRender}
	}
	return Decision{
		Outcome: OutcomeRedirect,
		Target:  role.Home(),
		Reason:  ReasonPermissionDenied,
		Notify:  MsgPermissionDenied,
	}
}

// Proactive sends a signed-in principal away from the landing page and the auth pages.
func (a *Authorizer) Proactive(sess domainauth.Session, path string) (Decision, bool) {
	if !sess.IsAuthenticated() || !domainauth.IsAuthPage(path) {
		return Decision{}, false
	}
	return Decision{
		Outcome: OutcomeRedirect,
		Target:  sess.Principal.Role().Home(),
		Reason:  ReasonAlreadySignedIn,
	}, true
}

// Contain keeps a principal out of namespaces owned by a more privileged role.
func (a *Authorizer) Contain(sess domainauth.Session, path string) (Decision, bool) {
	if !sess.IsAuthenticated() {
		return Decision{}, false
	}
	ns, ok := a.routes.NamespaceFor(path)
	if !ok {
		return Decision{}, false
	}
	role := sess.Principal.Role()
	if ns.Owner.Rank() <= role.Rank() {
		return Decision{}, false
	}
	return Decision{
		Outcome: OutcomeRedirect,
		Target:  role.Home(),
		Reason:  ReasonNamespace,
		Notify:  MsgPermissionDenied,
	}, true
}

// Evaluate runs every rule for a navigation to path, in order: loading, namespace
// containment, proactive redirection, then the route's own declaration.
func (a *Authorizer) Evaluate(sess domainauth.Session, path string) Decision {
	d := a.evaluate(sess, path)
	m := metrics.DecisionMetric{Outcome: string(d.Outcome), Reason: d.Reason}
	if sess.Principal != nil {
		m.Role = string(sess.Principal.Role())
	}
	metrics.EmitDecision(a.metrics, m)
	return d
}

func (a *Authorizer) evaluate(sess domainauth.Session, path string) Decision {
	if !sess.IsReady() {
		return Decision{Outcome: OutcomeLoading}
	}
	if d, ok := a.Contain(sess, path); ok {
		return d
	}
	if d, ok := a.Proactive(sess, path); ok {
		return d
	}
	return a.Authorize(sess, a.routes.Resolve(path))
}
