package access

// Well-known ACP attribute individuals a Matcher's agent/client/issuer
// value can name instead of (or in addition to) a concrete IRI.
const (
	PublicAgent        = "http://www.w3.org/ns/solid/acp#PublicAgent"
	AuthenticatedAgent = "http://www.w3.org/ns/solid/acp#AuthenticatedAgent"
	CreatorAgent       = "http://www.w3.org/ns/solid/acp#CreatorAgent"
	OwnerAgent         = "http://www.w3.org/ns/solid/acp#OwnerAgent"
)

// Matcher matches a Context when every attribute predicate it carries
// matches; an empty Matcher (no predicates set)
// always matches.
type Matcher struct {
	// Agents, Clients, Issuers, VCs each hold the matcher's acceptable
	// values for that attribute; a nil slice means "don't constrain this
	// attribute" (always satisfied for it). A non-nil slice is satisfied if
	// any value in it matches per matchAgent/matchClient/matchIssuer/matchAnyVC.
	Agents  []string
	Clients []string
	Issuers []string
	VCs     []string
}

// Satisfied reports whether every attribute m constrains matches ctx.
func (m Matcher) Satisfied(ctx Context) bool {
	if m.Agents != nil && !matchAny(m.Agents, ctx, matchAgent) {
		return false
	}
	if m.Clients != nil && !matchAny(m.Clients, ctx, matchClient) {
		return false
	}
	if m.Issuers != nil && !matchAny(m.Issuers, ctx, matchIssuer) {
		return false
	}
	if m.VCs != nil && !matchAnyVC(m.VCs, ctx) {
		return false
	}
	return true
}

func matchAny(values []string, ctx Context, match func(value string, ctx Context) bool) bool {
	for _, v := range values {
		if match(v, ctx) {
			return true
		}
	}
	return false
}

// matchAgent implements the acp:agent attribute predicate's five match
// rules: public, authenticated, creator, owner, then exact-IRI equality.
func matchAgent(value string, ctx Context) bool {
	switch value {
	case PublicAgent:
		return true
	case AuthenticatedAgent:
		return ctx.HasAgent()
	case CreatorAgent:
		return ctx.agentIsCreator()
	case OwnerAgent:
		return ctx.agentIsOwner()
	default:
		return ctx.Agent != "" && ctx.Agent == value
	}
}

// matchClient implements the acp:client attribute predicate. ACP reuses
// the same named-individual vocabulary for client and issuer matching as
// for agent: PublicAgent matches any request, AuthenticatedAgent matches a
// request carrying a client-id, and any other value must equal the
// request's client-id.
func matchClient(value string, ctx Context) bool {
	switch value {
	case PublicAgent:
		return true
	case AuthenticatedAgent:
		return ctx.Client != ""
	default:
		return ctx.Client != "" && ctx.Client == value
	}
}

// matchIssuer implements the acp:issuer attribute predicate analogously.
func matchIssuer(value string, ctx Context) bool {
	switch value {
	case PublicAgent:
		return true
	case AuthenticatedAgent:
		return ctx.Issuer != ""
	default:
		return ctx.Issuer != "" && ctx.Issuer == value
	}
}

func matchAnyVC(values []string, ctx Context) bool {
	for _, v := range values {
		for _, have := range ctx.VCs {
			if v == have {
				return true
			}
		}
	}
	return false
}

// Policy connects a set of allow/deny access modes to the Matchers that
// must hold for it to apply: allOf all satisfied,
// anyOf at least one satisfied (vacuously true if empty), noneOf none
// satisfied (vacuously true if empty).
type Policy struct {
	Allow ModeSet
	Deny  ModeSet

	AllOf []Matcher
	AnyOf []Matcher
	NoneOf []Matcher
}

// Satisfied reports whether p applies to ctx.
func (p Policy) Satisfied(ctx Context) bool {
	for _, m := range p.AllOf {
		if !m.Satisfied(ctx) {
			return false
		}
	}
	if len(p.AnyOf) > 0 {
		any := false
		for _, m := range p.AnyOf {
			if m.Satisfied(ctx) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	for _, m := range p.NoneOf {
		if m.Satisfied(ctx) {
			return false
		}
	}
	return true
}

// AccessControl is a named group of Policies, connected to an ACR.
type AccessControl struct {
	Policies []Policy
}

// ACR is an Access Control Resource: the resolved policy document
// controlling one resource, plus the
// memberAccessControl set inherited transitively by its descendants.
type ACR struct {
	// ResourceURI is the resource this ACR directly controls.
	ResourceURI string

	AccessControls []AccessControl

	// MemberAccessControls apply to every descendant of ResourceURI in
	// addition to their own (nearer) ACR's access controls.
	MemberAccessControls []AccessControl
}

// AllowedModes evaluates every Policy across acrs against ctx (an ACR plus
// the MemberAccessControls inherited from its ancestors) and returns the
// union of allowed modes minus the union of denied modes from every
// satisfied policy, then expands generalizations.
func AllowedModes(acrs []ACR, ctx Context) ModeSet {
	allow := NewModeSet()
	deny := NewModeSet()
	for _, acr := range acrs {
		for _, control := range acr.AccessControls {
			accumulate(control, ctx, allow, deny)
		}
		for _, control := range acr.MemberAccessControls {
			accumulate(control, ctx, allow, deny)
		}
	}
	return Minus(allow, deny).Expand()
}

func accumulate(ac AccessControl, ctx Context, allow, deny ModeSet) {
	for _, policy := range ac.Policies {
		if !policy.Satisfied(ctx) {
			continue
		}
		for m := range policy.Allow {
			allow[m] = true
		}
		for m := range policy.Deny {
			deny[m] = true
		}
	}
}
