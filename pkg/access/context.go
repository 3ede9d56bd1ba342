package access

// Context is the request context a Matcher is evaluated against: the
// authenticated agent/client/issuer, an optional set of verified
// credential IRIs (vc), and the target resource's creator and owner.
type Context struct {
	Agent  string // WebID, "" if unauthenticated
	Client string // client-id, "" if absent
	Issuer string // OIDC issuer, "" if absent
	VCs    []string

	Creator string // WebID of the resource's creator, if known
	Owner   string // WebID of the storage space owner
	Target  string // resource URI the request addresses
}

// HasAgent reports whether the context carries any agent identity at all
// (the "AuthenticatedAgent" matcher condition).
func (c Context) HasAgent() bool { return c.Agent != "" }

// agentIsCreator reports whether the context's agent equals its creator
// (the "CreatorAgent" matcher condition).
func (c Context) agentIsCreator() bool {
	return c.Agent != "" && c.Creator != "" && c.Agent == c.Creator
}

// agentIsOwner reports whether the context's agent equals its owner (the
// "OwnerAgent" matcher condition).
func (c Context) agentIsOwner() bool {
	return c.Agent != "" && c.Owner != "" && c.Agent == c.Owner
}
