package access

import (
	"github.com/cuemby/podcore/pkg/rdf"
)

// WAC predicate/class vocabulary, the legacy Web Access Control ontology
// reduced onto the same ACR shape: every acl:Authorization becomes one
// Policy with one anyOf matcher
// built from its acl:agent/acl:agentClass/acl:agentGroup triples.
const (
	wacType        = "http://www.w3.org/ns/rdf-syntax-ns#type"
	wacAuthz       = "http://www.w3.org/ns/auth/acl#Authorization"
	wacAgent       = "http://www.w3.org/ns/auth/acl#agent"
	wacAgentClass  = "http://www.w3.org/ns/auth/acl#agentClass"
	wacAgentGroup  = "http://www.w3.org/ns/auth/acl#agentGroup"
	wacMode        = "http://www.w3.org/ns/auth/acl#mode"
	wacAccessTo    = "http://www.w3.org/ns/auth/acl#accessTo"
	wacDefault     = "http://www.w3.org/ns/auth/acl#default"
	wacModeRead    = "http://www.w3.org/ns/auth/acl#Read"
	wacModeWrite   = "http://www.w3.org/ns/auth/acl#Write"
	wacModeAppend  = "http://www.w3.org/ns/auth/acl#Append"
	wacModeControl = "http://www.w3.org/ns/auth/acl#Control"
	foafAgent      = "http://xmlns.com/foaf/0.1/Agent"
)

var wacModeToAccess = map[string]Mode{
	wacModeRead:    Read,
	wacModeWrite:   Write,
	wacModeAppend:  Append,
	wacModeControl: Control,
}

// ParseWAC reduces a WAC-vocabulary graph into the same ACR shape ACP
// evaluates, so access.Enforce never needs to know which engine produced
// its ACRs.
func ParseWAC(g rdf.Graph, resourceURI string) ACR {
	acr := ACR{ResourceURI: resourceURI}

	subjects := map[rdf.Term]bool{}
	for _, t := range g {
		if t.Predicate.IRI == wacType && t.Object.IRI == wacAuthz {
			subjects[t.Subject] = true
		}
	}

	var direct, inherited []Policy
	for subj := range subjects {
		policy := Policy{Allow: NewModeSet(), Deny: NewModeSet()}
		var matcher Matcher
		isDefault := false
		for _, t := range g.Filter(subj) {
			switch t.Predicate.IRI {
			case wacAgent:
				matcher.Agents = append(matcher.Agents, t.Object.IRI)
			case wacAgentClass, wacAgentGroup:
				if t.Object.IRI == foafAgent {
					matcher.Agents = append(matcher.Agents, PublicAgent)
				} else {
					matcher.Agents = append(matcher.Agents, AuthenticatedAgent)
				}
			case wacMode:
				if m, ok := wacModeToAccess[t.Object.IRI]; ok {
					policy.Allow[m] = true
				}
			case wacAccessTo:
				isDefault = false
			case wacDefault:
				isDefault = true
			}
		}
		if len(matcher.Agents) > 0 {
			policy.AnyOf = []Matcher{matcher}
		}
		if isDefault {
			inherited = append(inherited, policy)
		} else {
			direct = append(direct, policy)
		}
	}

	if len(direct) > 0 {
		acr.AccessControls = []AccessControl{{Policies: direct}}
	}
	if len(inherited) > 0 {
		acr.MemberAccessControls = []AccessControl{{Policies: inherited}}
	}
	return acr
}
