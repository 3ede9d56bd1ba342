package access

import (
	"fmt"

	"github.com/cuemby/podcore/pkg/rdf"
)

// ACP predicate vocabulary this pod's ACR documents use.
const (
	predResource       = "http://www.w3.org/ns/solid/acp#resource"
	predAccessControl  = "http://www.w3.org/ns/solid/acp#accessControl"
	predMemberAccessControl = "http://www.w3.org/ns/solid/acp#memberAccessControl"
	predApply          = "http://www.w3.org/ns/solid/acp#apply"
	predAllow          = "http://www.w3.org/ns/solid/acp#allow"
	predDeny           = "http://www.w3.org/ns/solid/acp#deny"
	predAllOf          = "http://www.w3.org/ns/solid/acp#allOf"
	predAnyOf          = "http://www.w3.org/ns/solid/acp#anyOf"
	predNoneOf         = "http://www.w3.org/ns/solid/acp#noneOf"
	predAgent          = "http://www.w3.org/ns/solid/acp#agent"
	predClient         = "http://www.w3.org/ns/solid/acp#client"
	predIssuer         = "http://www.w3.org/ns/solid/acp#issuer"
	predVC             = "http://www.w3.org/ns/solid/acp#vc"
)

// ParseACR reads an ACR graph rooted at acrSubject (an IRI or blank-node
// Term naming the ACR document's main subject) into the evaluable ACR
// model. Grounded on the acp crate's handle/description split: every ACP
// class (AccessControlResource, AccessControl, Policy, Matcher) becomes one
// subject block of triples in the Turtle this pod reads and writes.
func ParseACR(g rdf.Graph, resourceURI string, acrSubject rdf.Term) (ACR, error) {
	acr := ACR{ResourceURI: resourceURI}

	for _, t := range g.Filter(acrSubject) {
		switch t.Predicate.IRI {
		case predAccessControl:
			ac, err := parseAccessControl(g, t.Object)
			if err != nil {
				return ACR{}, err
			}
			acr.AccessControls = append(acr.AccessControls, ac)
		case predMemberAccessControl:
			ac, err := parseAccessControl(g, t.Object)
			if err != nil {
				return ACR{}, err
			}
			acr.MemberAccessControls = append(acr.MemberAccessControls, ac)
		}
	}
	return acr, nil
}

func parseAccessControl(g rdf.Graph, subj rdf.Term) (AccessControl, error) {
	var ac AccessControl
	for _, t := range g.Filter(subj) {
		if t.Predicate.IRI != predApply {
			continue
		}
		policy, err := parsePolicy(g, t.Object)
		if err != nil {
			return AccessControl{}, err
		}
		ac.Policies = append(ac.Policies, policy)
	}
	return ac, nil
}

func parsePolicy(g rdf.Graph, subj rdf.Term) (Policy, error) {
	policy := Policy{Allow: NewModeSet(), Deny: NewModeSet()}
	for _, t := range g.Filter(subj) {
		switch t.Predicate.IRI {
		case predAllow:
			policy.Allow[Mode(t.Object.Literal)] = true
		case predDeny:
			policy.Deny[Mode(t.Object.Literal)] = true
		case predAllOf:
			m, err := parseMatcher(g, t.Object)
			if err != nil {
				return Policy{}, err
			}
			policy.AllOf = append(policy.AllOf, m)
		case predAnyOf:
			m, err := parseMatcher(g, t.Object)
			if err != nil {
				return Policy{}, err
			}
			policy.AnyOf = append(policy.AnyOf, m)
		case predNoneOf:
			m, err := parseMatcher(g, t.Object)
			if err != nil {
				return Policy{}, err
			}
			policy.NoneOf = append(policy.NoneOf, m)
		}
	}
	return policy, nil
}

func parseMatcher(g rdf.Graph, subj rdf.Term) (Matcher, error) {
	var m Matcher
	for _, t := range g.Filter(subj) {
		switch t.Predicate.IRI {
		case predAgent:
			m.Agents = append(m.Agents, t.Object.IRI)
		case predClient:
			m.Clients = append(m.Clients, t.Object.IRI)
		case predIssuer:
			m.Issuers = append(m.Issuers, t.Object.IRI)
		case predVC:
			m.VCs = append(m.VCs, t.Object.IRI)
		default:
			return Matcher{}, fmt.Errorf("access: unrecognized matcher predicate %q", t.Predicate.IRI)
		}
	}
	return m, nil
}
