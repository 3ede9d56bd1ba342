package access

import "testing"

func TestModeSetExpandGeneralizesWrite(t *testing.T) {
	expanded := NewModeSet(Write).Expand()
	for _, m := range []Mode{Write, Append, Create, Delete} {
		if !expanded.Has(m) {
			t.Fatalf("expected write to generalize to %s, got %v", m, expanded)
		}
	}
	if expanded.Has(Control) {
		t.Fatalf("write must not generalize to control")
	}
}

func TestMatcherPublicAgentMatchesAnyContext(t *testing.T) {
	m := Matcher{Agents: []string{PublicAgent}}
	if !m.Satisfied(Context{}) {
		t.Fatal("PublicAgent matcher must satisfy an anonymous context")
	}
	if !m.Satisfied(Context{Agent: "https://pod.example/alice#me"}) {
		t.Fatal("PublicAgent matcher must satisfy an authenticated context too")
	}
}

func TestMatcherAuthenticatedAgentRequiresAgent(t *testing.T) {
	m := Matcher{Agents: []string{AuthenticatedAgent}}
	if m.Satisfied(Context{}) {
		t.Fatal("AuthenticatedAgent matcher must not satisfy an anonymous context")
	}
	if !m.Satisfied(Context{Agent: "https://pod.example/alice#me"}) {
		t.Fatal("AuthenticatedAgent matcher must satisfy any authenticated agent")
	}
}

func TestMatcherCreatorAndOwnerAgent(t *testing.T) {
	alice := "https://pod.example/alice#me"
	creator := Matcher{Agents: []string{CreatorAgent}}
	if !creator.Satisfied(Context{Agent: alice, Creator: alice}) {
		t.Fatal("CreatorAgent must match when agent equals creator")
	}
	if creator.Satisfied(Context{Agent: alice, Creator: "https://pod.example/bob#me"}) {
		t.Fatal("CreatorAgent must not match a different creator")
	}

	owner := Matcher{Agents: []string{OwnerAgent}}
	if !owner.Satisfied(Context{Agent: alice, Owner: alice}) {
		t.Fatal("OwnerAgent must match when agent equals owner")
	}
}

// A policy allowing read only to webid:alice must deny a request from
// webid:bob, and the decision must expose what alice and the public keep.
func TestACPDeniesUnmatchedAgent(t *testing.T) {
	alice := "https://pod.example/alice#me"
	bob := "https://pod.example/bob#me"

	acr := ACR{
		ResourceURI: "https://pod.example/alice/notes/x",
		AccessControls: []AccessControl{{
			Policies: []Policy{{
				Allow: NewModeSet(Read),
				Deny:  NewModeSet(),
				AnyOf: []Matcher{{Agents: []string{alice}}},
			}},
		}},
	}

	decision := Enforce([]ACR{acr}, Context{Agent: bob, Target: acr.ResourceURI}, NewModeSet(Read))
	if decision.Permitted() {
		t.Fatal("bob must be denied read access")
	}
	if len(decision.Public.Sorted()) != 0 {
		t.Fatalf("public must have no allowed modes, got %v", decision.Public.Sorted())
	}

	aliceDecision := Enforce([]ACR{acr}, Context{Agent: alice, Target: acr.ResourceURI}, NewModeSet(Read))
	if !aliceDecision.Permitted() {
		t.Fatal("alice must be permitted read access per the same policy")
	}
}

func TestAllowedModesDenyOverridesAllowAcrossPolicies(t *testing.T) {
	acr := ACR{
		AccessControls: []AccessControl{{
			Policies: []Policy{
				{Allow: NewModeSet(Read), AnyOf: []Matcher{{Agents: []string{PublicAgent}}}},
				{Deny: NewModeSet(Read), AnyOf: []Matcher{{Agents: []string{PublicAgent}}}},
			},
		}},
	}
	allowed := AllowedModes([]ACR{acr}, Context{})
	if allowed.Has(Read) {
		t.Fatalf("a satisfied deny policy must cancel a satisfied allow policy, got %v", allowed)
	}
}

func TestMemberAccessControlAppliesToDescendants(t *testing.T) {
	alice := "https://pod.example/alice#me"
	ancestorACR := ACR{
		MemberAccessControls: []AccessControl{{
			Policies: []Policy{{Allow: NewModeSet(Read), AnyOf: []Matcher{{Agents: []string{alice}}}}},
		}},
	}
	decision := Enforce([]ACR{ancestorACR}, Context{Agent: alice}, NewModeSet(Read))
	if !decision.Permitted() {
		t.Fatal("a descendant must inherit read via an ancestor's memberAccessControl")
	}
}

func TestRequiredModesPerMethod(t *testing.T) {
	cases := []struct {
		method      string
		isContainer bool
		want        Mode
	}{
		{"GET", false, Read},
		{"PUT", false, Write},
		{"DELETE", false, Delete},
	}
	for _, c := range cases {
		modes := RequiredModes(c.method, c.isContainer)
		if !modes.Has(c.want) {
			t.Errorf("%s required modes %v missing %s", c.method, modes, c.want)
		}
	}
	post := RequiredModes("POST", true)
	if !post.Has(Append) || !post.Has(Create) {
		t.Errorf("POST on a container must require append+create, got %v", post)
	}
}

func TestParseWACReducesAuthorizationToPolicy(t *testing.T) {
	turtle := []byte(`<#auth1>
    <http://www.w3.org/ns/rdf-syntax-ns#type> <http://www.w3.org/ns/auth/acl#Authorization> ;
    <http://www.w3.org/ns/auth/acl#agentClass> <http://xmlns.com/foaf/0.1/Agent> ;
    <http://www.w3.org/ns/auth/acl#mode> <http://www.w3.org/ns/auth/acl#Read> ;
    <http://www.w3.org/ns/auth/acl#accessTo> <https://pod.example/alice/notes/> .
`)
	g, err := parseTestTurtle(turtle)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	acr := ParseWAC(g, "https://pod.example/alice/notes/")
	if len(acr.AccessControls) != 1 || len(acr.AccessControls[0].Policies) != 1 {
		t.Fatalf("expected one reduced policy, got %+v", acr)
	}
	if !acr.AccessControls[0].Policies[0].Allow.Has(Read) {
		t.Fatalf("expected allow:read, got %+v", acr.AccessControls[0].Policies[0])
	}
}
