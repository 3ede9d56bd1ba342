// Package auth resolves an incoming request's credentials
// through the DPoP-bound Solid-OIDC challenge-response scheme, backed by
// cached JWKS and WebID-profile lookups.
package auth

import "time"

// Credential is the resolved identity of an authenticated request: the
// three orthogonal optional slots: agent
// (WebID), client (client-id, from IDTokenClaims.ResolvedClientID), and issuer.
type Credential struct {
	WebID     string
	ClientID  string
	Issuer    string
	ExpiresAt time.Time
}

// Scheme is one challenge-response authentication scheme. Each
// scheme inspects the request and either returns a Credential or declines
// by returning ErrSchemeNotApplicable so the next scheme in a SchemeSet can
// try.
type Scheme interface {
	Name() string
	Authenticate(headers RequestHeaders) (*Credential, error)
}

// RequestHeaders is the minimal header surface a Scheme needs, kept
// independent of net/http so schemes can be unit tested without
// constructing real requests.
type RequestHeaders struct {
	Authorization string
	DPoP          string
	Method        string
	TargetURI     string
}
