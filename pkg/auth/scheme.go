package auth

import "errors"

// ErrSchemeNotApplicable is returned by a Scheme when the request doesn't
// carry the credential shape it handles (e.g. no Authorization header at
// all), signaling the SchemeSet to try the next scheme rather than treating
// the request as unauthenticated.
var ErrSchemeNotApplicable = errors.New("auth: scheme not applicable to this request")

// SchemeSet tries each registered Scheme in order until one resolves a
// Credential.
type SchemeSet struct {
	schemes []Scheme
}

// NewSchemeSet builds a SchemeSet trying schemes in the given order.
func NewSchemeSet(schemes ...Scheme) *SchemeSet {
	return &SchemeSet{schemes: schemes}
}

// Authenticate tries every scheme in order, returning the first resolved
// Credential. If every scheme declines, it returns ErrSchemeNotApplicable;
// if a scheme actively rejects a credential (expired token, bad proof), that
// error is returned immediately instead of falling through, since a
// malformed credential should fail loudly rather than silently degrade to
// unauthenticated.
func (s *SchemeSet) Authenticate(headers RequestHeaders) (*Credential, error) {
	for _, scheme := range s.schemes {
		cred, err := scheme.Authenticate(headers)
		if err == nil {
			return cred, nil
		}
		if !errors.Is(err, ErrSchemeNotApplicable) {
			return nil, err
		}
	}
	return nil, ErrSchemeNotApplicable
}
