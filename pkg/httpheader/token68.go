// Package httpheader implements the handful of HTTP header grammars the
// storage service and auth pipeline need precise control over: the
// Authorization scheme's token68 parameter, X-Forwarded-* typed headers, the
// WAC-Allow access-param list, and conditional-request precondition
// evaluation. Each is its own small parser rather than a lean on a
// generic header-parsing library.
package httpheader

import (
	"errors"
	"strings"
)

// ErrInvalidToken68 is returned when a string does not satisfy the token68
// grammar of RFC 7235 §2.1: 1*( ALPHA / DIGIT / "-" / "." / "_" / "~" / "+" / "/" ) *"="
var ErrInvalidToken68 = errors.New("httpheader: invalid token68")

// ParseToken68 validates and returns s as a token68 string, used to extract
// the bearer/DPoP credential value out of an Authorization header.
func ParseToken68(s string) (string, error) {
	if s == "" {
		return "", ErrInvalidToken68
	}
	body, pad, _ := strings.Cut(s, "=")
	for i := 0; i < len(body); i++ {
		if !isToken68Char(body[i]) {
			return "", ErrInvalidToken68
		}
	}
	for i := 0; i < len(pad); i++ {
		if pad[i] != '=' {
			return "", ErrInvalidToken68
		}
	}
	return s, nil
}

func isToken68Char(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~' || c == '+' || c == '/':
		return true
	default:
		return false
	}
}

// AuthScheme is a parsed Authorization header: "<scheme> <credentials>".
type AuthScheme struct {
	Scheme      string
	Credentials string
}

// ParseAuthorization splits an Authorization header value into its scheme
// and token68 credentials.
func ParseAuthorization(header string) (AuthScheme, error) {
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok {
		return AuthScheme{}, ErrInvalidToken68
	}
	rest = strings.TrimSpace(rest)
	cred, err := ParseToken68(rest)
	if err != nil {
		return AuthScheme{}, err
	}
	return AuthScheme{Scheme: scheme, Credentials: cred}, nil
}
