package auth

import "strings"

// DPoPAlgs lists the JOSE algorithms this pod accepts for a DPoP proof's
// signature. The proof verifier and the WWW-Authenticate challenge share
// this one set, so a client is never challenged with an algorithm the
// verifier would then reject.
var DPoPAlgs = []string{
	"RS256", "RS384", "RS512",
	"ES256", "ES384", "ES512",
	"PS256", "PS384", "PS512",
	"EdDSA",
}

// Challenge renders the WWW-Authenticate header value a 401 response
// carries when every configured Scheme declines or rejects a request's
// credentials: the DPoP scheme listing its acceptable algorithms.
func Challenge() string {
	return `DPoP algs="` + strings.Join(DPoPAlgs, " ") + `"`
}
