package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DPoPProofLeeway bounds how far a proof's "iat" claim may sit from the
// server clock, in either direction.
const DPoPProofLeeway = 240 * time.Second

// JWK is the minimal JSON Web Key shape the DPoP proof's "jwk" header
// carries: an EC, RSA, or OKP (Ed25519) public key. Only the fields needed
// for RFC 7638 thumbprinting and signature verification are modeled.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
}

// Thumbprint computes the RFC 7638 JWK thumbprint: base64url(sha256(canonical
// JSON of the key's required members in lexicographic order)).
func (k JWK) Thumbprint() (string, error) {
	var canonical string
	switch k.Kty {
	case "EC":
		canonical = fmt.Sprintf(`{"crv":%q,"kty":%q,"x":%q,"y":%q}`, k.Crv, k.Kty, k.X, k.Y)
	case "RSA":
		canonical = fmt.Sprintf(`{"e":%q,"kty":%q,"n":%q}`, k.E, k.Kty, k.N)
	case "OKP":
		canonical = fmt.Sprintf(`{"crv":%q,"kty":%q,"x":%q}`, k.Crv, k.Kty, k.X)
	default:
		return "", fmt.Errorf("auth: unsupported jwk kty %q", k.Kty)
	}
	sum := sha256.Sum256([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

// DPoPClaims is the claim set of a DPoP proof JWT: the required
// htm/htu/iat/jti claims and the optional ath (access-token hash) claim
// binding the proof to a particular bearer token.
type DPoPClaims struct {
	jwt.RegisteredClaims
	HTM string `json:"htm"`
	HTU string `json:"htu"`
	ATH string `json:"ath,omitempty"`
	JTI string `json:"jti"`
}

// AccessTokenHash computes the DPoP "ath" claim value for accessToken:
// base64url(sha256(accessToken)), no padding (RFC 9449 §4.2).
func AccessTokenHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ValidateDPoPProof parses and validates a DPoP proof JWT against the
// expected HTTP method and target URI, returning the signing key's JWK
// thumbprint ("jkt") for binding against an access token's cnf claim. When
// accessToken is non-empty the proof MUST carry an "ath" claim matching
// AccessTokenHash(accessToken); when accessToken is empty the ath claim is
// not checked, so bearer-less callers (e.g. a pure-DPoP scheme with no
// bound access token) can still validate proofs.
func ValidateDPoPProof(proof, expectedMethod, expectedURI, accessToken string, seenJTI func(jti string) bool) (jkt string, err error) {
	var jwk JWK

	token, err := jwt.ParseWithClaims(proof, &DPoPClaims{}, func(t *jwt.Token) (any, error) {
		rawJWK, ok := t.Header["jwk"]
		if !ok {
			return nil, errors.New("auth: dpop proof missing jwk header")
		}
		raw, err := json.Marshal(rawJWK)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &jwk); err != nil {
			return nil, err
		}
		return publicKeyFromJWK(jwk)
	}, jwt.WithValidMethods(DPoPAlgs))
	if err != nil {
		return "", fmt.Errorf("auth: invalid dpop proof: %w", err)
	}

	claims, ok := token.Claims.(*DPoPClaims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid dpop proof claims")
	}

	if claims.HTM != expectedMethod {
		return "", errors.New("auth: dpop htm mismatch")
	}
	if claims.HTU != expectedURI {
		return "", errors.New("auth: dpop htu mismatch")
	}
	if claims.IssuedAt == nil {
		return "", errors.New("auth: dpop proof missing iat")
	}
	if skew := time.Since(claims.IssuedAt.Time); skew > DPoPProofLeeway || skew < -DPoPProofLeeway {
		return "", errors.New("auth: dpop proof iat outside the acceptable window")
	}
	if claims.JTI == "" || (seenJTI != nil && seenJTI(claims.JTI)) {
		return "", errors.New("auth: dpop proof replay detected")
	}
	if accessToken != "" {
		if claims.ATH == "" {
			return "", errors.New("auth: dpop proof missing ath for its bound access token")
		}
		if claims.ATH != AccessTokenHash(accessToken) {
			return "", errors.New("auth: dpop ath does not match bound access token")
		}
	}

	return jwk.Thumbprint()
}
