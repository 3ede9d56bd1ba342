package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The "ath" claim is base64url(sha256(access_token)), RFC 9449 §4.2.
func TestAccessTokenHashLiteralVector(t *testing.T) {
	const accessToken = "Kz~8mXK1EalYznwH-LC-1fBAo.4Ljp~zsPE_NeO.gxU"
	const expectedATH = "fUHyO2r2Z3DZ53EsNrWBb0xWXoaNy59IiKCAqksmQEo"

	assert.Equal(t, expectedATH, AccessTokenHash(accessToken))
}

// RFC 7638 appendix A's worked RSA key example.
func TestJWKThumbprintRFC7638Vector(t *testing.T) {
	k := JWK{
		Kty: "RSA",
		N: "0vx7agoebGcQSuuPiLJXZptN9nndrQmbXEps2aiAFbWhM78LhWx4cbbfAAtVT86zwu1RK7aPFFxuhDR1L6tSoc_BJECPebWKRXjBZCiFV4n3oknjhMstn64tZ_2W" +
			"-5JsGY4Hc5n9yBXArwl93lqt7_RN5w6Cf0h4QyQ5v-65YGjQR0_FDW2QvzqY368QQMicAtaSqzs8KJZgnYb9c7d0zgdAZHzu6qMQvRL5hajrn1n91CbOpbISD08qNLyrdkt" +
			"-bFTWhAI4vMQFh6WeZu0fM4lFd2NcRwr3XPksINHaQ-G_xBniIqbw0Ls1jF44-csFCur-kEgU8awapJzKnqDKgw",
		E: "AQAB",
	}

	got, err := k.Thumbprint()
	assert.NoError(t, err)
	assert.Equal(t, "NzbLsXh8uDCcd-6MNwXF4W_7noWXFZAfHkxZsRGC9Xs", got)
}

func TestJWKThumbprintUnsupportedKty(t *testing.T) {
	_, err := JWK{Kty: "oct"}.Thumbprint()
	assert.Error(t, err)
}

func TestValidateDPoPProofRejectsMalformedProof(t *testing.T) {
	_, err := ValidateDPoPProof("not-a-jwt", "GET", "https://pod.example/alice/", "", nil)
	assert.Error(t, err)
}
