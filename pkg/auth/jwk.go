package auth

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
)

// publicKeyFromJWK converts a JWK into the concrete Go public key type
// golang-jwt's verifier expects.
func publicKeyFromJWK(k JWK) (any, error) {
	switch k.Kty {
	case "EC":
		return ecdsaPublicKey(k)
	case "RSA":
		return rsaPublicKey(k)
	case "OKP":
		return ed25519PublicKey(k)
	default:
		return nil, fmt.Errorf("auth: unsupported jwk kty %q", k.Kty)
	}
}

func ed25519PublicKey(k JWK) (ed25519.PublicKey, error) {
	if k.Crv != "Ed25519" {
		return nil, fmt.Errorf("auth: unsupported okp curve %q", k.Crv)
	}
	raw, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("auth: okp key has wrong length %d", len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

func ecdsaPublicKey(k JWK) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch k.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("auth: unsupported ec curve %q", k.Crv)
	}

	x, err := decodeBigInt(k.X)
	if err != nil {
		return nil, err
	}
	y, err := decodeBigInt(k.Y)
	if err != nil {
		return nil, err
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func rsaPublicKey(k JWK) (*rsa.PublicKey, error) {
	n, err := decodeBigInt(k.N)
	if err != nil {
		return nil, err
	}
	e, err := decodeBigInt(k.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func decodeBigInt(s string) (*big.Int, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}
