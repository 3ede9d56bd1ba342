package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuemby/podcore/pkg/metrics"
	"github.com/golang-jwt/jwt/v5"
)

// IDTokenClaims is the Solid-OIDC claim set: standard OIDC claims plus
// "webid" and the DPoP confirmation claim "cnf.jkt".
type IDTokenClaims struct {
	jwt.RegisteredClaims
	WebID    string `json:"webid"`
	Azp      string `json:"azp,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	CNF      struct {
		JKT string `json:"jkt"`
	} `json:"cnf"`
}

// ResolvedClientID returns the client identifier claim: azp when present,
// else client_id, else the first audience member.
func (c IDTokenClaims) ResolvedClientID() string {
	if c.Azp != "" {
		return c.Azp
	}
	if c.ClientID != "" {
		return c.ClientID
	}
	if len(c.Audience) > 0 {
		return c.Audience[0]
	}
	return ""
}

// JWKSFetcher retrieves and parses an issuer's JWKS document into the JWK
// matching kid.
type JWKSFetcher func(ctx context.Context, issuer, kid string) (JWK, error)

// TrustedIssuers reports whether an issuer URI is trusted.
type TrustedIssuers interface {
	IsTrusted(issuer string) bool
}

// StaticTrustedIssuers is a fixed allow-list of trusted issuer URIs.
type StaticTrustedIssuers map[string]bool

func (s StaticTrustedIssuers) IsTrusted(issuer string) bool { return s[issuer] }

// DPoPBoundBearerScheme authenticates requests carrying a DPoP-bound bearer
// token: it validates the DPoP proof, parses and verifies the ID token via
// the cached JWKS, checks the issuer is trusted, and confirms the token's
// cnf.jkt matches the proof's key thumbprint.
type DPoPBoundBearerScheme struct {
	Issuers      TrustedIssuers
	JWKSCache    *TTLCache[JWK]
	FetchJWKS    JWKSFetcher
	SeenJTI      func(jti string) bool
	WebIDProfile *CachedWebIDResolver // optional; cross-checks webid profile names the issuer
}

// NewDPoPBoundBearerScheme builds a scheme backed by a JWKS cache with the
// given capacity and TTL.
func NewDPoPBoundBearerScheme(issuers TrustedIssuers, fetch JWKSFetcher, cacheSize int, cacheTTL time.Duration) (*DPoPBoundBearerScheme, error) {
	cache, err := NewTTLCache[JWK]("jwks", cacheSize, cacheTTL)
	if err != nil {
		return nil, err
	}
	return &DPoPBoundBearerScheme{Issuers: issuers, JWKSCache: cache, FetchJWKS: fetch}, nil
}

func (s *DPoPBoundBearerScheme) Name() string { return "dpop-bound-bearer" }

func (s *DPoPBoundBearerScheme) Authenticate(h RequestHeaders) (*Credential, error) {
	cred, err := s.authenticate(h)
	switch {
	case err == nil:
		metrics.AuthOutcomesTotal.WithLabelValues("allowed").Inc()
	case errors.Is(err, ErrSchemeNotApplicable):
		metrics.AuthOutcomesTotal.WithLabelValues("not_applicable").Inc()
	default:
		metrics.AuthOutcomesTotal.WithLabelValues("rejected").Inc()
	}
	return cred, err
}

func (s *DPoPBoundBearerScheme) authenticate(h RequestHeaders) (*Credential, error) {
	if h.Authorization == "" || h.DPoP == "" {
		return nil, ErrSchemeNotApplicable
	}

	bearerToken := stripBearerPrefix(h.Authorization)
	if bearerToken == "" {
		return nil, errors.New("auth: missing bearer token")
	}

	jkt, err := ValidateDPoPProof(h.DPoP, h.Method, h.TargetURI, bearerToken, s.SeenJTI)
	if err != nil {
		return nil, err
	}

	var claims IDTokenClaims
	_, err = jwt.ParseWithClaims(bearerToken, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		iss, _ := t.Claims.(*IDTokenClaims)
		issuer := ""
		if iss != nil {
			issuer = iss.Issuer
		}
		key, err := s.JWKSCache.GetOrFetch(context.Background(), issuer+"#"+kid, func(ctx context.Context) (JWK, error) {
			return s.FetchJWKS(ctx, issuer, kid)
		})
		if err != nil {
			return nil, err
		}
		return publicKeyFromJWK(key)
	})
	if err != nil {
		return nil, err
	}

	if !s.Issuers.IsTrusted(claims.Issuer) {
		return nil, errors.New("auth: untrusted issuer")
	}
	if claims.WebID == "" {
		return nil, errors.New("auth: id token missing webid claim")
	}
	if claims.CNF.JKT != jkt {
		return nil, errors.New("auth: dpop proof key does not match token binding")
	}

	if s.WebIDProfile != nil {
		profile, err := s.WebIDProfile.Resolve(context.Background(), claims.WebID)
		if err != nil {
			return nil, fmt.Errorf("auth: resolving webid profile: %w", err)
		}
		if !profile.DeclaresIssuer(claims.Issuer) {
			return nil, errors.New("auth: webid profile does not declare this issuer")
		}
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &Credential{WebID: claims.WebID, ClientID: claims.ResolvedClientID(), Issuer: claims.Issuer, ExpiresAt: expiresAt}, nil
}

func stripBearerPrefix(authorization string) string {
	const prefix = "DPoP "
	if len(authorization) > len(prefix) && authorization[:len(prefix)] == prefix {
		return authorization[len(prefix):]
	}
	const bearerPrefix = "Bearer "
	if len(authorization) > len(bearerPrefix) && authorization[:len(bearerPrefix)] == bearerPrefix {
		return authorization[len(bearerPrefix):]
	}
	return ""
}
