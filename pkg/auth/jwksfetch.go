package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// jwksDocument is the minimal shape of a JWKS document: a set of keys, each
// tagged with the "kid" that selects it.
type jwksDocument struct {
	Keys []struct {
		JWK
		Kid string `json:"kid"`
	} `json:"keys"`
}

// HTTPJWKSFetcher fetches an issuer's JWKS document over HTTP and picks out
// the key matching kid, for use as a DPoPBoundBearerScheme's JWKSFetcher.
// Grounded on WebIDProfileFetcher's http.Client + bounded-read pattern.
type HTTPJWKSFetcher struct {
	Client *http.Client
}

// NewHTTPJWKSFetcher builds a fetcher using client, or http.DefaultClient if nil.
func NewHTTPJWKSFetcher(client *http.Client) *HTTPJWKSFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPJWKSFetcher{Client: client}
}

// Fetch retrieves issuer's JWKS document (at "<issuer>/.well-known/jwks.json")
// and returns the key matching kid.
func (f *HTTPJWKSFetcher) Fetch(ctx context.Context, issuer, kid string) (JWK, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuer+"/.well-known/jwks.json", nil)
	if err != nil {
		return JWK{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return JWK{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return JWK{}, fmt.Errorf("auth: fetching jwks for %s: status %d", issuer, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return JWK{}, err
	}

	var doc jwksDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return JWK{}, fmt.Errorf("auth: parsing jwks for %s: %w", issuer, err)
	}
	for _, k := range doc.Keys {
		if k.Kid == kid {
			return k.JWK, nil
		}
	}
	return JWK{}, fmt.Errorf("auth: no key with kid %q in jwks for %s", kid, issuer)
}
