// Package slot implements the storage-space slot model: the bidirectional
// mapping between a normalized resource URI and the hierarchical path that
// locates it in a pod's resource forest.
package slot

import (
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// Kind is the resource kind: container or non-container.
type Kind int

const (
	NonContainer Kind = iota
	Container
)

func (k Kind) String() string {
	if k == Container {
		return "Container"
	}
	return "NonContainer"
}

// KindOfURI derives a resource's kind purely from its URI: a container's
// URI always ends with a trailing slash.
func KindOfURI(uri string) Kind {
	if strings.HasSuffix(uri, "/") {
		return Container
	}
	return NonContainer
}

// Normalize applies RFC 3986 syntax-based normalization plus the
// scheme-based normalization rules relevant to http/https (default ports
// elided, case-folded scheme/host, dot-segments removed). Normalize is
// idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("slot: invalid uri %q: %w", rawURI, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("slot: uri %q is not absolute", rawURI)
	}
	if u.Fragment != "" {
		return "", fmt.Errorf("slot: uri %q carries a fragment", rawURI)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Scheme-based normalization: drop the default port for http/https.
	if host, port, ok := splitHostPort(u.Host); ok {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = host
		}
	}

	hadTrailingSlash := strings.HasSuffix(u.Path, "/")
	cleaned := path.Clean(u.Path)
	if cleaned == "." {
		cleaned = "/"
	}
	if hadTrailingSlash && !strings.HasSuffix(cleaned, "/") {
		cleaned += "/"
	}
	if cleaned == "" {
		cleaned = "/"
	}
	u.Path = cleaned

	// Percent-encoding is kept as written when path.Clean leaves the path
	// unchanged. When dot-segment removal changes it, url.String() re-encodes
	// the cleaned path, which upper-cases hex digits and leaves unreserved
	// characters decoded.
	return u.String(), nil
}

func splitHostPort(host string) (h, port string, ok bool) {
	idx := strings.LastIndexByte(host, ':')
	if idx < 0 {
		return host, "", false
	}
	return host[:idx], host[idx+1:], true
}

// IsNormal reports whether uri is already in normal form.
func IsNormal(uri string) bool {
	n, err := Normalize(uri)
	return err == nil && n == uri
}

// IsInSpace reports whether uri falls under rootURI by prefix inclusion.
// rootURI must itself be a normalized, trailing-slash container URI.
func IsInSpace(rootURI, uri string) bool {
	return strings.HasPrefix(uri, rootURI)
}

// Segment validates and returns a URI path segment, rejecting segments
// that are empty or are themselves "." or "..", per the non-dot / non-empty
// invariants of the original uri-segment model.
func Segment(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("slot: empty segment")
	}
	if s == "." || s == ".." {
		return "", fmt.Errorf("slot: dot segment %q is not a valid resource slug", s)
	}
	if strings.ContainsAny(s, "/") {
		return "", fmt.Errorf("slot: segment %q contains a path separator", s)
	}
	return s, nil
}

// SortByRootLenDesc sorts uris (treated as storage-space roots) by
// descending length, so that longest-prefix-wins pod routing can pick the
// first match.
func SortByRootLenDesc(uris []string) {
	sort.Slice(uris, func(i, j int) bool {
		return len(uris[i]) > len(uris[j])
	})
}
