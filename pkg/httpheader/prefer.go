package httpheader

import "strings"

// RepPreference is the container representation level a client selected via
// Prefer: return=representation with LDP include/omit parameters.
type RepPreference int

const (
	// RepAll: containment triples, containment metadata, and user triples.
	RepAll RepPreference = iota
	// RepContainment: containment triples and containment metadata only.
	RepContainment
	// RepMinimal: neither containment nor user triples.
	RepMinimal
)

// LDP preference IRIs recognized inside include/omit parameters.
const (
	ldpPreferContainment      = "http://www.w3.org/ns/ldp#PreferContainment"
	ldpPreferMinimalContainer = "http://www.w3.org/ns/ldp#PreferMinimalContainer"
)

// PreferenceApplied is the Preference-Applied header value echoed when a
// parsed representation preference was honored.
const PreferenceApplied = "return=representation"

// ParsePrefer resolves a Prefer header value to the representation level it
// selects. The second return is false when the header expresses no
// representation preference at all (absent, or a different Prefer token),
// in which case callers should not echo Preference-Applied.
func ParsePrefer(header string) (RepPreference, bool) {
	if header == "" {
		return RepAll, false
	}
	var sawReturnRep bool
	var include, omit string
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		switch {
		case strings.EqualFold(part, "return=representation"):
			sawReturnRep = true
		case strings.HasPrefix(strings.ToLower(part), "include="):
			include = strings.Trim(part[len("include="):], `"`)
		case strings.HasPrefix(strings.ToLower(part), "omit="):
			omit = strings.Trim(part[len("omit="):], `"`)
		}
	}
	if !sawReturnRep {
		return RepAll, false
	}
	switch {
	case strings.Contains(include, ldpPreferMinimalContainer), strings.Contains(omit, ldpPreferContainment):
		return RepMinimal, true
	case strings.Contains(include, ldpPreferContainment):
		return RepContainment, true
	}
	return RepAll, true
}
