package slot

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// AuxDelimToken is the reserved path-segment token marking the start of an
// auxiliary-link step within an encoded slot path.
const AuxDelimToken = "._aux"

// StepKind distinguishes the two step shapes of a SlotPathEncodeProcess.
type StepKind int

const (
	MeroStep StepKind = iota
	AuxStep
)

// Step is one hop of a SlotPathEncodeProcess: either a Contains hop
// (Mero{slug, target_kind}) or an Auxiliary hop (Aux{rel_type}).
type Step struct {
	Kind       StepKind
	Slug       string  // valid for MeroStep
	TargetKind Kind    // valid for MeroStep: kind of the resource this hop reaches
	AuxKind    AuxKind // valid for AuxStep
}

// Mero builds a Contains step.
func Mero(slug string, targetKind Kind) Step {
	return Step{Kind: MeroStep, Slug: slug, TargetKind: targetKind}
}

// Aux builds an Auxiliary step.
func Aux(kind AuxKind) Step {
	return Step{Kind: AuxStep, AuxKind: kind}
}

// Process is a SlotPathEncodeProcess: the sequence of hops from the storage
// root to a slot.
type Process []Step

// IsAuxDelimSafe reports whether a candidate slug could collide with the aux
// delimiter token if concatenated directly onto a URI.
func IsAuxDelimSafe(slug string) bool {
	return !strings.Contains(slug, AuxDelimToken)
}

// Encode renders a Process into an absolute URI rooted at rootURI (which
// must itself be a normalized container URI). Encode fails with
// ErrTargetSlugHasExtraEncodingSemantics if any Mero slug is not
// aux-delim-safe, and with ErrInvalidHierarchicalEncodeProcess if a Mero
// step follows anything but a Container-reaching prefix.
func Encode(rootURI string, p Process) (string, error) {
	cur := rootURI
	curKind := Container

	for _, step := range p {
		switch step.Kind {
		case MeroStep:
			if curKind != Container {
				return "", ErrInvalidHierarchicalEncodeProcess
			}
			if _, err := Segment(step.Slug); err != nil {
				return "", ErrInvalidHierarchicalEncodeProcess
			}
			if !IsAuxDelimSafe(step.Slug) {
				return "", ErrTargetSlugHasExtraEncodingSemantics
			}
			cur = cur + step.Slug
			if step.TargetKind == Container {
				cur += "/"
			}
			curKind = step.TargetKind
		case AuxStep:
			if string(step.AuxKind) == "" {
				return "", ErrInvalidHierarchicalEncodeProcess
			}
			cur = cur + AuxDelimToken + "/" + string(step.AuxKind)
			curKind = NonContainer
		default:
			return "", ErrInvalidHierarchicalEncodeProcess
		}
	}
	return cur, nil
}

// Decode parses uri (which must lie under rootURI) back into its Process.
// Decode is the inverse of Encode on valid inputs.
func Decode(rootURI, uri string) (Process, error) {
	if !strings.HasPrefix(uri, rootURI) {
		return nil, ErrInvalidHierarchicalEncodeProcess
	}
	remainder := uri[len(rootURI):]
	if remainder == "" {
		return Process{}, nil
	}

	hadTrailingSlash := strings.HasSuffix(remainder, "/")
	trimmed := strings.TrimSuffix(remainder, "/")
	segments := strings.Split(trimmed, "/")

	var proc Process
	for i := 0; i < len(segments); i++ {
		seg := segments[i]
		if seg == "" {
			return nil, ErrInvalidHierarchicalEncodeProcess
		}

		if idx := strings.Index(seg, AuxDelimToken); idx >= 0 {
			prefix := seg[:idx]
			rest := seg[idx+len(AuxDelimToken):]
			if rest != "" {
				// AuxDelimToken must be its own trailing component of the segment.
				return nil, ErrInvalidHierarchicalEncodeProcess
			}
			if prefix != "" {
				// A mero hop fused onto the same segment as the aux delimiter,
				// e.g. "x._aux" reached via a non-container subject "x".
				proc = append(proc, Mero(prefix, NonContainer))
			}
			// The next segment names the aux relation kind.
			if i+1 >= len(segments) {
				return nil, ErrInvalidHierarchicalEncodeProcess
			}
			kindTok := segments[i+1]
			i++
			proc = append(proc, Aux(AuxKind(kindTok)))
			continue
		}

		isLastSeg := i == len(segments)-1
		targetKind := Container
		if isLastSeg && !hadTrailingSlash {
			targetKind = NonContainer
		}
		proc = append(proc, Mero(seg, targetKind))
	}

	// Round-trip check: re-encoding must reproduce uri exactly.
	got, err := Encode(rootURI, proc)
	if err != nil || got != uri {
		return nil, ErrInvalidHierarchicalEncodeProcess
	}
	return proc, nil
}

// DecodeMutex returns the Process of uri's mutex peer (the resource at the
// same path differing only by trailing slash), or nil, false if uri has no
// structurally valid peer: the storage root has none, and neither does any
// uri whose peer fails Decode (an aux URI's slash-suffixed peer, for one).
func DecodeMutex(rootURI, uri string) (Process, bool) {
	if uri == rootURI {
		return nil, false
	}
	peer := MutexResURI(uri)
	if peer == "" {
		return nil, false
	}
	proc, err := Decode(rootURI, peer)
	if err != nil {
		return nil, false
	}
	return proc, true
}

// MutexResURI returns the URI of uri's mutex peer (uri with its trailing
// slash removed or added), or "" only when uri is "/". It does not know the
// storage root; DecodeMutex rejects that case itself.
func MutexResURI(uri string) string {
	if strings.HasSuffix(uri, "/") {
		trimmed := strings.TrimSuffix(uri, "/")
		if trimmed == "" {
			return ""
		}
		// Only a root-less URI may lose its slash; a non-empty trimmed path
		// always yields a structurally valid non-container peer.
		return trimmed
	}
	return uri + "/"
}

// SuggestResURI yields an advisory child URI under parentURI honoring the
// URI policy (segment shape), given a slug hint and target kind.
func SuggestResURI(parentURI, slugHint string, targetKind Kind) string {
	slug := sanitizeSlug(slugHint)
	if slug == "" {
		slug = uuid.New().String()
	}
	uri := parentURI + slug
	if targetKind == Container {
		uri += "/"
	}
	return uri
}

// AuxURI derives the URI of subjectURI's aux resource of kind k: the
// delimiter token and kind token are appended directly, matching what
// Encode produces for a Process ending in an Aux(k) step.
func AuxURI(subjectURI string, k AuxKind) string {
	return subjectURI + AuxDelimToken + "/" + string(k)
}

// ParentURI returns the URI of the container that directly contains uri
// (uri's host slot under a Contains edge), or "" if uri is the storage
// root or otherwise has no parent segment to strip. Callers walking the
// slot tree upward (e.g. the PRP ancestor search) stop when
// ParentURI returns "" or repeats rootURI.
func ParentURI(rootURI, uri string) string {
	if uri == rootURI || !strings.HasPrefix(uri, rootURI) {
		return ""
	}
	trimmed := strings.TrimSuffix(uri, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 {
		return ""
	}
	parent := trimmed[:idx+1]
	if len(parent) < len(rootURI) {
		return rootURI
	}
	return parent
}

func sanitizeSlug(hint string) string {
	hint = strings.TrimSpace(hint)
	hint = strings.ReplaceAll(hint, "/", "-")
	hint = strings.ReplaceAll(hint, AuxDelimToken, "-")
	hint = url.PathEscape(hint)
	if hint == "." || hint == ".." {
		return ""
	}
	return hint
}
