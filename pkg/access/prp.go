package access

import (
	"context"

	"github.com/cuemby/podcore/pkg/rdf"
	"github.com/cuemby/podcore/pkg/slot"
)

// ResourceReader is the minimal repo-operator surface the PRP needs to
// fetch a candidate acl resource's bytes: *repo.Engine (and any layer
// wrapping it) satisfies this.
type ResourceReader interface {
	ResolveStatus(ctx context.Context, uri string) (exists bool, contentType string, err error)
	ReadBytes(ctx context.Context, uri string) ([]byte, error)
}

// PRP is the Policy Retrieval Point: given a target
// resource URI, it walks up the slot tree from the target to the storage
// root looking for the nearest resource whose acl aux resource is actually
// represented, then folds in every ancestor's memberAccessControl triples
// so they apply transitively to the target.
type PRP struct {
	RootURI string
	Reader  ResourceReader
	Codec   rdf.Codec
}

// NewPRP builds a PRP bound to rootURI, fetching acl bodies through reader
// and parsing them with codec (text/turtle by default if codec is nil).
func NewPRP(rootURI string, reader ResourceReader, codec rdf.Codec) *PRP {
	if codec == nil {
		codec, _ = rdf.Lookup("text/turtle")
	}
	return &PRP{RootURI: rootURI, Reader: reader, Codec: codec}
}

// Resolve returns the ordered list of ACRs that apply to targetURI: the
// nearest represented ACR (controlling the resource directly) first,
// followed by every ancestor ACR found while walking up to the root — each
// ancestor contributes only through its MemberAccessControls, already
// populated by ParseACR from the acp:memberAccessControl predicate.
func (p *PRP) Resolve(ctx context.Context, targetURI string) ([]ACR, error) {
	var acrs []ACR
	cur := targetURI
	first := true
	for cur != "" {
		aclURI := slot.AuxURI(cur, slot.AuxACL)
		exists, contentType, err := p.Reader.ResolveStatus(ctx, aclURI)
		if err != nil {
			return nil, err
		}
		if exists {
			body, err := p.Reader.ReadBytes(ctx, aclURI)
			if err != nil {
				return nil, err
			}
			codec := p.Codec
			if contentType != "" {
				if c, ok := rdf.Lookup(contentType); ok {
					codec = c
				}
			}
			graph, err := codec.Decode(body)
			if err != nil {
				return nil, err
			}
			acr, err := ParseACR(graph, cur, rdf.NewIRI(aclURI))
			if err != nil {
				return nil, err
			}
			if first {
				acrs = append(acrs, acr)
			} else {
				// An ancestor's direct AccessControls do not apply to
				// descendants, only its memberAccessControl set does.
				acrs = append(acrs, ACR{ResourceURI: acr.ResourceURI, MemberAccessControls: acr.MemberAccessControls})
			}
		}
		first = false
		if cur == p.RootURI {
			break
		}
		parent := slot.ParentURI(p.RootURI, cur)
		if parent == "" {
			break
		}
		cur = parent
	}
	return acrs, nil
}
