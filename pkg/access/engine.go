package access

import (
	"context"

	"github.com/cuemby/podcore/pkg/rdf"
	"github.com/cuemby/podcore/pkg/slot"
)

// EngineKind selects which policy language an AccessEngine's ACR documents
// are written in.
type EngineKind int

const (
	KindACP EngineKind = iota
	KindWAC
)

// AccessEngine wires PRP+PDP+PEP into the one call the storage service
// makes per request: resolve the effective ACR chain for a target, decide
// allowed modes for the requester (and for the public, for WAC-Allow), and
// report whether the request may proceed.
type AccessEngine struct {
	Kind EngineKind
	PRP  *PRP
}

// NewAccessEngine builds an AccessEngine of the given kind, resolving ACRs
// through prp.
func NewAccessEngine(kind EngineKind, prp *PRP) *AccessEngine {
	return &AccessEngine{Kind: kind, PRP: prp}
}

// Decide resolves the ACR chain for ctx.Target and enforces required modes
// against it, reparsing each fetched acl body as WAC when the engine is
// configured for it instead of ACP.
func (e *AccessEngine) Decide(ctx context.Context, reqCtx Context, required ModeSet) (Decision, error) {
	acrs, err := e.resolveACRs(ctx, reqCtx.Target)
	if err != nil {
		return Decision{}, err
	}
	return Enforce(acrs, reqCtx, required), nil
}

func (e *AccessEngine) resolveACRs(ctx context.Context, targetURI string) ([]ACR, error) {
	if e.Kind == KindACP {
		return e.PRP.Resolve(ctx, targetURI)
	}
	return e.resolveWACChain(ctx, targetURI)
}

// resolveWACChain mirrors PRP.Resolve's ancestor walk but reduces each
// fetched acl body through ParseWAC instead of ParseACR.
func (e *AccessEngine) resolveWACChain(ctx context.Context, targetURI string) ([]ACR, error) {
	var acrs []ACR
	cur := targetURI
	first := true
	for cur != "" {
		aclURI := slot.AuxURI(cur, slot.AuxACL)
		exists, contentType, err := e.PRP.Reader.ResolveStatus(ctx, aclURI)
		if err != nil {
			return nil, err
		}
		if exists {
			body, err := e.PRP.Reader.ReadBytes(ctx, aclURI)
			if err != nil {
				return nil, err
			}
			codec := e.PRP.Codec
			if contentType != "" {
				if c, ok := rdf.Lookup(contentType); ok {
					codec = c
				}
			}
			graph, err := codec.Decode(body)
			if err != nil {
				return nil, err
			}
			acr := ParseWAC(graph, cur)
			if first {
				acrs = append(acrs, acr)
			} else {
				acrs = append(acrs, ACR{ResourceURI: acr.ResourceURI, MemberAccessControls: acr.MemberAccessControls})
			}
		}
		first = false
		if cur == e.PRP.RootURI {
			break
		}
		parent := slot.ParentURI(e.PRP.RootURI, cur)
		if parent == "" {
			break
		}
		cur = parent
	}
	return acrs, nil
}
