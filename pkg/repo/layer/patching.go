package layer

import (
	"context"

	"github.com/cuemby/podcore/pkg/repo"
)

// PatchOperator extends Operator with the PATCH-applying operation a
// repo.Engine exposes directly (ApplyPatch); Patching forwards to it when
// the wrapped inner operator implements it, and otherwise returns
// repo.ErrUnsupportedPatchType.
type PatchOperator interface {
	Operator
	ApplyPatch(ctx context.Context, resolver repo.PatcherResolver, uri, patchContentType string, patchBody []byte) error
}

// Patching is the patch-resolution layer: it resolves a PATCH request's
// content type to the Patcher that understands it and applies it through
// whichever operator it wraps. The Create-vs-Update choice is made below
// it: repo.Engine.ApplyPatch branches on the resolved status, creating a
// not-yet-existing target and updating an existing one.
type Patching struct {
	Delegating
	Resolver repo.PatcherResolver
}

// NewPatching builds a Patching layer using resolver to dispatch patch
// content types.
func NewPatching(resolver repo.PatcherResolver) *Patching {
	return &Patching{Resolver: resolver}
}

func (p *Patching) Wrap(inner Operator) Operator {
	return &Patching{Delegating: Delegating{Inner: inner}, Resolver: p.Resolver}
}

// ApplyPatch resolves patchContentType and applies it against uri. Returns
// repo.ErrUnsupportedPatchType if no
// inner operator along the chain understands PATCH.
func (p *Patching) ApplyPatch(ctx context.Context, resolver repo.PatcherResolver, uri, patchContentType string, patchBody []byte) error {
	if resolver == nil {
		resolver = p.Resolver
	}
	if po, ok := p.Inner.(PatchOperator); ok {
		return po.ApplyPatch(ctx, resolver, uri, patchContentType, patchBody)
	}
	return repo.ErrUnsupportedPatchType
}
