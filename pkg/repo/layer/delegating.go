package layer

import (
	"context"

	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/cuemby/podcore/pkg/repo"
)

// Delegating forwards every operator call straight to Inner. Other layers
// embed it so they only need to override the methods they actually change;
// it is also a Layer in its own right (the identity layer, the scaffold a
// new layer starts from).
type Delegating struct {
	Inner Operator
}

// Wrap lets Delegating be composed via Chain like any other layer.
func (d Delegating) Wrap(inner Operator) Operator {
	return Delegating{Inner: inner}
}

func (d Delegating) ResolveStatus(ctx context.Context, uri string) (*repo.Status, error) {
	return d.Inner.ResolveStatus(ctx, uri)
}

func (d Delegating) Read(ctx context.Context, uri string) (*objectstore.Object, error) {
	return d.Inner.Read(ctx, uri)
}

func (d Delegating) Create(ctx context.Context, uri string, data []byte, contentType string) error {
	return d.Inner.Create(ctx, uri, data, contentType)
}

func (d Delegating) Update(ctx context.Context, uri string, data []byte, contentType string) error {
	return d.Inner.Update(ctx, uri, data, contentType)
}

func (d Delegating) Delete(ctx context.Context, uri string) error {
	return d.Inner.Delete(ctx, uri)
}

// ApplyPatch forwards to Inner when it (or something further down the
// chain) implements PatchOperator, so a Patching layer remains reachable
// through any number of other layers wrapping it, regardless of stack
// order. Returns repo.ErrUnsupportedPatchType if nothing in the chain does.
func (d Delegating) ApplyPatch(ctx context.Context, resolver repo.PatcherResolver, uri, patchContentType string, patchBody []byte) error {
	if po, ok := d.Inner.(PatchOperator); ok {
		return po.ApplyPatch(ctx, resolver, uri, patchContentType, patchBody)
	}
	return repo.ErrUnsupportedPatchType
}

// ReadNegotiated forwards to Inner when it implements a negotiating reader,
// so a DerivedContentNegotiating layer remains reachable through any number
// of other layers wrapping it. Falls back to a plain Read when nothing in
// the chain negotiates content.
func (d Delegating) ReadNegotiated(ctx context.Context, uri, preferredMediaType string) (*objectstore.Object, error) {
	if nr, ok := d.Inner.(negotiatingOperator); ok {
		return nr.ReadNegotiated(ctx, uri, preferredMediaType)
	}
	return d.Inner.Read(ctx, uri)
}

// negotiatingOperator is the subset of DerivedContentNegotiating's surface
// Delegating.ReadNegotiated needs, named here to avoid a cyclic reference.
type negotiatingOperator interface {
	ReadNegotiated(ctx context.Context, uri, preferredMediaType string) (*objectstore.Object, error)
}

// ReadWithPreference forwards to Inner when it honors container
// representation levels (as *repo.Engine does), falling back to a plain
// Read — the level lattice tops out at the full representation Read already
// returns, so a chain with no preference-aware operator simply serves the
// RepLevelAll representation.
func (d Delegating) ReadWithPreference(ctx context.Context, uri string, level repo.ContainerRepLevel) (*objectstore.Object, error) {
	if pr, ok := d.Inner.(preferringOperator); ok {
		return pr.ReadWithPreference(ctx, uri, level)
	}
	return d.Inner.Read(ctx, uri)
}

type preferringOperator interface {
	ReadWithPreference(ctx context.Context, uri string, level repo.ContainerRepLevel) (*objectstore.Object, error)
}
