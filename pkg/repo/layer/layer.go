// Package layer implements the Layer/LayeredRepo split. A Layer wraps
// an inner Operator with one additional cross-cutting concern (validation,
// patch resolution, content negotiation) without the inner Operator having
// any awareness of it: what a repo is (its base operator behavior) stays
// separate from what is layered onto it.
package layer

import (
	"context"

	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/cuemby/podcore/pkg/repo"
)

// Operator is the operator surface every layer wraps and re-exposes —
// exactly what *repo.Engine implements, named separately here so layers can
// be tested against fakes without depending on objectstore/backend wiring.
type Operator interface {
	ResolveStatus(ctx context.Context, uri string) (*repo.Status, error)
	Read(ctx context.Context, uri string) (*objectstore.Object, error)
	Create(ctx context.Context, uri string, data []byte, contentType string) error
	Update(ctx context.Context, uri string, data []byte, contentType string) error
	Delete(ctx context.Context, uri string) error
}

// Layer wraps an inner Operator and returns an Operator presenting the same
// surface with one concern added.
type Layer interface {
	Wrap(inner Operator) Operator
}

// Chain applies layers to base in order, so the first layer in the slice is
// outermost (its overrides run first on the way in).
func Chain(base Operator, layers ...Layer) Operator {
	out := base
	for i := len(layers) - 1; i >= 0; i-- {
		out = layers[i].Wrap(out)
	}
	return out
}
