package layer

import (
	"context"

	"github.com/cuemby/podcore/pkg/objectstore"
)

// Negotiator rewrites a representation into mediaType if it can, returning
// ok=false to let the next Negotiator in the chain try.
type Negotiator interface {
	MediaType() string
	Negotiate(obj *objectstore.Object) (*objectstore.Object, bool)
}

// DerivedContentNegotiating wraps only the reader side of an Operator: a
// configured stack of Negotiators may rewrite a read representation into a
// client-preferred media type before it's returned; mutators pass through
// untouched. When one DerivedContentNegotiating wraps another, the outer
// ReadNegotiated reads through the inner layer's plain Read, so only the
// outer layer's Negotiators are tried.
type DerivedContentNegotiating struct {
	Delegating
	Negotiators []Negotiator
}

// NewDerivedContentNegotiating builds a layer trying each negotiator in
// order against the client's preferred media type.
func NewDerivedContentNegotiating(negotiators ...Negotiator) *DerivedContentNegotiating {
	return &DerivedContentNegotiating{Negotiators: negotiators}
}

func (d *DerivedContentNegotiating) Wrap(inner Operator) Operator {
	return &DerivedContentNegotiating{Delegating: Delegating{Inner: inner}, Negotiators: d.Negotiators}
}

// Read fetches the inner representation and returns it as-is: it passes no
// preferred media type, so no Negotiator runs. ReadNegotiated is the
// negotiating path.
func (d *DerivedContentNegotiating) Read(ctx context.Context, uri string) (*objectstore.Object, error) {
	obj, err := d.Delegating.Read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return d.negotiate(obj, ""), nil
}

// ReadNegotiated is the variant the storage service calls directly, passing
// the actual preferred media type resolved from the request's Accept
// header, since the plain Operator.Read signature carries no preference
// parameter.
func (d *DerivedContentNegotiating) ReadNegotiated(ctx context.Context, uri, preferredMediaType string) (*objectstore.Object, error) {
	obj, err := d.Delegating.Read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return d.negotiate(obj, preferredMediaType), nil
}

func (d *DerivedContentNegotiating) negotiate(obj *objectstore.Object, preferredMediaType string) *objectstore.Object {
	if preferredMediaType == "" || preferredMediaType == obj.Metadata.ContentType {
		return obj
	}
	for _, n := range d.Negotiators {
		if n.MediaType() != preferredMediaType {
			continue
		}
		if negotiated, ok := n.Negotiate(obj); ok {
			return negotiated
		}
	}
	return obj
}
