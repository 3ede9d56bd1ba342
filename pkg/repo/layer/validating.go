package layer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuemby/podcore/pkg/slot"
)

// Validating enforces a pod's AuxPolicy content-type constraints on
// Create/Update: an "acl" or "describedBy" resource must be written with
// the content type its AuxKindSpec pins (e.g. text/turtle). RootURI and
// Policy let the layer recover a URI's relation type the same way
// pkg/slot.Decode does, then check it against the policy without needing
// the caller to pass the aux kind explicitly.
type Validating struct {
	Delegating
	RootURI string
	Policy  slot.AuxPolicy
}

// NewValidating builds a Validating layer bound to rootURI/policy.
func NewValidating(rootURI string, policy slot.AuxPolicy) *Validating {
	return &Validating{RootURI: rootURI, Policy: policy}
}

func (v *Validating) Wrap(inner Operator) Operator {
	return &Validating{Delegating: Delegating{Inner: inner}, RootURI: v.RootURI, Policy: v.Policy}
}

func (v *Validating) Create(ctx context.Context, uri string, data []byte, contentType string) error {
	if err := v.checkContentType(uri, contentType); err != nil {
		return err
	}
	return v.Delegating.Create(ctx, uri, data, contentType)
}

func (v *Validating) Update(ctx context.Context, uri string, data []byte, contentType string) error {
	if err := v.checkContentType(uri, contentType); err != nil {
		return err
	}
	return v.Delegating.Update(ctx, uri, data, contentType)
}

func (v *Validating) checkContentType(uri, contentType string) error {
	proc, err := slot.Decode(v.RootURI, uri)
	if err != nil || len(proc) == 0 {
		return nil
	}
	last := proc[len(proc)-1]
	if last.Kind != slot.AuxStep {
		return nil
	}
	spec, ok := v.Policy.Lookup(last.AuxKind)
	if !ok || spec.ContentTypePolicy == "" {
		return nil
	}
	if !strings.EqualFold(contentType, spec.ContentTypePolicy) {
		return fmt.Errorf("layer: %s resources must be written as %s, got %s", last.AuxKind, spec.ContentTypePolicy, contentType)
	}
	return nil
}
