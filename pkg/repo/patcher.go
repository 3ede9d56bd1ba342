package repo

import (
	"context"
	"fmt"
)

// Patcher applies one PATCH request body against an existing representation
// and returns the new representation bytes.
type Patcher interface {
	Patch(existing []byte, patchBody []byte) ([]byte, error)
}

// PatcherResolver maps a PATCH request's content type to the Patcher that
// understands it.
type PatcherResolver interface {
	Resolve(patchContentType string) (Patcher, error)
}

// ErrUnsupportedPatchType is returned when no Patcher is registered for a
// PATCH request's content type.
var ErrUnsupportedPatchType = fmt.Errorf("repo: unsupported patch content type")

// replacePatcher implements the simplest patch semantics: the patch body
// wholesale replaces the existing representation. Registered under
// "text/turtle" so a PUT-shaped PATCH (a full replacement document) works
// out of the box; a SPARQL-Update patcher can be registered alongside it
// under "application/sparql-update" by any caller that builds one.
type replacePatcher struct{}

func (replacePatcher) Patch(_ []byte, patchBody []byte) ([]byte, error) {
	return patchBody, nil
}

// DefaultPatcherResolver returns the baseline resolver: whole-document
// replacement for text/turtle patch bodies.
type DefaultPatcherResolver struct {
	patchers map[string]Patcher
}

// NewDefaultPatcherResolver builds a resolver seeded with the baseline
// text/turtle replace patcher.
func NewDefaultPatcherResolver() *DefaultPatcherResolver {
	return &DefaultPatcherResolver{
		patchers: map[string]Patcher{
			"text/turtle": replacePatcher{},
		},
	}
}

// Register adds or overrides the patcher for contentType.
func (r *DefaultPatcherResolver) Register(contentType string, p Patcher) {
	r.patchers[contentType] = p
}

func (r *DefaultPatcherResolver) Resolve(patchContentType string) (Patcher, error) {
	p, ok := r.patchers[patchContentType]
	if !ok {
		return nil, ErrUnsupportedPatchType
	}
	return p, nil
}

// ApplyPatch reads the existing representation at uri, resolves a Patcher
// for patchContentType, applies it, and writes the result back via Update,
// or via Create when uri does not exist yet.
func (e *Engine) ApplyPatch(ctx context.Context, resolver PatcherResolver, uri, patchContentType string, patchBody []byte) error {
	status, err := e.ResolveStatus(ctx, uri)
	if err != nil {
		return err
	}

	var existing []byte
	if status.IsExisting() {
		obj, err := e.Read(ctx, uri)
		if err != nil {
			return err
		}
		existing = obj.Data
	}

	patcher, err := resolver.Resolve(patchContentType)
	if err != nil {
		return err
	}

	updated, err := patcher.Patch(existing, patchBody)
	if err != nil {
		return err
	}

	contentType := status.ContentType
	if contentType == "" {
		contentType = "text/turtle"
	}
	if status.IsExisting() {
		return e.Update(ctx, uri, updated, contentType)
	}
	return e.Create(ctx, uri, updated, contentType)
}
