package access

import (
	"context"

	"github.com/cuemby/podcore/pkg/objectstore"
	"github.com/cuemby/podcore/pkg/repo"
)

// repoOperator is the subset of layer.Operator the PRP needs — named
// separately here (rather than importing pkg/repo/layer) so this package
// doesn't have to depend on the layer stack's Operator type just to read a
// handful of bytes.
type repoOperator interface {
	ResolveStatus(ctx context.Context, uri string) (*repo.Status, error)
	Read(ctx context.Context, uri string) (*objectstore.Object, error)
}

// EngineReader adapts any repo operator (an *repo.Engine or a layer.Chain
// built atop one) to the ResourceReader interface the PRP consumes.
type EngineReader struct {
	Op repoOperator
}

// NewEngineReader wraps op for use as a PRP's ResourceReader.
func NewEngineReader(op repoOperator) *EngineReader {
	return &EngineReader{Op: op}
}

func (r *EngineReader) ResolveStatus(ctx context.Context, uri string) (exists bool, contentType string, err error) {
	status, err := r.Op.ResolveStatus(ctx, uri)
	if err != nil {
		return false, "", err
	}
	return status.IsExisting(), status.ContentType, nil
}

func (r *EngineReader) ReadBytes(ctx context.Context, uri string) ([]byte, error) {
	obj, err := r.Op.Read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return obj.Data, nil
}
