package repo

import "context"

// Initialize bootstraps a pod's storage space by ensuring its root
// container exists.
// A freshly initialized root stores an empty Turtle representation; once it
// gains members, a read at RepLevelAll merges these stored triples with the
// containment listing the engine regenerates from Backend.List.
func (e *Engine) Initialize(ctx context.Context) error {
	status, err := e.ResolveStatus(ctx, e.RootURI)
	if err != nil {
		return err
	}
	if status.IsExisting() {
		return nil
	}
	return e.Create(ctx, e.RootURI, nil, "text/turtle")
}
