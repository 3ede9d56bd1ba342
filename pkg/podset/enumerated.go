package podset

import "sync"

// EnumeratedPodSet is a dynamically mutable pod registry: pods can be
// added and removed at runtime, e.g. by a provisioning admin surface, in a
// mutex-guarded map that is mutated in place.
type EnumeratedPodSet struct {
	mu   sync.RWMutex
	pods map[string]*Pod
}

// NewEnumeratedPodSet returns an empty registry.
func NewEnumeratedPodSet() *EnumeratedPodSet {
	return &EnumeratedPodSet{pods: make(map[string]*Pod)}
}

// Register adds or replaces the pod at rootURI.
func (e *EnumeratedPodSet) Register(pod *Pod) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pods[pod.RootURI] = pod
}

// Deregister removes the pod at rootURI, if present.
func (e *EnumeratedPodSet) Deregister(rootURI string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pods, rootURI)
}

func (e *EnumeratedPodSet) Resolve(uri string) (*Pod, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pods := make([]*Pod, 0, len(e.pods))
	for _, p := range e.pods {
		pods = append(pods, p)
	}
	return longestPrefixMatch(pods, uri)
}

func (e *EnumeratedPodSet) Pods() []*Pod {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Pod, 0, len(e.pods))
	for _, p := range e.pods {
		out = append(out, p)
	}
	return out
}
