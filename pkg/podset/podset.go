// Package podset resolves an incoming request URI to the pod (storage
// space) that owns it, across a set of pods hosted by one storage service
// process, by longest root-URI-prefix match.
package podset

import (
	"errors"
	"strings"

	"github.com/cuemby/podcore/pkg/slot"
)

// ErrNoSuchPod is returned when no registered pod's root is a prefix of the
// requested URI.
var ErrNoSuchPod = errors.New("podset: no pod owns this uri")

// Pod is one storage space: its root URI, owning WebID, and the aux policy
// its storage service applies.
type Pod struct {
	RootURI   string
	OwnerID   string
	AuxPolicy slot.AuxPolicy
}

// PodSet resolves request URIs to the Pod that owns them.
type PodSet interface {
	// Resolve returns the pod whose root URI is the longest matching
	// prefix of uri, or ErrNoSuchPod.
	Resolve(uri string) (*Pod, error)

	// Pods returns every pod currently registered.
	Pods() []*Pod
}

func longestPrefixMatch(pods []*Pod, uri string) (*Pod, error) {
	var best *Pod
	for _, p := range pods {
		if strings.HasPrefix(uri, p.RootURI) {
			if best == nil || len(p.RootURI) > len(best.RootURI) {
				best = p
			}
		}
	}
	if best == nil {
		return nil, ErrNoSuchPod
	}
	return best, nil
}
