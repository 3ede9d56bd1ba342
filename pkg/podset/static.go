package podset

// StaticPodSet is a fixed, immutable set of pods decided at startup.
type StaticPodSet struct {
	pods []*Pod
}

// NewStaticPodSet builds a StaticPodSet from pods, which must not overlap
// by root-URI prefix in a way that makes resolution ambiguous (the longest
// match always wins, so nesting is fine; two pods sharing the same root is
// a configuration error the caller must avoid).
func NewStaticPodSet(pods []*Pod) *StaticPodSet {
	return &StaticPodSet{pods: pods}
}

func (s *StaticPodSet) Resolve(uri string) (*Pod, error) {
	return longestPrefixMatch(s.pods, uri)
}

func (s *StaticPodSet) Pods() []*Pod {
	out := make([]*Pod, len(s.pods))
	copy(out, s.pods)
	return out
}
