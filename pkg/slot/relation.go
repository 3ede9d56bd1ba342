package slot

// RelTypeKind distinguishes a Contains edge (container -> child) from an
// Auxiliary edge (subject -> aux resource of a known kind).
type RelTypeKind int

const (
	Contains RelTypeKind = iota
	Auxiliary
)

// AuxKind names a well-known auxiliary relation, e.g. "acl" or "describedBy".
type AuxKind string

const (
	AuxACL         AuxKind = "acl"
	AuxDescribedBy AuxKind = "meta"
)

// AuxKindSpec fixes the subject/target kind invariants for one aux relation
// type.
type AuxKindSpec struct {
	Kind                AuxKind
	AllowedSubjectKinds []Kind
	TargetKind          Kind
	// ContentTypePolicy, if non-empty, is the required content-type for
	// representations of this aux kind (e.g. "text/turtle" for acl/meta).
	ContentTypePolicy string
}

func (s AuxKindSpec) allowsSubject(k Kind) bool {
	for _, allowed := range s.AllowedSubjectKinds {
		if allowed == k {
			return true
		}
	}
	return false
}

// RelType is a slot relation type: either Contains, or Auxiliary(k) for a
// known aux kind k.
type RelType struct {
	RelKind RelTypeKind
	Aux     AuxKind // valid only when RelKind == Auxiliary
}

func (r RelType) String() string {
	if r.RelKind == Contains {
		return "Contains"
	}
	return "Auxiliary(" + string(r.Aux) + ")"
}

// ContainsRel is the singleton Contains relation value.
var ContainsRel = RelType{RelKind: Contains}

// AuxRel builds an Auxiliary(k) relation value.
func AuxRel(k AuxKind) RelType {
	return RelType{RelKind: Auxiliary, Aux: k}
}

// AuxPolicy governs which aux kinds exist in a storage space, their subject
// and target kind constraints, and records a MaxDepth for consecutive aux
// links in a root-to-slot path. Nothing in this module reads MaxDepth, so
// the depth bound is not enforced.
type AuxPolicy struct {
	Kinds    map[AuxKind]AuxKindSpec
	MaxDepth int // 0 means unbounded
}

// DefaultAuxPolicy returns the baseline policy:
// "acl" and "meta" (describedBy), both non-container, text/turtle, subject
// any kind, MaxDepth 1.
func DefaultAuxPolicy() AuxPolicy {
	return AuxPolicy{
		MaxDepth: 1,
		Kinds: map[AuxKind]AuxKindSpec{
			AuxACL: {
				Kind:                AuxACL,
				AllowedSubjectKinds: []Kind{Container, NonContainer},
				TargetKind:          NonContainer,
				ContentTypePolicy:   "text/turtle",
			},
			AuxDescribedBy: {
				Kind:                AuxDescribedBy,
				AllowedSubjectKinds: []Kind{Container, NonContainer},
				TargetKind:          NonContainer,
				ContentTypePolicy:   "text/turtle",
			},
		},
	}
}

// Lookup returns the spec for a known aux kind.
func (p AuxPolicy) Lookup(k AuxKind) (AuxKindSpec, bool) {
	spec, ok := p.Kinds[k]
	return spec, ok
}

// Validate checks the relation-type invariants: Contains edges
// issue only from containers; Auxiliary(k) edges issue only from a subject
// kind allowed by k, and their target kind must equal k's target kind.
func (p AuxPolicy) Validate(rel RelType, subjectKind, targetKind Kind) error {
	switch rel.RelKind {
	case Contains:
		if subjectKind != Container {
			return ErrSlotRelSubjectConstrainViolation
		}
		return nil
	case Auxiliary:
		spec, ok := p.Kinds[rel.Aux]
		if !ok {
			return ErrUnknownAuxKind
		}
		if !spec.allowsSubject(subjectKind) {
			return ErrSlotRelSubjectConstrainViolation
		}
		if spec.TargetKind != targetKind {
			return ErrSlotRelTargetConstrainViolation
		}
		return nil
	default:
		return ErrUnknownAuxKind
	}
}
