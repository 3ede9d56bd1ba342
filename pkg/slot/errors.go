package slot

import "errors"

// Errors surfaced by the encoding scheme and relation-type validation.
var (
	ErrTargetSlugHasExtraEncodingSemantics = errors.New("slot: target slug collides with the aux delimiter token")
	ErrInvalidHierarchicalEncodeProcess    = errors.New("slot: encode process does not parse as a valid hierarchy")
	ErrSlotRelSubjectConstrainViolation    = errors.New("slot: subject kind does not satisfy the relation's constraint")
	ErrSlotRelTargetConstrainViolation     = errors.New("slot: target kind does not satisfy the relation's constraint")
	ErrUnknownAuxKind                      = errors.New("slot: unknown auxiliary relation kind")
)
