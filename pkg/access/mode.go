// Package access implements the policy-driven access-control engine
// gating every repo operation, split into three stages: PRP (locate the
// effective ACR), PDP (decide allowed modes from it), and PEP (enforce
// those modes against what an operation requires).
package access

import "sort"

// Mode is one access mode a policy can grant or a request can require.
type Mode string

const (
	Read    Mode = "read"
	Write   Mode = "write"
	Append  Mode = "append"
	Create  Mode = "create"
	Delete  Mode = "delete"
	Control Mode = "control"
)

// ModeSet is an unordered collection of Modes.
type ModeSet map[Mode]bool

// NewModeSet builds a ModeSet from the given modes.
func NewModeSet(modes ...Mode) ModeSet {
	s := make(ModeSet, len(modes))
	for _, m := range modes {
		s[m] = true
	}
	return s
}

// Has reports whether m is in s directly (no generalization).
func (s ModeSet) Has(m Mode) bool { return s[m] }

// generalizes lists, for each mode, the modes it also implicitly grants:
// granting write grants append/create/delete too.
var generalizes = map[Mode][]Mode{
	Write: {Append, Create, Delete},
}

// Expand returns a new ModeSet containing every mode in s plus every mode
// any of them generalizes to, applied transitively.
func (s ModeSet) Expand() ModeSet {
	out := make(ModeSet, len(s))
	var visit func(m Mode)
	visit = func(m Mode) {
		if out[m] {
			return
		}
		out[m] = true
		for _, g := range generalizes[m] {
			visit(g)
		}
	}
	for m := range s {
		visit(m)
	}
	return out
}

// Union returns the union of a and b.
func Union(a, b ModeSet) ModeSet {
	out := make(ModeSet, len(a)+len(b))
	for m := range a {
		out[m] = true
	}
	for m := range b {
		out[m] = true
	}
	return out
}

// Minus returns a with every mode in b removed.
func Minus(a, b ModeSet) ModeSet {
	out := make(ModeSet, len(a))
	for m := range a {
		if !b[m] {
			out[m] = true
		}
	}
	return out
}

// Sorted renders s as a sorted slice of strings, for deterministic headers.
func (s ModeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for m := range s {
		out = append(out, string(m))
	}
	sort.Strings(out)
	return out
}

// RequiredModes returns the ModeSet an HTTP method requires against a
// target of the given container-ness: GET/HEAD -> read,
// PUT -> write, POST on a container -> append+create, DELETE -> delete.
// PATCH's required modes depend on what the patch does and are supplied by
// the caller (read+write is the conservative default).
func RequiredModes(method string, targetIsContainer bool) ModeSet {
	switch method {
	case "GET", "HEAD":
		return NewModeSet(Read)
	case "PUT":
		return NewModeSet(Write)
	case "POST":
		if targetIsContainer {
			return NewModeSet(Append, Create)
		}
		return NewModeSet(Write)
	case "DELETE":
		return NewModeSet(Delete)
	case "PATCH":
		return NewModeSet(Read, Write)
	default:
		return NewModeSet()
	}
}
