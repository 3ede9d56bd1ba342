package access

// Decision is the PEP's verdict for one request: the
// modes it required, the modes the agent actually has, and the modes the
// public (an unauthenticated requester) would have — the latter feeds the
// WAC-Allow response header on both success and denial.
type Decision struct {
	Required ModeSet
	Allowed  ModeSet
	Public   ModeSet
}

// Permitted reports whether every required mode is present in Allowed.
func (d Decision) Permitted() bool {
	for m := range d.Required {
		if !d.Allowed.Has(m) {
			return false
		}
	}
	return true
}

// Enforce is the Policy Enforcement Point: it resolves the allowed modes
// for ctx and for the public (ctx with its agent/client/issuer/vc cleared)
// against the same acrs, and reports whether ctx may proceed.
func Enforce(acrs []ACR, ctx Context, required ModeSet) Decision {
	publicCtx := ctx
	publicCtx.Agent = ""
	publicCtx.Client = ""
	publicCtx.Issuer = ""
	publicCtx.VCs = nil

	return Decision{
		Required: required,
		Allowed:  AllowedModes(acrs, ctx),
		Public:   AllowedModes(acrs, publicCtx),
	}
}
