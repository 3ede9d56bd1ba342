package httpheader

import (
	"fmt"
	"sort"
	"strings"
)

// AccessParam is one "scope=\"mode mode ...\"" component of a WAC-Allow
// response header, reporting which access modes the requesting agent has
// under a given scope ("user" or "public").
type AccessParam struct {
	Scope string   // "user" or "public"
	Modes []string // e.g. "read", "write", "append", "control"
}

func (p AccessParam) String() string {
	modes := append([]string(nil), p.Modes...)
	sort.Strings(modes)
	return fmt.Sprintf(`%s="%s"`, p.Scope, strings.Join(modes, " "))
}

// WACAllow renders the WAC-Allow header value from the user- and
// public-scope access params.
func WACAllow(userModes, publicModes []string) string {
	params := []AccessParam{
		{Scope: "user", Modes: userModes},
		{Scope: "public", Modes: publicModes},
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
