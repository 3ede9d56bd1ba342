package rdf

import (
	"fmt"
	"strings"
)

// TurtleCodec implements a practical subset of Turtle sufficient for the
// documents a pod server actually produces and consumes: container
// membership listings and ACL/description graphs. It supports <IRI> terms,
// blank nodes, quoted string literals with an optional ^^datatype suffix,
// and the ";" predicate-list shorthand. Decode skips @prefix lines; it does
// not parse prefixed-name terms, the "a" keyword, or ","-separated object
// lists. It does not implement collections, nested
// blank-node property lists, or numeric/boolean literal shorthand — pod
// content in this domain is written by this codec, so it never needs to
// round-trip arbitrary Turtle found in the wild.
type TurtleCodec struct{}

func (TurtleCodec) ContentType() string { return "text/turtle" }

// Encode renders g as Turtle, one subject block per distinct subject in the
// order subjects first appear.
func (TurtleCodec) Encode(g Graph) ([]byte, error) {
	var sb strings.Builder
	var order []Term
	grouped := make(map[Term][]Triple)
	for _, t := range g {
		if _, seen := grouped[t.Subject]; !seen {
			order = append(order, t.Subject)
		}
		grouped[t.Subject] = append(grouped[t.Subject], t)
	}

	for _, subj := range order {
		triples := grouped[subj]
		sb.WriteString(subj.String())
		sb.WriteString("\n")
		for i, t := range triples {
			sb.WriteString("    ")
			sb.WriteString(t.Predicate.String())
			sb.WriteString(" ")
			sb.WriteString(t.Object.String())
			if i == len(triples)-1 {
				sb.WriteString(" .\n")
			} else {
				sb.WriteString(" ;\n")
			}
		}
	}
	return []byte(sb.String()), nil
}

// Decode parses Turtle text produced by Encode (or shaped like it: one
// subject per line, indented semicolon-joined predicate-object pairs,
// terminated with a period).
func (TurtleCodec) Decode(data []byte) (Graph, error) {
	var g Graph
	var subject Term
	haveSubject := false

	lines := strings.Split(string(data), "\n")
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "@prefix") {
			continue
		}

		terminator := ""
		if strings.HasSuffix(line, " .") {
			terminator = "."
			line = strings.TrimSuffix(line, " .")
		} else if strings.HasSuffix(line, " ;") {
			terminator = ";"
			line = strings.TrimSuffix(line, " ;")
		}

		if !strings.HasPrefix(raw, " ") && !strings.HasPrefix(raw, "\t") {
			// A subject-starting line: "<iri>" with no predicate/object yet.
			t, err := parseTerm(line)
			if err != nil {
				return nil, err
			}
			subject = t
			haveSubject = true
			continue
		}

		if !haveSubject {
			return nil, fmt.Errorf("rdf: predicate-object line before any subject: %q", raw)
		}

		pred, obj, err := splitPredObj(line)
		if err != nil {
			return nil, err
		}
		predTerm, err := parseTerm(pred)
		if err != nil {
			return nil, err
		}
		objTerm, err := parseTerm(obj)
		if err != nil {
			return nil, err
		}
		g = append(g, Triple{Subject: subject, Predicate: predTerm, Object: objTerm})

		if terminator == "." {
			haveSubject = false
		}
	}
	return g, nil
}

func splitPredObj(line string) (pred, obj string, err error) {
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return "", "", fmt.Errorf("rdf: malformed predicate-object line: %q", line)
	}
	return line[:idx], strings.TrimSpace(line[idx+1:]), nil
}

func parseTerm(s string) (Term, error) {
	switch {
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return NewIRI(s[1 : len(s)-1]), nil
	case strings.HasPrefix(s, "_:"):
		return NewBlank(strings.TrimPrefix(s, "_:")), nil
	case strings.HasPrefix(s, `"`):
		return parseLiteral(s)
	default:
		return Term{}, fmt.Errorf("rdf: unrecognized term %q", s)
	}
}

func parseLiteral(s string) (Term, error) {
	datatype := ""
	if idx := strings.Index(s, `"^^<`); idx >= 0 {
		datatype = strings.TrimSuffix(s[idx+4:], ">")
		s = s[:idx+1]
	}
	if !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) || len(s) < 2 {
		return Term{}, fmt.Errorf("rdf: malformed literal %q", s)
	}
	return NewLiteral(s[1:len(s)-1], datatype), nil
}
