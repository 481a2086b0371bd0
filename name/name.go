// Package name implements the forwarder's canonical content name: an
// ordered, immutable sequence of typed byte-string segments, hashable by
// every prefix length (§4.2).
package name

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// TypeGeneric is the default segment label type used by from_uri when no
// explicit "label=" prefix is given.
const TypeGeneric uint16 = 0x0003

// Segment is one (label-type, byte-string) pair within a Name.
type Segment struct {
	Typ uint16
	Val []byte
}

// Returns true if both segments have the same label type and byte value.
func (s Segment) Equal(o Segment) bool {
	if s.Typ != o.Typ || len(s.Val) != len(o.Val) {
		return false
	}
	for i := range s.Val {
		if s.Val[i] != o.Val[i] {
			return false
		}
	}
	return true
}

// Name is an immutable, ordered sequence of segments. The zero value is
// the 0-segment name, which is a valid prefix of every name.
type Name struct {
	segs []Segment
}

// ParseError is returned by FromURI for a malformed "lci:/..." string.
type ParseError struct {
	Input  string
	Reason string
}

// Returns a human-readable description of why the URI string could not be parsed as a Name.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid name %q: %s", e.Input, e.Reason)
}

// FromURI parses "lci:/label=bytes/label=bytes/..." where label is an
// optional decimal segment type (default TypeGeneric) and bytes may be
// percent-escaped.
func FromURI(s string) (Name, error) {
	trimmed := strings.TrimPrefix(s, "lci:")
	if trimmed == "" || trimmed == "/" {
		return Name{}, nil
	}
	if !strings.HasPrefix(trimmed, "/") {
		return Name{}, &ParseError{Input: s, Reason: "missing leading /"}
	}
	parts := strings.Split(trimmed[1:], "/")

	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		typ := TypeGeneric
		raw := part
		if idx := strings.IndexByte(part, '='); idx >= 0 {
			label, err := strconv.ParseUint(part[:idx], 10, 16)
			if err != nil {
				return Name{}, &ParseError{Input: s, Reason: "bad label: " + part[:idx]}
			}
			typ = uint16(label)
			raw = part[idx+1:]
		}
		val, err := url.PathUnescape(raw)
		if err != nil {
			return Name{}, &ParseError{Input: s, Reason: "bad percent-encoding in: " + raw}
		}
		segs = append(segs, Segment{Typ: typ, Val: []byte(val)})
	}
	return Name{segs: segs}, nil
}

// SegmentCount returns the number of segments in the name.
func (n Name) SegmentCount() int {
	return len(n.segs)
}

// Segment returns the i-th segment.
func (n Name) Segment(i int) Segment {
	return n.segs[i]
}

// Prefix returns the first k segments as a new Name, sharing storage
// with n (names are immutable, so this is safe).
func (n Name) Prefix(k int) Name {
	if k > len(n.segs) {
		k = len(n.segs)
	}
	return Name{segs: n.segs[:k]}
}

// Append returns a new Name with the given segments appended.
func (n Name) Append(segs ...Segment) Name {
	out := make([]Segment, len(n.segs)+len(segs))
	copy(out, n.segs)
	copy(out[len(n.segs):], segs)
	return Name{segs: out}
}

// Equal reports whether two names have identical segments.
func (n Name) Equal(o Name) bool {
	return n.EqualPrefix(o, len(n.segs)) && len(n.segs) == len(o.segs)
}

// EqualPrefix reports whether the first k segments of n and o are equal.
// Per the invariant in §4.2, this must agree with HashPrefix(k) equality.
func (n Name) EqualPrefix(o Name, k int) bool {
	if k > len(n.segs) || k > len(o.segs) {
		return false
	}
	for i := 0; i < k; i++ {
		if !n.segs[i].Equal(o.segs[i]) {
			return false
		}
	}
	return true
}

// String renders the name as an "lci:/label=bytes/..." URI, omitting the
// label for generic-typed segments.
func (n Name) String() string {
	var sb strings.Builder
	sb.WriteString("lci:")
	if len(n.segs) == 0 {
		sb.WriteString("/")
		return sb.String()
	}
	for _, s := range n.segs {
		sb.WriteByte('/')
		if s.Typ != TypeGeneric {
			sb.WriteString(strconv.FormatUint(uint64(s.Typ), 10))
			sb.WriteByte('=')
		}
		sb.WriteString(url.PathEscape(string(s.Val)))
	}
	return sb.String()
}
