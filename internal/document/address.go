// Package document models progressive access to oversized documents:
// the Section tree returned instead of content, the section/chunk
// addressing grammar, and the session-scoped structure cache.
package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// AddressKind distinguishes the two addressing granularities.
type AddressKind int

const (
	// AddressSection targets a titled, hierarchical section (section_3.1).
	AddressSection AddressKind = iota

	// AddressChunk targets fixed-size positional chunks (chunk_5, chunk_1-5).
	AddressChunk
)

// Address is a parsed section or chunk address.
// Section addresses carry the 1-indexed path; chunk addresses carry an
// inclusive 1-indexed range (Start == End for a single chunk).
type Address struct {
	Kind  AddressKind
	Path  []int
	Start int
	End   int
}

var (
	sectionPattern = regexp.MustCompile(`^section_([1-9][0-9]*)((?:\.[1-9][0-9]*)*)$`)
	chunkPattern   = regexp.MustCompile(`^chunk_([1-9][0-9]*)(?:-([1-9][0-9]*))?$`)
)

// ParseAddress validates and parses an address string.
// Accepted forms: section_<int>, section_<int>.<int>[...], chunk_<int>,
// chunk_<int>-<int> with start <= end and all indexes >= 1.
// Malformed forms (chunks_1_3, section1, chunk_1_5) are rejected here,
// before anything reaches the backend.
func ParseAddress(s string) (Address, error) {
	if m := sectionPattern.FindStringSubmatch(s); m != nil {
		path := []int{mustAtoi(m[1])}
		if m[2] != "" {
			for _, part := range strings.Split(strings.TrimPrefix(m[2], "."), ".") {
				path = append(path, mustAtoi(part))
			}
		}
		return Address{Kind: AddressSection, Path: path}, nil
	}

	if m := chunkPattern.FindStringSubmatch(s); m != nil {
		start := mustAtoi(m[1])
		end := start
		if m[2] != "" {
			end = mustAtoi(m[2])
		}
		if start > end {
			return Address{}, fmt.Errorf("%w: %q (range start %d > end %d)", ErrInvalidAddress, s, start, end)
		}
		return Address{Kind: AddressChunk, Start: start, End: end}, nil
	}

	return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
}

// IsValidAddress reports whether s parses under the addressing grammar.
func IsValidAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// String renders the address back to its canonical wire form.
func (a Address) String() string {
	switch a.Kind {
	case AddressChunk:
		if a.Start == a.End {
			return fmt.Sprintf("chunk_%d", a.Start)
		}
		return fmt.Sprintf("chunk_%d-%d", a.Start, a.End)
	default:
		parts := make([]string, len(a.Path))
		for i, p := range a.Path {
			parts[i] = strconv.Itoa(p)
		}
		return "section_" + strings.Join(parts, ".")
	}
}

// IsRange reports whether a chunk address spans more than one chunk.
func (a Address) IsRange() bool {
	return a.Kind == AddressChunk && a.End > a.Start
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		// The patterns only match digit runs; this cannot happen.
		panic(fmt.Sprintf("address digits unparseable: %q", s))
	}
	return n
}
