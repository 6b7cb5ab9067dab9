package matchspec

import (
	"strconv"
	"strings"
)

// Compare orders two conda version strings.
// It returns -1 if a < b, 0 if equal, 1 if a > b.
//
// Versions are split into segments on ".", "-", and "_". Segments that are
// both numeric compare numerically ("1.10" > "1.9"); otherwise they compare
// lexicographically, with the special rule that a purely numeric segment
// outranks an alphanumeric one at the same position ("1.0" > "1.0a1",
// matching conda's treatment of pre-release tags). Missing segments count
// as zero, so "1.0" equals "1.0.0".
func Compare(a, b string) int {
	as := segments(a)
	bs := segments(b)

	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		sa, sb := "0", "0"
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		if c := compareSegment(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func segments(v string) []string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}

func compareSegment(a, b string) int {
	na, aNum := atoi(a)
	nb, bNum := atoi(b)

	switch {
	case aNum && bNum:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case aNum != bNum:
		// Numeric release beats alphanumeric pre-release tag, unless the
		// alphanumeric segment has a larger leading number ("10a" > "9").
		la, _ := leadingInt(a)
		lb, _ := leadingInt(b)
		if la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		if aNum {
			return 1
		}
		return -1
	default:
		return strings.Compare(a, b)
	}
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// leadingInt extracts the numeric prefix of a segment ("10a" -> 10).
// A segment with no numeric prefix sorts as zero.
func leadingInt(s string) (int, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	return n, err == nil
}
