// Package matchspec parses conda dependency specifiers.
//
// A match spec is the string form used in recipe requirement lists:
//
//	numpy
//	python >=3.8
//	pandas >=1.0,<2.0
//	scipy 1.7*
//	conda-forge::matplotlib
//	mkl 2024.* *_intel
//
// The grammar is "name [version [build]]" with whitespace separation. The
// optional version part is a constraint expression where "," means AND and
// "|" means OR. An optional "channel::" prefix pins the package to a channel.
package matchspec

import (
	"fmt"
	"regexp"
	"strings"

	"recipeforge/pkg/errors"
)

var nameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// MatchSpec is a parsed dependency specifier.
type MatchSpec struct {
	Channel string // optional channel pin ("" if unpinned)
	Name    string // normalized package name, never empty
	Version string // raw constraint expression ("" matches anything)
	Build   string // build-string pattern ("" matches anything)

	constraint *constraintSet
}

// Parse parses a match spec string.
// It returns a structured error with code INVALID_SPEC on malformed input.
func Parse(s string) (*MatchSpec, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, errors.New(errors.ErrCodeInvalidSpec, "empty match spec")
	}

	spec := &MatchSpec{}

	name := raw
	if idx := strings.Index(name, "::"); idx >= 0 {
		spec.Channel = name[:idx]
		name = name[idx+2:]
		if spec.Channel == "" {
			return nil, errors.New(errors.ErrCodeInvalidSpec, "empty channel in %q", s)
		}
	}

	fields := strings.Fields(name)
	if len(fields) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidSpec, "missing package name in %q", s)
	}
	if len(fields) > 3 {
		return nil, errors.New(errors.ErrCodeInvalidSpec, "too many fields in %q (want name [version [build]])", s)
	}

	spec.Name = strings.ToLower(fields[0])
	if !nameRE.MatchString(spec.Name) {
		return nil, errors.New(errors.ErrCodeInvalidSpec, "invalid package name %q", fields[0])
	}

	if len(fields) > 1 {
		spec.Version = fields[1]
		cs, err := parseConstraints(spec.Version)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidSpec, err, "invalid version constraint in %q", s)
		}
		spec.constraint = cs
	}
	if len(fields) > 2 {
		spec.Build = fields[2]
	}

	return spec, nil
}

// Validate reports whether s is a syntactically valid match spec.
func Validate(s string) error {
	_, err := Parse(s)
	return err
}

// Matches reports whether the given version satisfies the spec's constraint.
// A spec without a version part matches every version.
func (m *MatchSpec) Matches(version string) bool {
	if m.constraint == nil {
		return true
	}
	return m.constraint.matches(version)
}

// String returns the canonical string form of the spec.
// Parse(m.String()) yields an equivalent spec.
func (m *MatchSpec) String() string {
	var b strings.Builder
	if m.Channel != "" {
		b.WriteString(m.Channel)
		b.WriteString("::")
	}
	b.WriteString(m.Name)
	if m.Version != "" {
		b.WriteString(" ")
		b.WriteString(m.Version)
	}
	if m.Build != "" {
		b.WriteString(" ")
		b.WriteString(m.Build)
	}
	return b.String()
}

// constraintSet is a disjunction of conjunctions: groups are OR-ed,
// atoms within a group are AND-ed.
type constraintSet struct {
	groups [][]constraint
}

type constraint struct {
	op      string // "==", "!=", ">=", "<=", ">", "<", "=", "" (exact or glob)
	version string
}

func parseConstraints(expr string) (*constraintSet, error) {
	cs := &constraintSet{}
	for _, group := range strings.Split(expr, "|") {
		var atoms []constraint
		for _, atom := range strings.Split(group, ",") {
			atom = strings.TrimSpace(atom)
			if atom == "" {
				return nil, fmt.Errorf("empty constraint in %q", expr)
			}
			c, err := parseAtom(atom)
			if err != nil {
				return nil, err
			}
			atoms = append(atoms, c)
		}
		cs.groups = append(cs.groups, atoms)
	}
	return cs, nil
}

var atomRE = regexp.MustCompile(`^(==|!=|>=|<=|>|<|=)?\s*([0-9a-zA-Z._*+!-]+)$`)

func parseAtom(atom string) (constraint, error) {
	m := atomRE.FindStringSubmatch(atom)
	if m == nil {
		return constraint{}, fmt.Errorf("malformed constraint %q", atom)
	}
	op, version := m[1], m[2]
	if strings.Contains(version, "*") && op != "" && op != "=" && op != "==" && op != "!=" {
		return constraint{}, fmt.Errorf("glob pattern %q cannot combine with %q", version, op)
	}
	return constraint{op: op, version: version}, nil
}

func (cs *constraintSet) matches(version string) bool {
	for _, group := range cs.groups {
		ok := true
		for _, c := range group {
			if !c.matches(version) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (c constraint) matches(version string) bool {
	switch c.op {
	case ">", ">=", "<", "<=":
		cmp := Compare(version, c.version)
		switch c.op {
		case ">":
			return cmp > 0
		case ">=":
			return cmp >= 0
		case "<":
			return cmp < 0
		case "<=":
			return cmp <= 0
		}
	case "!=":
		return !c.matchExact(version)
	}
	// "==", "=", and bare atoms are exact or glob matches. Conda treats
	// "=1.7" as the prefix match "1.7*".
	if c.op == "=" && !strings.Contains(c.version, "*") {
		return globMatch(c.version+"*", version)
	}
	return c.matchExact(version)
}

func (c constraint) matchExact(version string) bool {
	if strings.Contains(c.version, "*") {
		return globMatch(c.version, version)
	}
	return Compare(version, c.version) == 0
}

// globMatch matches version against a pattern containing "*" wildcards.
// A trailing "*" also matches at a segment boundary, so "1.7*" matches
// both "1.7" and "1.7.3".
func globMatch(pattern, version string) bool {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(version)
}
