// Package rendertmpl resolves the substitution tokens embedded in raw
// recipe files.
//
// A raw meta.yaml is not valid YAML until its {{ ... }} tokens are replaced
// with environment-derived values. Supported token forms:
//
//	{{ environ.get('GIT_DESCRIBE_TAG', '') }}   env lookup with default
//	{{ environ.get('GIT_BUILD_STR') }}          env lookup, required
//	{{ GIT_DESCRIBE_NUMBER }}                   bare variable, required
//	{{ py }}, {{ np }}                          interpreter/numpy markers
//
// The py and np markers derive from CONDA_PY and CONDA_NPY with dots
// stripped, so CONDA_PY=3.11 renders py as "py311". A required token whose
// variable is unset fails fast with an error naming the variable.
package rendertmpl

import (
	"regexp"
	"strings"

	"recipeforge/pkg/errors"
)

// Env supplies variable values during rendering. Tests inject maps
// directly; production code uses OSEnv.
type Env interface {
	// Lookup returns the value for key and whether it was set.
	Lookup(key string) (string, bool)
}

// MapEnv is an Env backed by a map.
type MapEnv map[string]string

// Lookup implements Env.
func (m MapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

var (
	tokenRE   = regexp.MustCompile(`\{\{([^{}]*)\}\}`)
	environRE = regexp.MustCompile(`^environ\.get\(\s*['"]([A-Za-z_][A-Za-z0-9_]*)['"]\s*(?:,\s*(.*?)\s*)?\)$`)
	bareRE    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	strayRE   = regexp.MustCompile(`\{\{|\}\}`)
)

// Render resolves every token in src against env.
// It fails fast on the first unresolvable token, reporting the variable
// name (code MISSING_VARIABLE) or the malformed expression
// (code INVALID_TEMPLATE).
func Render(src string, env Env) (string, error) {
	var firstErr error
	out := tokenRE.ReplaceAllStringFunc(src, func(tok string) string {
		if firstErr != nil {
			return tok
		}
		expr := strings.TrimSpace(tokenRE.FindStringSubmatch(tok)[1])
		val, err := eval(expr, env)
		if err != nil {
			firstErr = err
			return tok
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	if loc := strayRE.FindString(out); loc != "" {
		return "", errors.New(errors.ErrCodeInvalidTemplate, "unbalanced %q in template", loc)
	}
	return out, nil
}

// Vars returns the environment variables referenced by src, in order of
// first appearance. Marker tokens report their underlying variable
// (py -> CONDA_PY, np -> CONDA_NPY).
func Vars(src string) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, m := range tokenRE.FindAllStringSubmatch(src, -1) {
		expr := strings.TrimSpace(m[1])
		var name string
		switch {
		case expr == "py":
			name = "CONDA_PY"
		case expr == "np":
			name = "CONDA_NPY"
		default:
			if em := environRE.FindStringSubmatch(expr); em != nil {
				name = em[1]
			} else if bareRE.MatchString(expr) {
				name = expr
			}
		}
		if name != "" && !seen[name] {
			seen[name] = true
			vars = append(vars, name)
		}
	}
	return vars
}

func eval(expr string, env Env) (string, error) {
	switch expr {
	case "py":
		return marker("py", "CONDA_PY", env)
	case "np":
		return marker("np", "CONDA_NPY", env)
	}

	if m := environRE.FindStringSubmatch(expr); m != nil {
		if v, ok := env.Lookup(m[1]); ok {
			return v, nil
		}
		if m[2] != "" {
			return unquote(m[2])
		}
		return "", errors.New(errors.ErrCodeMissingVariable, "environment variable %s is not set", m[1])
	}

	if bareRE.MatchString(expr) {
		if v, ok := env.Lookup(expr); ok {
			return v, nil
		}
		return "", errors.New(errors.ErrCodeMissingVariable, "environment variable %s is not set", expr)
	}

	return "", errors.New(errors.ErrCodeInvalidTemplate, "unsupported template expression %q", expr)
}

// marker renders an interpreter/library version marker: prefix plus the
// variable's value with dots stripped ("3.11" -> "py311").
func marker(prefix, key string, env Env) (string, error) {
	v, ok := env.Lookup(key)
	if !ok || v == "" {
		return "", errors.New(errors.ErrCodeMissingVariable, "environment variable %s is not set", key)
	}
	return prefix + strings.ReplaceAll(v, ".", ""), nil
}

// unquote strips matching single or double quotes from a default value.
// Unquoted defaults (e.g., the 0 in environ.get('N', 0)) pass through.
func unquote(s string) (string, error) {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1], nil
		}
	}
	if strings.ContainsAny(s, `'"`) {
		return "", errors.New(errors.ErrCodeInvalidTemplate, "malformed default value %s", s)
	}
	return s, nil
}
