// Package imports validates and executes recipe smoke-test imports.
//
// A recipe's test.imports block lists module paths that must load cleanly
// after installation. Validation checks the path syntax; the Runner performs
// the actual import checks against a Python interpreter, mirroring what the
// package-build tool does in its test phase.
package imports

import (
	"regexp"
	"strings"

	"recipeforge/pkg/errors"
)

// identRE matches a single Python identifier.
var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that path is a syntactically valid module path:
// one or more dot-separated identifiers (e.g., "bluesky.callbacks").
func Validate(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New(errors.ErrCodeInvalidImport, "empty import path")
	}
	if path != strings.TrimSpace(path) {
		return errors.New(errors.ErrCodeInvalidImport, "import path %q has surrounding whitespace", path)
	}
	for _, part := range strings.Split(path, ".") {
		if !identRE.MatchString(part) {
			return errors.New(errors.ErrCodeInvalidImport, "invalid import path %q (segment %q)", path, part)
		}
	}
	return nil
}

// ValidateAll validates every path and returns the first failure.
func ValidateAll(paths []string) error {
	for _, p := range paths {
		if err := Validate(p); err != nil {
			return err
		}
	}
	return nil
}
