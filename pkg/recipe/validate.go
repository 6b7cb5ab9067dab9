package recipe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/github/go-spdx/v2/spdxexp"

	"recipeforge/pkg/errors"
	"recipeforge/pkg/imports"
	"recipeforge/pkg/matchspec"
)

// Severity classifies a lint finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single lint finding with its location in the recipe.
type Issue struct {
	Severity Severity    `json:"severity"`
	Code     errors.Code `json:"code"`
	Field    string      `json:"field"`
	Message  string      `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

var packageNameRE = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// legacyLicenses are pre-SPDX identifiers common in older recipes.
// They lint as warnings rather than errors.
var legacyLicenses = map[string]bool{
	"BSD":           true,
	"BSD-like":      true,
	"GPL":           true,
	"LGPL":          true,
	"Apache":        true,
	"MIT License":   true,
	"Public-Domain": true,
}

// Lint checks the recipe against the schema rules and returns all findings.
// An empty slice means the recipe is clean.
//
// Checks, per section:
//   - package: name present, lowercase, valid characters; version non-empty
//   - source: at least one of git_url, url, path
//   - requirements: every entry parses as a match spec
//   - test: every import is a valid module path; test requires parse as specs
//   - about: license is a recognized SPDX expression (legacy names warn)
func Lint(r *Recipe) []Issue {
	var issues []Issue
	add := func(sev Severity, code errors.Code, field, format string, args ...any) {
		issues = append(issues, Issue{
			Severity: sev,
			Code:     code,
			Field:    field,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	if r.Package.Name == "" {
		add(SeverityError, errors.ErrCodeInvalidRecipe, "package.name", "package name is required")
	} else if !packageNameRE.MatchString(r.Package.Name) {
		add(SeverityError, errors.ErrCodeInvalidRecipe, "package.name", "invalid package name %q (must be lowercase)", r.Package.Name)
	}
	if r.Package.Version == "" {
		add(SeverityError, errors.ErrCodeInvalidRecipe, "package.version", "package version is required (is the recipe rendered?)")
	}

	if r.Source.GitURL == "" && r.Source.URL == "" && r.Source.Path == "" {
		add(SeverityWarning, errors.ErrCodeInvalidRecipe, "source", "no source location (git_url, url, or path)")
	}
	if r.Source.URL != "" && r.Source.SHA256 == "" {
		add(SeverityWarning, errors.ErrCodeInvalidRecipe, "source.sha256", "tarball source without checksum")
	}

	lintSpecs(&issues, "requirements.build", r.Requirements.Build)
	lintSpecs(&issues, "requirements.host", r.Requirements.Host)
	lintSpecs(&issues, "requirements.run", r.Requirements.Run)
	lintSpecs(&issues, "test.requires", r.Test.Requires)

	for i, mod := range r.Test.Imports {
		if err := imports.Validate(mod); err != nil {
			add(SeverityError, errors.ErrCodeInvalidImport,
				fmt.Sprintf("test.imports[%d]", i), "%s", errors.UserMessage(err))
		}
	}
	if len(r.Test.Imports) == 0 && len(r.Test.Commands) == 0 {
		add(SeverityWarning, errors.ErrCodeInvalidRecipe, "test", "no smoke test (imports or commands)")
	}

	lintLicense(&issues, r.About.License)
	if r.About.Home == "" {
		add(SeverityWarning, errors.ErrCodeInvalidRecipe, "about.home", "no home URL")
	}

	return issues
}

func lintSpecs(issues *[]Issue, field string, specs []string) {
	for i, s := range specs {
		if err := matchspec.Validate(s); err != nil {
			*issues = append(*issues, Issue{
				Severity: SeverityError,
				Code:     errors.ErrCodeInvalidSpec,
				Field:    fmt.Sprintf("%s[%d]", field, i),
				Message:  errors.UserMessage(err),
			})
		}
	}
}

func lintLicense(issues *[]Issue, license string) {
	if license == "" {
		*issues = append(*issues, Issue{
			Severity: SeverityWarning,
			Code:     errors.ErrCodeInvalidLicense,
			Field:    "about.license",
			Message:  "no license",
		})
		return
	}
	if legacyLicenses[license] {
		*issues = append(*issues, Issue{
			Severity: SeverityWarning,
			Code:     errors.ErrCodeInvalidLicense,
			Field:    "about.license",
			Message:  fmt.Sprintf("legacy license name %q (use an SPDX identifier)", license),
		})
		return
	}
	if valid, _ := spdxexp.ValidateLicenses([]string{license}); !valid {
		*issues = append(*issues, Issue{
			Severity: SeverityError,
			Code:     errors.ErrCodeInvalidLicense,
			Field:    "about.license",
			Message:  fmt.Sprintf("unrecognized license expression %q", license),
		})
	}
}

// StrictIssues reports the findings only strict lint cares about: keys in
// the rendered document that the schema does not define, at any nesting
// level. A misspelled section ("requirments:") silently drops its contents
// under Parse, so strict lint treats it as an error.
func StrictIssues(data []byte) []Issue {
	_, err := ParseStrict(data)
	if err == nil {
		return nil
	}
	msg := errors.UserMessage(err)
	if e, ok := err.(*errors.Error); ok && e.Cause != nil {
		// yaml reports unknown fields on multiple lines; flatten for display
		msg = strings.Join(strings.Fields(e.Cause.Error()), " ")
	}
	return []Issue{{
		Severity: SeverityError,
		Code:     errors.ErrCodeInvalidRecipe,
		Field:    "recipe",
		Message:  msg,
	}}
}

// Validate runs Lint and returns the first error-severity issue as an error.
// Warnings do not fail validation.
func (r *Recipe) Validate() error {
	for _, issue := range Lint(r) {
		if issue.Severity == SeverityError {
			return errors.New(issue.Code, "%s: %s", issue.Field, issue.Message)
		}
	}
	return nil
}

// HasErrors reports whether any issue in the slice is error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// FilterSeverity returns the issues matching the given severity.
func FilterSeverity(issues []Issue, sev Severity) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}
