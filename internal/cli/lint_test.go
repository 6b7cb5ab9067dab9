package cli

import (
	"testing"

	"recipeforge/pkg/errors"
	"recipeforge/pkg/recipe"
)

func TestFormatIssue(t *testing.T) {
	issue := recipe.Issue{
		Severity: recipe.SeverityError,
		Code:     errors.ErrCodeInvalidSpec,
		Field:    "requirements.run[2]",
		Message:  "invalid match spec",
	}
	got := formatIssue(issue)
	want := "requirements.run[2]: invalid match spec"
	if got != want {
		t.Errorf("formatIssue = %q, want %q", got, want)
	}
}

func TestLintModelFilter(t *testing.T) {
	r := &recipe.Recipe{}
	r.Package.Name = "bluesky"
	r.Package.Version = "0.4.3"
	issues := []recipe.Issue{
		{Severity: recipe.SeverityError, Field: "package.name", Message: "bad name"},
		{Severity: recipe.SeverityWarning, Field: "about.home", Message: "no home URL"},
		{Severity: recipe.SeverityWarning, Field: "source.sha256", Message: "no checksum"},
	}

	m := newLintModel(r, issues)
	if len(m.shown) != 3 {
		t.Fatalf("initial shown = %d, want 3", len(m.shown))
	}

	m.applyFilter(recipe.SeverityWarning)
	if len(m.shown) != 2 {
		t.Errorf("warning filter shown = %d, want 2", len(m.shown))
	}

	m.applyFilter(recipe.SeverityError)
	if len(m.shown) != 1 {
		t.Errorf("error filter shown = %d, want 1", len(m.shown))
	}

	m.applyFilter("")
	if len(m.shown) != 3 {
		t.Errorf("cleared filter shown = %d, want 3", len(m.shown))
	}
}
