package rendertmpl

import (
	"strings"
	"testing"

	"recipeforge/pkg/errors"
)

func TestRenderEnvironGet(t *testing.T) {
	env := MapEnv{"GIT_DESCRIBE_TAG": "0.4.3"}

	got, err := Render(`version: {{ environ.get('GIT_DESCRIBE_TAG', '') }}`, env)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "version: 0.4.3" {
		t.Errorf("got %q", got)
	}
}

func TestRenderDefaults(t *testing.T) {
	env := MapEnv{}

	tests := []struct {
		src  string
		want string
	}{
		{`{{ environ.get('GIT_BUILD_STR', '') }}`, ""},
		{`{{ environ.get('GIT_DESCRIBE_NUMBER', 0) }}`, "0"},
		{`{{ environ.get("CHANNEL", "conda-forge") }}`, "conda-forge"},
	}
	for _, tt := range tests {
		got, err := Render(tt.src, env)
		if err != nil {
			t.Errorf("Render(%q): %v", tt.src, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Render(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestRenderMissingVariable(t *testing.T) {
	tests := []string{
		`{{ environ.get('GIT_DESCRIBE_TAG') }}`,
		`{{ GIT_DESCRIBE_TAG }}`,
		`{{ py }}`,
	}
	for _, src := range tests {
		_, err := Render(src, MapEnv{})
		if err == nil {
			t.Errorf("Render(%q) = nil error, want missing-variable failure", src)
			continue
		}
		if !errors.Is(err, errors.ErrCodeMissingVariable) {
			t.Errorf("Render(%q) error code = %s, want MISSING_VARIABLE", src, errors.GetCode(err))
		}
		// The error must name the variable (fail fast with a clear error).
		if !strings.Contains(err.Error(), "GIT_DESCRIBE_TAG") && !strings.Contains(err.Error(), "CONDA_PY") {
			t.Errorf("Render(%q) error %q does not name the variable", src, err)
		}
	}
}

func TestRenderMarkers(t *testing.T) {
	env := MapEnv{"CONDA_PY": "3.11", "CONDA_NPY": "1.26"}

	got, err := Render(`string: {{ np }}{{ py }}_0`, env)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "string: np126py311_0" {
		t.Errorf("got %q", got)
	}
}

func TestRenderBareVariable(t *testing.T) {
	env := MapEnv{"PKG_BUILDNUM": "2"}
	got, err := Render(`number: {{ PKG_BUILDNUM }}`, env)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "number: 2" {
		t.Errorf("got %q", got)
	}
}

func TestRenderUnsupportedExpression(t *testing.T) {
	_, err := Render(`{{ 1 + 2 }}`, MapEnv{})
	if !errors.Is(err, errors.ErrCodeInvalidTemplate) {
		t.Errorf("error code = %s, want INVALID_TEMPLATE", errors.GetCode(err))
	}
}

func TestRenderUnbalancedBraces(t *testing.T) {
	_, err := Render(`version: {{ TAG `, MapEnv{"TAG": "1"})
	if !errors.Is(err, errors.ErrCodeInvalidTemplate) {
		t.Errorf("error code = %s, want INVALID_TEMPLATE", errors.GetCode(err))
	}
}

func TestRenderNonEmptyWhenSet(t *testing.T) {
	env := MapEnv{
		"GIT_DESCRIBE_TAG":    "0.4.3",
		"GIT_DESCRIBE_NUMBER": "12",
		"GIT_BUILD_STR":       "py311_12",
	}
	src := `version: {{ environ.get('GIT_DESCRIBE_TAG', '') }}
number: {{ environ.get('GIT_DESCRIBE_NUMBER', 0) }}
string: {{ environ.get('GIT_BUILD_STR', '') }}`

	got, err := Render(src, env)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"0.4.3", "12", "py311_12"} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered output missing %q:\n%s", want, got)
		}
	}
}

func TestVars(t *testing.T) {
	src := `version: {{ environ.get('GIT_DESCRIBE_TAG', '') }}
string: {{ py }}{{ np }}
again: {{ environ.get('GIT_DESCRIBE_TAG') }}
bare: {{ BUILD_HOST }}`

	got := Vars(src)
	want := []string{"GIT_DESCRIBE_TAG", "CONDA_PY", "CONDA_NPY", "BUILD_HOST"}
	if len(got) != len(want) {
		t.Fatalf("Vars = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Vars[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOverlay(t *testing.T) {
	base := MapEnv{"A": "base", "B": "base"}
	env := Overlay(base, map[string]string{"B": "override"})

	if v, _ := env.Lookup("A"); v != "base" {
		t.Errorf("A = %q, want base", v)
	}
	if v, _ := env.Lookup("B"); v != "override" {
		t.Errorf("B = %q, want override", v)
	}
	if _, ok := env.Lookup("C"); ok {
		t.Error("C should be unset")
	}
}
