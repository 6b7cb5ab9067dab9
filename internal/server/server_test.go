package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"recipeforge/pkg/errors"
)

const templatedRecipe = `package:
  name: bluesky
  version: {{ environ.get('GIT_DESCRIBE_TAG', '0.0.0') }}

source:
  git_url: https://github.com/NSLS-II/bluesky

build:
  number: {{ environ.get('GIT_DESCRIBE_NUMBER', 0) }}

requirements:
  run:
    - python
    - numpy

test:
  imports:
    - bluesky

about:
  home: https://github.com/NSLS-II/bluesky
  license: BSD-3-Clause
`

func newTestServer() *Server {
	logger := log.New(io.Discard)
	return New("127.0.0.1:0", logger)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q", resp["status"])
	}
}

func TestRender(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s.Handler(), "/api/render", map[string]any{
		"recipe": templatedRecipe,
		"variables": map[string]string{
			"GIT_DESCRIBE_TAG":    "0.4.3",
			"GIT_DESCRIBE_NUMBER": "17",
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp renderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID == "" {
		t.Error("response ID is empty")
	}
	if !strings.Contains(resp.Rendered, "version: 0.4.3") {
		t.Errorf("rendered output missing version:\n%s", resp.Rendered)
	}
	if !strings.Contains(resp.Rendered, "number: 17") {
		t.Errorf("rendered output missing build number:\n%s", resp.Rendered)
	}
}

func TestRenderMissingVariable(t *testing.T) {
	s := newTestServer()
	recipe := "package:\n  name: bluesky\n  version: {{ GIT_DESCRIBE_TAG }}\n"
	w := postJSON(t, s.Handler(), "/api/render", map[string]any{
		"recipe": recipe,
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != errors.ErrCodeMissingVariable {
		t.Errorf("code = %q, want %q", resp.Code, errors.ErrCodeMissingVariable)
	}
	if !strings.Contains(resp.Message, "GIT_DESCRIBE_TAG") {
		t.Errorf("message does not name the variable: %q", resp.Message)
	}
}

func TestRenderBadRequest(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/render", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON: status = %d", w.Code)
	}

	w2 := postJSON(t, s.Handler(), "/api/render", map[string]any{"recipe": ""})
	if w2.Code != http.StatusBadRequest {
		t.Errorf("empty recipe: status = %d", w2.Code)
	}
}

func TestLint(t *testing.T) {
	s := newTestServer()
	w := postJSON(t, s.Handler(), "/api/lint", map[string]any{
		"recipe": templatedRecipe,
		"variables": map[string]string{
			"GIT_DESCRIBE_TAG":    "0.4.3",
			"GIT_DESCRIBE_NUMBER": "17",
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp lintResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK {
		t.Errorf("OK = false, issues = %+v", resp.Issues)
	}
	if resp.Issues == nil {
		t.Error("issues should be an empty array, not null")
	}
}

func TestLintStrictUnknownKey(t *testing.T) {
	s := newTestServer()
	misspelled := templatedRecipe + "\nrequirments:\n  host:\n    - pip\n"
	vars := map[string]string{
		"GIT_DESCRIBE_TAG":    "0.4.3",
		"GIT_DESCRIBE_NUMBER": "17",
	}

	w := postJSON(t, s.Handler(), "/api/lint", map[string]any{
		"recipe":    misspelled,
		"variables": vars,
	})
	var loose lintResponse
	if err := json.Unmarshal(w.Body.Bytes(), &loose); err != nil {
		t.Fatal(err)
	}
	if !loose.OK {
		t.Errorf("non-strict lint should tolerate unknown keys, issues = %+v", loose.Issues)
	}

	w2 := postJSON(t, s.Handler(), "/api/lint", map[string]any{
		"recipe":    misspelled,
		"variables": vars,
		"strict":    true,
	})
	var strict lintResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &strict); err != nil {
		t.Fatal(err)
	}
	if strict.OK {
		t.Error("strict lint should reject the misspelled key")
	}
	found := false
	for _, issue := range strict.Issues {
		if strings.Contains(issue.Message, "requirments") {
			found = true
		}
	}
	if !found {
		t.Errorf("no issue names the unknown key: %+v", strict.Issues)
	}
}

func TestLintErrors(t *testing.T) {
	s := newTestServer()
	bad := "package:\n  name: \"Has Spaces\"\n  version: \"1.0\"\n"
	w := postJSON(t, s.Handler(), "/api/lint", map[string]any{"recipe": bad})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp lintResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.OK {
		t.Error("OK = true for an invalid package name")
	}
}
