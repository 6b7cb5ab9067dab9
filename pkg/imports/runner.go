package imports

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"recipeforge/pkg/errors"
)

// DefaultTimeout bounds a single import check.
const DefaultTimeout = 60 * time.Second

// Result records the outcome of importing a single module.
type Result struct {
	Module   string        `json:"module"`
	OK       bool          `json:"ok"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report aggregates the results of one smoke-test run.
type Report struct {
	ID      string   `json:"id"`
	Python  string   `json:"python"`
	Results []Result `json:"results"`
}

// Passed reports whether every import succeeded.
func (r *Report) Passed() bool {
	for _, res := range r.Results {
		if !res.OK {
			return false
		}
	}
	return true
}

// Failed returns the modules that failed to import.
func (r *Report) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if !res.OK {
			out = append(out, res.Module)
		}
	}
	return out
}

// Runner executes import checks against a Python interpreter.
type Runner struct {
	// Python is the interpreter to invoke (default "python").
	Python string
	// Timeout bounds each individual import (default DefaultTimeout).
	Timeout time.Duration
}

// NewRunner creates a Runner for the given interpreter.
// An empty interpreter defaults to "python".
func NewRunner(python string) *Runner {
	if python == "" {
		python = "python"
	}
	return &Runner{Python: python, Timeout: DefaultTimeout}
}

// Run imports each module in turn and returns the aggregated report.
// All modules are attempted even after a failure, so the report names
// every broken import, not just the first. Module paths are validated
// before any interpreter is spawned.
func (r *Runner) Run(ctx context.Context, modules []string) (*Report, error) {
	if err := ValidateAll(modules); err != nil {
		return nil, err
	}

	report := &Report{
		ID:      uuid.NewString(),
		Python:  r.Python,
		Results: make([]Result, 0, len(modules)),
	}

	for _, mod := range modules {
		res, err := r.runOne(ctx, mod)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (r *Runner) runOne(ctx context.Context, module string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.Python, "-c", fmt.Sprintf("import %s", module))
	out, err := cmd.CombinedOutput()
	res := Result{
		Module:   module,
		OK:       err == nil,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Output = strings.TrimSpace(string(out))
		if ctx.Err() != nil {
			return res, errors.Wrap(errors.ErrCodeTimeout, ctx.Err(), "import %s", module)
		}
		if _, ok := err.(*exec.ExitError); !ok {
			// Interpreter missing or unspawnable, not a broken module.
			return res, errors.Wrap(errors.ErrCodeInternal, err, "exec %s", r.Python)
		}
	}
	return res, nil
}
