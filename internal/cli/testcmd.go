package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"recipeforge/pkg/errors"
	"recipeforge/pkg/imports"
)

// testOpts holds the command-line flags for the test command.
type testOpts struct {
	vars    []string
	python  string // interpreter override
	timeout time.Duration
}

// newTestCmd creates the test command. It runs the recipe's smoke-test
// imports against a local interpreter, the same check conda-build runs
// after installing the built package.
func newTestCmd() *cobra.Command {
	var opts testOpts

	cmd := &cobra.Command{
		Use:   "test <meta.yaml>",
		Short: "Run the recipe's smoke-test imports",
		Long: `Run the recipe's smoke-test imports.

Each listed module is imported in a separate interpreter process. All
imports are attempted even after a failure, so one run reports every
broken module.

Examples:
  recipeforge test meta.yaml --var GIT_DESCRIBE_TAG=0.4.3 --var GIT_DESCRIBE_NUMBER=17
  recipeforge test meta.yaml --python /opt/conda/envs/test/bin/python`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "template variable override (KEY=VALUE, repeatable)")
	cmd.Flags().StringVar(&opts.python, "python", "", "interpreter to run imports with (default from config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-import timeout (0 for the runner default)")

	return cmd
}

func runTest(cmd *cobra.Command, path string, opts testOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)
	prog := newProgress(logger)

	vars, err := parseVars(opts.vars)
	if err != nil {
		return err
	}
	r, _, err := loadRecipe(path, vars)
	if err != nil {
		return err
	}
	if len(r.Test.Imports) == 0 {
		printInfo("No smoke-test imports in %s", path)
		return nil
	}

	python := opts.python
	if python == "" {
		python = cfg.Python
	}
	runner := imports.NewRunner(python)
	if opts.timeout > 0 {
		runner.Timeout = opts.timeout
	}
	logger.Debug("running imports", "interpreter", python, "count", len(r.Test.Imports))

	report, err := runner.Run(ctx, r.Test.Imports)
	if err != nil {
		return err
	}

	for _, res := range report.Results {
		if res.OK {
			printSuccess("import %s", res.Module)
			printDetail("%s", res.Duration.Round(time.Millisecond))
		} else {
			printError("import %s", res.Module)
			if res.Output != "" {
				printDetail("%s", res.Output)
			}
		}
	}

	failed := report.Failed()
	prog.done(fmt.Sprintf("Ran %d imports, report %s", len(report.Results), report.ID))
	if len(failed) > 0 {
		return errors.New(errors.ErrCodeImportFailed, "%d of %d imports failed", len(failed), len(report.Results))
	}
	return nil
}
