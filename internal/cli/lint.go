package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"recipeforge/pkg/errors"
	"recipeforge/pkg/recipe"
)

// lintOpts holds the command-line flags for the lint command.
type lintOpts struct {
	vars        []string
	strict      bool // warnings fail, unknown keys are errors
	interactive bool // browse issues in a TUI
}

// newLintCmd creates the lint command. It renders the recipe first, since
// most schema rules only make sense on the resolved document.
func newLintCmd() *cobra.Command {
	var opts lintOpts

	cmd := &cobra.Command{
		Use:   "lint <meta.yaml>",
		Short: "Check a recipe against schema and metadata rules",
		Long: `Check a recipe against schema and metadata rules.

The recipe is rendered before linting, so the same environment variables
(or --var overrides) the build would use must be available.

Examples:
  recipeforge lint meta.yaml --var GIT_DESCRIBE_TAG=0.4.3 --var GIT_DESCRIBE_NUMBER=17
  recipeforge lint meta.yaml --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "template variable override (KEY=VALUE, repeatable)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "treat warnings as errors and reject unknown keys")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse findings interactively")

	return cmd
}

func runLint(cmd *cobra.Command, path string, opts lintOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	vars, err := parseVars(opts.vars)
	if err != nil {
		return err
	}

	r, rendered, err := loadRecipe(path, vars)
	if err != nil {
		if errors.Is(err, errors.ErrCodeMissingVariable) {
			if hint := varsHint(path); len(hint) > 0 {
				logger.Infof("Recipe references: %s", strings.Join(hint, ", "))
			}
		}
		return err
	}

	issues := recipe.Lint(r)
	if opts.strict {
		issues = append(issues, recipe.StrictIssues([]byte(rendered))...)
	}
	if len(issues) == 0 {
		printSuccess("%s %s is clean", r.Package.Name, r.Package.Version)
		return nil
	}

	if opts.interactive {
		if err := runLintTUI(r, issues); err != nil {
			return err
		}
	} else {
		printIssues(issues)
	}

	nErrors := len(recipe.FilterSeverity(issues, recipe.SeverityError))
	nWarnings := len(recipe.FilterSeverity(issues, recipe.SeverityWarning))
	if nErrors > 0 || (opts.strict && nWarnings > 0) {
		return errors.New(errors.ErrCodeInvalidRecipe, "%d error(s), %d warning(s)", nErrors, nWarnings)
	}

	printInfo("%d warning(s), no errors", nWarnings)
	return nil
}

// printIssues prints lint findings grouped by severity, errors first.
func printIssues(issues []recipe.Issue) {
	for _, issue := range recipe.FilterSeverity(issues, recipe.SeverityError) {
		printError("%s", formatIssue(issue))
	}
	for _, issue := range recipe.FilterSeverity(issues, recipe.SeverityWarning) {
		printWarning("%s", formatIssue(issue))
	}
}

func formatIssue(issue recipe.Issue) string {
	return fmt.Sprintf("%s: %s", issue.Field, issue.Message)
}
