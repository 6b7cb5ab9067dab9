package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"recipeforge/pkg/errors"
	"recipeforge/pkg/rendertmpl"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	vars   []string // KEY=VALUE template variable overrides
	output string   // output file path (stdout if empty)
	format string   // yaml or json
	check  bool     // parse the rendered result and report, don't print
}

// newRenderCmd creates the render command. It resolves the recipe's
// environment templates against the process environment plus any --var
// overrides and prints the final document.
func newRenderCmd() *cobra.Command {
	opts := renderOpts{format: "yaml"}

	cmd := &cobra.Command{
		Use:   "render <meta.yaml>",
		Short: "Resolve environment templates and print the final recipe",
		Long: `Resolve environment templates and print the final recipe.

Template values come from the process environment; --var overrides take
precedence. Rendering fails on the first unset variable.

Examples:
  recipeforge render meta.yaml
  recipeforge render meta.yaml --var GIT_DESCRIBE_TAG=0.4.3 --var GIT_DESCRIBE_NUMBER=17
  CONDA_PY=311 recipeforge render meta.yaml -o rendered.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "template variable override (KEY=VALUE, repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: yaml or json")
	cmd.Flags().BoolVar(&opts.check, "check", false, "verify the rendered recipe parses, print a summary instead of the document")

	return cmd
}

func runRender(cmd *cobra.Command, path string, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	vars, err := parseVars(opts.vars)
	if err != nil {
		return err
	}
	logger.Debug("rendering recipe", "path", path, "overrides", len(vars))

	r, rendered, err := loadRecipe(path, vars)
	if err != nil {
		return err
	}

	out := rendered
	switch opts.format {
	case "yaml":
	case "json":
		out, err = toJSON(rendered)
		if err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (yaml or json)", opts.format)
	}

	if opts.check {
		printSuccess("Rendered %s %s", r.Package.Name, r.Package.Version)
		if r.Build.String != "" {
			printKeyValue("build", r.Build.String)
		}
		printKeyValue("run deps", fmt.Sprintf("%d", len(r.Requirements.Run)))
		printKeyValue("imports", fmt.Sprintf("%d", len(r.Test.Imports)))
		prog.done(fmt.Sprintf("Checked %s", path))
		return nil
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(out), 0o644); err != nil {
			return err
		}
		printSuccess("Rendered %s %s", r.Package.Name, r.Package.Version)
		printFile(opts.output)
		prog.done("Rendered recipe")
		return nil
	}

	fmt.Print(out)
	return nil
}

// toJSON converts a rendered YAML document to indented JSON.
func toJSON(rendered string) (string, error) {
	var doc any
	if err := yaml.Unmarshal([]byte(rendered), &doc); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// varsHint lists the template variables a recipe file references, used by
// lint and render error paths to tell the user what to set.
func varsHint(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return rendertmpl.Vars(string(data))
}
