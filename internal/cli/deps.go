package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"recipeforge/pkg/errors"
	"recipeforge/pkg/registry/anaconda"
)

// depsOpts holds the command-line flags for the deps command.
type depsOpts struct {
	vars    []string
	channel string // override the configured channel
	section string // build, host, run, or all
	refresh bool   // bypass the index cache
	noCache bool   // disable caching entirely
}

// newDepsCmd creates the deps command. It checks the recipe's requirement
// specs against the package index and reports which resolve.
func newDepsCmd() *cobra.Command {
	opts := depsOpts{section: "run"}

	cmd := &cobra.Command{
		Use:   "deps <meta.yaml>",
		Short: "Check recipe requirements against the package index",
		Long: `Check recipe requirements against the package index.

Each requirement is parsed as a match spec and looked up on the index;
a requirement resolves when the package exists and at least one published
version satisfies the constraint.

Examples:
  recipeforge deps meta.yaml --var GIT_DESCRIBE_TAG=0.4.3 --var GIT_DESCRIBE_NUMBER=17
  recipeforge deps meta.yaml --section all --channel bioconda
  recipeforge deps meta.yaml --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "template variable override (KEY=VALUE, repeatable)")
	cmd.Flags().StringVar(&opts.channel, "channel", "", "index channel (default from config)")
	cmd.Flags().StringVar(&opts.section, "section", opts.section, "requirement section: build, host, run, or all")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the index cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func runDeps(cmd *cobra.Command, path string, opts depsOpts) error {
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

	var specs []string
	switch opts.section {
	case "build":
		specs = r.Requirements.Build
	case "host":
		specs = r.Requirements.Host
	case "run":
		specs = r.Requirements.Run
	case "all":
		specs = r.AllRequirements()
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown section %q (build, host, run, or all)", opts.section)
	}
	if len(specs) == 0 {
		printInfo("No %s requirements in %s", opts.section, path)
		return nil
	}

	client := newIndexClient(ctx, cfg, opts.channel, opts.noCache)
	defer client.Close()
	logger.Debug("checking requirements", "count", len(specs), "channel", client.Channel())

	spinner := newSpinner(ctx, fmt.Sprintf("Checking %d requirements on %s", len(specs), client.Channel()))
	spinner.Start()
	results := anaconda.NewResolver(client).Check(ctx, specs, opts.refresh)
	spinner.Stop()

	unresolved := 0
	for _, res := range results {
		switch {
		case res.Error != "":
			printError("%s: %s", res.Spec, res.Error)
			unresolved++
		case !res.Found:
			printError("%s: not found on %s", res.Spec, res.Channel)
			unresolved++
		case !res.Resolved:
			printWarning("%s: no published version satisfies the constraint", res.Spec)
			unresolved++
		default:
			printSuccess("%s", res.Spec)
			printDetail("%s %s (%s)", res.Name, res.Version, res.Channel)
			printDetail("%s", res.PURL)
		}
	}

	prog.done(fmt.Sprintf("Checked %d requirements", len(results)))
	if unresolved > 0 {
		return errors.New(errors.ErrCodeNoMatch, "%d of %d requirements did not resolve", unresolved, len(results))
	}
	printNextStep("Visualize the dependency graph", fmt.Sprintf("recipeforge graph %s", path))
	return nil
}
