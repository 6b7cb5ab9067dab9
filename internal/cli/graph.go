package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"recipeforge/pkg/depgraph"
	"recipeforge/pkg/errors"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	vars     []string
	channel  string
	format   string // dot or svg
	output   string // output file path (stdout if empty)
	detailed bool   // include constraints and channels in labels
	maxDepth int
	maxNodes int
	refresh  bool
	noCache  bool
}

// newGraphCmd creates the graph command. It walks the package index from
// the recipe's run requirements and exports the result.
func newGraphCmd() *cobra.Command {
	opts := graphOpts{
		format:   "dot",
		maxDepth: depgraph.DefaultMaxDepth,
		maxNodes: depgraph.DefaultMaxNodes,
	}

	cmd := &cobra.Command{
		Use:   "graph <meta.yaml>",
		Short: "Export the recipe's dependency graph as DOT, SVG, or JSON",
		Long: `Export the recipe's dependency graph as DOT, SVG, or JSON.

The graph is rooted at the recipe's package. Run requirements form the
first level; deeper levels come from the package index, bounded by
--max-depth and --max-nodes.

Examples:
  recipeforge graph meta.yaml --var GIT_DESCRIBE_TAG=0.4.3 --var GIT_DESCRIBE_NUMBER=17
  recipeforge graph meta.yaml --format svg -o deps.svg
  recipeforge graph meta.yaml --max-depth 1 --detailed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "template variable override (KEY=VALUE, repeatable)")
	cmd.Flags().StringVar(&opts.channel, "channel", "", "index channel (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot, svg, or json")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include constraints and channels in node labels")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", opts.maxDepth, "maximum dependency depth below the root")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", opts.maxNodes, "maximum packages in the graph")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the index cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func runGraph(cmd *cobra.Command, path string, opts graphOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)
	prog := newProgress(logger)

	if opts.format != "dot" && opts.format != "svg" && opts.format != "json" {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (dot, svg, or json)", opts.format)
	}

	vars, err := parseVars(opts.vars)
	if err != nil {
		return err
	}
	r, _, err := loadRecipe(path, vars)
	if err != nil {
		return err
	}

	client := newIndexClient(ctx, cfg, opts.channel, opts.noCache)
	defer client.Close()

	spinner := newSpinner(ctx, fmt.Sprintf("Walking dependencies of %s", r.Package.Name))
	spinner.Start()
	g, err := depgraph.NewBuilder(client).
		WithMaxDepth(opts.maxDepth).
		WithMaxNodes(opts.maxNodes).
		WithRefresh(opts.refresh).
		Build(ctx, r)
	spinner.Stop()
	if err != nil {
		return err
	}
	logger.Debug("graph built", "nodes", g.NodeCount(), "edges", g.EdgeCount())

	var out []byte
	switch opts.format {
	case "dot":
		out = []byte(depgraph.ToDOT(g, depgraph.DOTOptions{Detailed: opts.detailed}))
	case "svg":
		dot := depgraph.ToDOT(g, depgraph.DOTOptions{Detailed: opts.detailed})
		out, err = depgraph.RenderSVG(ctx, dot)
		if err != nil {
			return err
		}
	case "json":
		out, err = depgraph.ToJSON(g)
		if err != nil {
			return err
		}
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, out, 0o644); err != nil {
			return err
		}
		printSuccess("Graph of %s: %d packages, %d edges", r.Package.Name, g.NodeCount(), g.EdgeCount())
		printFile(opts.output)
	} else {
		fmt.Print(string(out))
		if !strings.HasSuffix(string(out), "\n") {
			fmt.Println()
		}
	}

	prog.done("Exported dependency graph")
	return nil
}
