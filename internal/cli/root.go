package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"recipeforge/pkg/buildinfo"
	"recipeforge/pkg/config"
)

// Execute runs the recipeforge CLI and returns an error if any command
// fails. This is the main entry point for the CLI application.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// The logger and loaded configuration are attached to the command context
// and accessible to all commands via loggerFromContext and
// configFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          appName,
		Short:        "Recipeforge renders, lints, and tests conda recipes",
		Long:         `Recipeforge is a CLI tool for working with templated conda recipes: it resolves build-environment templates, lints recipe metadata, checks requirements against a package index, and runs smoke-test imports.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cmd.SetContext(withConfig(ctx, cfg))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: recipeforge.toml, then XDG config dir)")

	root.AddCommand(newRenderCmd())
	root.AddCommand(newLintCmd())
	root.AddCommand(newDepsCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newTestCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCompletionCmd())

	return root.ExecuteContext(ctx)
}
