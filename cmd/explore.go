package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/domscout-cli/internal/config"
	"github.com/xkilldash9x/domscout-cli/internal/dom"
	"github.com/xkilldash9x/domscout-cli/internal/explore"
	"github.com/xkilldash9x/domscout-cli/internal/fetch"
	"github.com/xkilldash9x/domscout-cli/internal/observability"
	"github.com/xkilldash9x/domscout-cli/internal/report"
)

// exploreConcurrency bounds parallel targets. Each target is an independent
// single-page run; the engine itself stays single-threaded per document.
const exploreConcurrency = 4

// newExploreCmd creates and configures the `explore` command.
func newExploreCmd() *cobra.Command {
	exploreCmd := &cobra.Command{
		Use:   "explore [targets...]",
		Short: "Explores pages and writes a structured element inventory per target",
		Long: `Explores one or more pages. A target is a local HTML file, "-" for stdin,
or an http(s) URL fetched through a headless browser. Each target gets its
own bounded exploration run and its own JSON report.`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so CLI values override config file and environment.
			if err := viper.BindPFlag("explorer.max_iterations", cmd.Flags().Lookup("max-iterations")); err != nil {
				return err
			}
			if err := viper.BindPFlag("explorer.settle_interval", cmd.Flags().Lookup("settle")); err != nil {
				return err
			}
			if err := viper.BindPFlag("explorer.debug", cmd.Flags().Lookup("debug")); err != nil {
				return err
			}
			if err := viper.BindPFlag("fetch.navigation_timeout", cmd.Flags().Lookup("live-timeout")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			output, _ := cmd.Flags().GetString("output")
			stdoutBound := output == "" || output == "stdout"
			if !stdoutBound && len(args) > 1 && !strings.Contains(output, "%d") {
				return fmt.Errorf("--output with multiple targets is ambiguous; use a %%d placeholder or stdout")
			}

			// Stdout-bound targets share one serialized reporter so parallel
			// runs cannot interleave mid-document.
			var shared report.Reporter
			if stdoutBound {
				shared = report.NewSync(report.NewWithWriter(os.Stdout))
			}

			jobID := uuid.New().String()
			logger.Info("Starting exploration job.",
				zap.String("jobID", jobID),
				zap.Strings("targets", args),
				zap.Int("max_iterations", cfg.Explorer.MaxIterations),
			)

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(exploreConcurrency)
			for i, target := range args {
				g.Go(func() error {
					return exploreTarget(gctx, cfg, target, outputPath(output, i, len(args)), shared, logger)
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			logger.Info("Exploration job completed.", zap.String("jobID", jobID))
			return nil
		},
	}

	exploreCmd.Flags().StringP("output", "o", "", "Output file path for the report; stdout if unset.")
	exploreCmd.Flags().Int("max-iterations", 0, "Iteration ceiling for the trigger scheduler. (Overrides config/env)")
	exploreCmd.Flags().Duration("settle", 0, "Settle interval after each interaction. (Overrides config/env)")
	exploreCmd.Flags().Bool("debug", false, "Record diagnostic traces in error records. (Overrides config/env)")
	exploreCmd.Flags().Duration("live-timeout", 0, "Navigation timeout for live URL targets. (Overrides config/env)")

	return exploreCmd
}

// outputPath derives the per-target output path. With multiple targets a %d
// placeholder in the path is substituted with the target index.
func outputPath(output string, idx, total int) string {
	if output == "" || output == "stdout" || total == 1 {
		return output
	}
	if strings.Contains(output, "%d") {
		return fmt.Sprintf(output, idx)
	}
	return output
}

// exploreTarget loads one document, runs the engine over it and exports the
// report. A non-nil shared reporter is used as-is and stays open; otherwise
// a file reporter is created from the output path.
func exploreTarget(ctx context.Context, cfg *config.Config, target, output string, shared report.Reporter, logger *zap.Logger) error {
	doc, err := loadDocument(ctx, cfg, target, logger)
	if err != nil {
		return err
	}

	engine := explore.New(cfg.Explorer, logger, explore.WithVersion(Version))
	snap, err := engine.Explore(ctx, doc)
	if err != nil {
		return fmt.Errorf("explore %s: %w", target, err)
	}

	reporter := shared
	if reporter == nil {
		reporter, err = report.New(output)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := reporter.Close(); cerr != nil {
				logger.Error("Failed to close reporter", zap.Error(cerr))
			}
		}()
	}

	if err := reporter.Write(report.Build(snap)); err != nil {
		return fmt.Errorf("write report for %s: %w", target, err)
	}
	return nil
}

// loadDocument builds the document tree from a URL, stdin or a local file.
func loadDocument(ctx context.Context, cfg *config.Config, target string, logger *zap.Logger) (*dom.Document, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		source, err := fetch.PageSource(ctx, cfg.Fetch, cfg.Explorer.ViewportWidth, cfg.Explorer.ViewportHeight, target, logger)
		if err != nil {
			return nil, err
		}
		return dom.Parse(source, target)
	}

	if target == "-" {
		return dom.Load(os.Stdin, "")
	}

	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open target %s: %w", target, err)
	}
	defer f.Close()
	return dom.Load(f, "")
}
