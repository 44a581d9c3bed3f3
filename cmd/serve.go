package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/internal/api"
	"github.com/xkilldash9x/skillgraph/internal/config"
	"github.com/xkilldash9x/skillgraph/internal/observability"
	"github.com/xkilldash9x/skillgraph/internal/snapshot"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the knowledge graph over HTTP",
		Long: `Loads the snapshot and serves queries and fragment ingestion over HTTP until
interrupted. With graph.autosave enabled the graph is saved again on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), observability.GetLogger(), cfg)
		},
	}
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	return serveCmd
}

// runServe blocks until ctx is cancelled or the listener fails.
func runServe(ctx context.Context, logger *zap.Logger, cfg config.Interface) error {
	store := snapshot.NewStore(logger)
	g, err := openGraph(ctx, logger, cfg, store, false)
	if err != nil {
		return err
	}

	if err := api.NewServer(g, store, cfg, logger).Run(ctx); err != nil {
		return err
	}

	if cfg.Graph().Autosave {
		// ctx is already done here; the final save must still run.
		if _, err := store.Save(context.WithoutCancel(ctx), g, cfg.Graph().SnapshotPath); err != nil {
			return fmt.Errorf("failed to save snapshot on shutdown: %w", err)
		}
	}
	return nil
}
