package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/internal/config"
	"github.com/xkilldash9x/skillgraph/internal/ingest"
	"github.com/xkilldash9x/skillgraph/internal/observability"
	"github.com/xkilldash9x/skillgraph/internal/snapshot"
)

// ingestOutput is the JSON document printed by the ingest command.
type ingestOutput struct {
	ingest.Report
	Snapshot string `json:"snapshot,omitempty"`
}

// newIngestCmd creates and configures the `ingest` command.
func newIngestCmd() *cobra.Command {
	var fresh bool

	ingestCmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest graph fragments into the knowledge graph",
		Long: `Loads the snapshot (unless --fresh), decodes every FILE as a graph fragment,
merges the fragments into the knowledge graph in argument order and saves the
snapshot when graph.autosave is enabled. Malformed fragments are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			return runIngest(cmd.Context(), observability.GetLogger(), cfg, args, fresh, cmd.OutOrStdout())
		},
	}

	ingestCmd.Flags().BoolVar(&fresh, "fresh", false, "ignore any existing snapshot and start from an empty graph")
	ingestCmd.Flags().Int("concurrency", 0, "fragments decoded in parallel (overrides ingest.concurrency)")
	ingestCmd.Flags().String("provenance", "", "source tagging: 'ingested' or 'file' (overrides ingest.provenance)")
	return ingestCmd
}

// runIngest contains the core, testable logic of the ingest command.
func runIngest(ctx context.Context, logger *zap.Logger, cfg config.Interface, paths []string, fresh bool, out io.Writer) error {
	store := snapshot.NewStore(logger)
	g, err := openGraph(ctx, logger, cfg, store, fresh)
	if err != nil {
		return err
	}

	pipeline := ingest.NewPipeline(g, ingest.Options{
		Concurrency: cfg.Ingest().Concurrency,
		Provenance:  cfg.Ingest().Provenance,
	}, logger)
	report, err := pipeline.IngestFiles(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to ingest fragments: %w", err)
	}

	result := ingestOutput{Report: report}
	if cfg.Graph().Autosave {
		path, err := store.Save(ctx, g, cfg.Graph().SnapshotPath)
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		result.Snapshot = path
	} else {
		logger.Warn("Autosave disabled, ingested fragments were not persisted")
	}
	return writeJSON(out, result)
}
