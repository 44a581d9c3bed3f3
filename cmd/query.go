package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/internal/config"
	"github.com/xkilldash9x/skillgraph/internal/knowledgegraph"
	"github.com/xkilldash9x/skillgraph/internal/observability"
	"github.com/xkilldash9x/skillgraph/internal/snapshot"
)

// queryFunc answers one read against a loaded graph and returns the value to print.
type queryFunc func(g *knowledgegraph.Graph) any

// runQuery loads the snapshot, applies q and prints the result as JSON.
func runQuery(ctx context.Context, logger *zap.Logger, cfg config.Interface, out io.Writer, q queryFunc) error {
	g, err := openGraph(ctx, logger, cfg, snapshot.NewStore(logger), false)
	if err != nil {
		return err
	}
	return writeJSON(out, q(g))
}

// queryCommand wires RunE so that it resolves the config and runs q.
func queryCommand(c *cobra.Command, build func(args []string) queryFunc) *cobra.Command {
	c.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		return runQuery(cmd.Context(), observability.GetLogger(), cfg, cmd.OutOrStdout(), build(args))
	}
	return c
}

func newFindCmd() *cobra.Command {
	var nodeType, label string
	findCmd := queryCommand(&cobra.Command{
		Use:   "find",
		Short: "List nodes filtered by type and label substring",
		Args:  cobra.NoArgs,
	}, func([]string) queryFunc {
		return func(g *knowledgegraph.Graph) any {
			return knowledgegraph.NodeSummaries(g.FindNodes(nodeType, label))
		}
	})
	findCmd.Flags().StringVarP(&nodeType, "type", "t", "", "node type to match (case-insensitive)")
	findCmd.Flags().StringVarP(&label, "label", "l", "", "substring the label must contain (case-insensitive)")
	return findCmd
}

func newNeighborsCmd() *cobra.Command {
	return queryCommand(&cobra.Command{
		Use:   "neighbors ID",
		Short: "Show the targets of a node's outgoing edges grouped by relation",
		Args:  cobra.ExactArgs(1),
	}, func(args []string) queryFunc {
		return func(g *knowledgegraph.Graph) any {
			return g.Neighbors(args[0])
		}
	})
}

func newOverlapCmd() *cobra.Command {
	return queryCommand(&cobra.Command{
		Use:   "overlap CANDIDATE_ID JOB_ID",
		Short: "Compare a candidate's skills with a job's required skills",
		Args:  cobra.ExactArgs(2),
	}, func(args []string) queryFunc {
		return func(g *knowledgegraph.Graph) any {
			return g.SkillOverlap(args[0], args[1])
		}
	})
}

func newStatsCmd() *cobra.Command {
	return queryCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print node, edge and per-type counts",
		Args:  cobra.NoArgs,
	}, func([]string) queryFunc {
		return func(g *knowledgegraph.Graph) any {
			return g.Stats()
		}
	})
}
