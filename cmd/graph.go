package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/skillgraph/internal/config"
	"github.com/xkilldash9x/skillgraph/internal/knowledgegraph"
	"github.com/xkilldash9x/skillgraph/internal/snapshot"
)

var jsonOut = jsoniter.ConfigCompatibleWithStandardLibrary

// openGraph loads the configured snapshot. A snapshot that does not exist yet
// yields an empty graph; fresh skips loading altogether.
func openGraph(ctx context.Context, logger *zap.Logger, cfg config.Interface, store *snapshot.Store, fresh bool) (*knowledgegraph.Graph, error) {
	path := cfg.Graph().SnapshotPath
	if fresh {
		logger.Info("Starting from an empty graph", zap.String("snapshot", path))
		return knowledgegraph.New(logger), nil
	}

	g, err := store.Load(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("No snapshot found, starting from an empty graph", zap.String("snapshot", path))
			return knowledgegraph.New(logger), nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return g, nil
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := jsonOut.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize output to JSON: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
