// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"fmt"
	"time"

	"github.com/semdex-dev/semdex/internal/engine"
	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Embed and index the corpus",
		Long:  "Walk the corpus root, embed every file, and rebuild the vector index. Cached query results derived from the old index are dropped.",
		RunE:  runIndex,
	}
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := wireApp(cmd.Context(), cfg, resolveDataDir())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	stats, out := app.Engine.Reindex(cmd.Context())
	if out.State == engine.StateFailed {
		return outcomeError("indexing", out)
	}
	warnDegraded(cmd, out)

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Indexed %d file(s) in %s\n", stats.Indexed, stats.Duration.Round(time.Millisecond))
	if stats.Skipped > 0 {
		_, _ = fmt.Fprintf(w, "Skipped %d file(s) over the size ceiling\n", stats.Skipped)
	}
	if stats.Failed > 0 {
		_, _ = fmt.Fprintf(w, "Failed to index %d file(s)\n", stats.Failed)
	}
	if stats.Degraded > 0 {
		_, _ = fmt.Fprintf(w, "%d file(s) indexed with degraded embeddings\n", stats.Degraded)
	}
	return nil
}
