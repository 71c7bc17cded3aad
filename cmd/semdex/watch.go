// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/semdex-dev/semdex/internal/corpus"
	"github.com/semdex-dev/semdex/internal/engine"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the corpus and reindex on changes",
		Long:  "Index the corpus, then watch its root for file changes. Each debounced batch of changes invalidates affected cached results and rebuilds the index. Stop with Ctrl-C.",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := wireApp(cmd.Context(), cfg, resolveDataDir())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Watch keeps the index current, so it starts from a full rebuild rather
	// than trusting whatever a persistent backend still holds.
	stats, out := app.Engine.Reindex(ctx)
	if out.State == engine.StateFailed {
		return outcomeError("indexing corpus", out)
	}
	warnDegraded(cmd, out)

	watcher, err := corpus.NewWatcher(app.Corpus, cfg.Corpus.Watch.Debounce)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Indexed %d file(s); watching %s (Ctrl-C to stop)\n", stats.Indexed, app.Corpus.Root())

	return watcher.Run(ctx, func(paths []string) {
		// Drop cached results mentioning the changed paths first, so even a
		// failed rebuild cannot serve stale answers about them.
		for _, p := range paths {
			app.Engine.InvalidatePath(ctx, p)
		}

		stats, out := app.Engine.Reindex(ctx)
		if out.State == engine.StateFailed {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "reindex after %d change(s) failed: %s\n",
				len(paths), strings.Join(out.Reasons, "; "))
			return
		}
		_, _ = fmt.Fprintf(w, "%d change(s), reindexed %d file(s)\n", len(paths), stats.Indexed)
	})
}
