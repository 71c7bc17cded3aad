// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/semdex-dev/semdex/internal/engine"
	"github.com/spf13/cobra"
)

func newSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <path>",
		Short: "List corpus files most similar to one file",
		Long:  "Embed the file at the given corpus-relative path and list its nearest neighbors by cosine similarity, best first. The file itself is never listed.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimilar,
	}

	cmd.Flags().Float64P("threshold", "t", 0, "minimum cosine similarity (defaults to config)")
	cmd.Flags().IntP("max-results", "n", 0, "maximum number of neighbors (defaults to config)")
	addFormatFlag(cmd)

	return cmd
}

// similarOutput is the structured rendering of a neighbor query.
type similarOutput struct {
	Path    string         `json:"path" yaml:"path"`
	Results []engine.Match `json:"results" yaml:"results"`
	Outcome engine.Outcome `json:"outcome" yaml:"outcome"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	path := filepath.ToSlash(args[0])
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	format, _ := cmd.Flags().GetString("format")
	if err := validFormat(format); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, err := wireApp(cmd.Context(), cfg, resolveDataDir())
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	out := app.EnsureIndexed(cmd.Context())
	if out.State == engine.StateFailed {
		return outcomeError("indexing corpus", out)
	}
	warnDegraded(cmd, out)

	matches, out := app.Engine.SimilarFiles(cmd.Context(), path, engine.Options{
		Threshold:  threshold,
		MaxResults: maxResults,
	})
	if out.State == engine.StateFailed {
		return outcomeError("similarity query", out)
	}
	warnDegraded(cmd, out)

	if format != formatText {
		if matches == nil {
			matches = []engine.Match{}
		}
		return renderStructured(cmd, format, similarOutput{Path: path, Results: matches, Outcome: out})
	}

	w := cmd.OutOrStdout()
	if len(matches) == 0 {
		_, _ = fmt.Fprintln(w, "No similar files found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PATH\tSCORE")
	for _, m := range matches {
		_, _ = fmt.Fprintf(tw, "%s\t%.3f\n", m.Path, m.Score)
	}
	return tw.Flush()
}
