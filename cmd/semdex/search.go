// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/semdex-dev/semdex/internal/engine"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus by free text",
		Long:  "Embed the query text and list corpus files whose content scores at or above the similarity threshold, best match first. An empty index is built automatically before the first query.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().Float64P("threshold", "t", 0, "minimum cosine similarity (defaults to config)")
	cmd.Flags().IntP("max-results", "n", 0, "maximum number of matches (defaults to config)")
	addFormatFlag(cmd)

	return cmd
}

// searchOutput is the structured rendering of a search.
type searchOutput struct {
	Query   string         `json:"query" yaml:"query"`
	Results []string       `json:"results" yaml:"results"`
	Outcome engine.Outcome `json:"outcome" yaml:"outcome"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
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

	paths, out := app.Engine.Search(cmd.Context(), query, engine.Options{
		Threshold:  threshold,
		MaxResults: maxResults,
	})
	if out.State == engine.StateFailed {
		return outcomeError("search", out)
	}
	warnDegraded(cmd, out)

	if format != formatText {
		if paths == nil {
			paths = []string{}
		}
		return renderStructured(cmd, format, searchOutput{Query: query, Results: paths, Outcome: out})
	}

	w := cmd.OutOrStdout()
	if len(paths) == 0 {
		_, _ = fmt.Fprintln(w, "No matches found")
		return nil
	}
	for _, p := range paths {
		_, _ = fmt.Fprintln(w, p)
	}
	return nil
}
