// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"fmt"

	"github.com/semdex-dev/semdex/internal/engine"
	"github.com/spf13/cobra"
)

func newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Cluster the corpus into groups of similar files",
		Long:  "Embed every corpus file and cluster them by average-linkage similarity. Groups smaller than the minimum size are not reported.",
		RunE:  runGroups,
	}

	cmd.Flags().Float64P("threshold", "t", 0, "minimum cosine similarity within a group (defaults to config)")
	cmd.Flags().IntP("min-group-size", "m", 0, "smallest group to report (defaults to config)")
	addFormatFlag(cmd)

	return cmd
}

// groupsOutput is the structured rendering of a clustering run.
type groupsOutput struct {
	Groups  []engine.Group `json:"groups" yaml:"groups"`
	Outcome engine.Outcome `json:"outcome" yaml:"outcome"`
}

func runGroups(cmd *cobra.Command, _ []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	minGroupSize, _ := cmd.Flags().GetInt("min-group-size")
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

	// Grouping embeds the corpus directly; no index round-trip needed.
	groups, out := app.Engine.FileGroups(cmd.Context(), engine.Options{
		Threshold:    threshold,
		MinGroupSize: minGroupSize,
	})
	if out.State == engine.StateFailed {
		return outcomeError("grouping", out)
	}
	warnDegraded(cmd, out)

	if format != formatText {
		if groups == nil {
			groups = []engine.Group{}
		}
		return renderStructured(cmd, format, groupsOutput{Groups: groups, Outcome: out})
	}

	w := cmd.OutOrStdout()
	if len(groups) == 0 {
		_, _ = fmt.Fprintln(w, "No groups found")
		return nil
	}
	for i, g := range groups {
		_, _ = fmt.Fprintf(w, "Group %d (%d files):\n", i+1, len(g.Members))
		for _, m := range g.Members {
			_, _ = fmt.Fprintf(w, "  %s\n", m)
		}
	}
	return nil
}
