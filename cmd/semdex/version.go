// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata, overridden at release time via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print semdex version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if short, _ := cmd.Flags().GetBool("short"); short {
				_, err := fmt.Fprintln(w, version)
				return err
			}
			_, err := fmt.Fprintf(w, "semdex %s\n  commit: %s\n  built:  %s\n  go:     %s (%s/%s)\n",
				version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
	cmd.Flags().Bool("short", false, "print only the version number")
	return cmd
}
