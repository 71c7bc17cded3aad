// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/semdex-dev/semdex/internal/engine"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by the --format flag.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// addFormatFlag registers the shared --format flag on a query command.
func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", formatText, "output format: text, json, or yaml")
}

// validFormat rejects unknown --format values before any work is done.
func validFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return semerr.Errorf(semerr.CodeCLIInputInvalid, "unknown format %q (want text, json, or yaml)", format)
	}
}

// renderStructured writes v to the command's stdout as JSON or YAML.
func renderStructured(cmd *cobra.Command, format string, v any) error {
	w := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return semerr.Errorf(semerr.CodeInternalFailure, "encoding yaml output: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return semerr.Errorf(semerr.CodeCLIInputInvalid, "unknown format %q (want text, json, or yaml)", format)
	}
}

// warnDegraded surfaces degraded-outcome reasons on stderr without failing
// the command; partial results still land on stdout.
func warnDegraded(cmd *cobra.Command, out engine.Outcome) {
	if out.State != engine.StateDegraded {
		return
	}
	for _, r := range out.Reasons {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", r)
	}
}

// outcomeError converts a failed outcome into the error the command returns.
func outcomeError(op string, out engine.Outcome) error {
	return semerr.Errorf(semerr.CodeCLISetupFailure, "%s failed: %s", op, strings.Join(out.Reasons, "; "))
}
