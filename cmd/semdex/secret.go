// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/semdex-dev/semdex/internal/secrets"
	semerr "github.com/semdex-dev/semdex/pkg/errors"
	"github.com/spf13/cobra"
)

// serviceName namespaces every keyring entry this binary writes.
const serviceName = "semdex"

// secretStoreFactory is swapped by command tests; the default talks to the
// real OS keyring.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Store provider API keys in the OS keyring",
		Long:  "Store, list, and delete secrets kept under the semdex service in the operating system keyring. Config files reference them as keyring://semdex/<name>.",
	}

	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretListCmd(),
		newSecretDeleteCmd(),
	)

	return cmd
}

func newSecretSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>",
		Short: "Store a secret read from stdin",
		Long:  "Read one line from stdin and store it under the given name. Pipe the value in to keep it out of shell history, e.g.: pbpaste | semdex secret set openai-api-key",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretSet,
	}
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		RunE:  runSecretList,
	}
}

func newSecretDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a secret from the keyring",
		Args:  cobra.ExactArgs(1),
		RunE:  runSecretDelete,
	}
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Value for %s (input is not masked): ", name)
	}
	value, err := readSecretValue(in)
	if err != nil {
		return semerr.Wrapf(err, semerr.CodeCLIInputInvalid, "reading secret value")
	}
	if value == "" {
		return semerr.New(semerr.CodeCLIInputInvalid, "secret value must not be empty")
	}

	if err := secretStoreFactory().Store(serviceName, name, value); err != nil {
		return semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "storing secret %q", name)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Stored secret: %s\n", name)
	_, _ = fmt.Fprintf(w, "Reference it in semdex.yaml as keyring://%s/%s\n", serviceName, name)
	return nil
}

// readSecretValue takes the first line of input, tolerating a missing
// trailing newline from piped values.
func readSecretValue(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	keys, err := secretStoreFactory().List(serviceName)
	if err != nil {
		return semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "listing secrets")
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(out, "No secrets stored yet. Add one with 'semdex secret set <name>'.")
		return nil
	}

	for _, k := range keys {
		_, _ = fmt.Fprintln(out, k)
	}
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	if err := secretStoreFactory().Delete(serviceName, name); err != nil {
		if semerr.HasCode(err, semerr.CodeSecretNotFound) {
			return semerr.Errorf(semerr.CodeSecretNotFound, "secret %q not found", name)
		}
		return semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "deleting secret %q", name)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed secret: %s\n", name)
	return nil
}
