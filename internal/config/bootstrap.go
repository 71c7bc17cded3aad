// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// DefaultConfigYAML is the commented starter config written on first run.
//
//go:embed semdex.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/semdex/semdex.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", semerr.Errorf(semerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "semdex", "semdex.yaml"), nil
}

// DefaultDataDir returns ~/.semdex, the root for index and cache state when
// no data directory is configured.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Last resort, keeps relative paths working in containers without HOME.
		return ".semdex"
	}
	return filepath.Join(home, ".semdex")
}

// BootstrapConfig seeds the default config file on first run. It only writes
// when nothing exists at the default path yet; any problem is logged at debug
// and reported as not-written, since running on pure defaults is fine.
// Returns the path written, or "".
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("config bootstrap skipped", "error", err)
		return ""
	}
	if _, err := os.Stat(cfgPath); err == nil || !os.IsNotExist(err) {
		return ""
	}

	if err := writeDefaultConfig(cfgPath); err != nil {
		slog.Debug("config bootstrap skipped", "path", cfgPath, "error", err)
		return ""
	}
	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}

func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	// 0600: the file is a likely destination for inline API keys.
	return os.WriteFile(path, DefaultConfigYAML, 0o600)
}
