// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/semdex-dev/semdex/internal/corpus"
	"github.com/semdex-dev/semdex/internal/secrets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check binary health, embedding configuration, index and cache state, corpus reachability, keyring access, and disk space.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	dataDir := resolveDataDir()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", checkConfig},
		{"Embedding", checkEmbedding},
		{"Index", func() string { return checkIndex(dataDir) }},
		{"Corpus", checkCorpus},
		{"Cache", func() string { return checkCache(dataDir) }},
		{"Keyring", checkKeyring},
		{"Disk Space", func() string { return checkDiskSpace(dataDir) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("semdex %s (commit %s)", version, commit)
}

func checkPlatform() string {
	return fmt.Sprintf("%s on %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func checkConfig() string {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkEmbedding() string {
	provider := viper.GetString("embedding.provider")
	dims := viper.GetInt("embedding.dimensions")

	if provider == "local" {
		return fmt.Sprintf("local, %d dimensions (no API key needed)", dims)
	}

	key := viper.GetString("embedding.api_key")
	switch {
	case key == "":
		return fmt.Sprintf("%s, %d dimensions (no API key configured, runs will fall back to local)", provider, dims)
	case secrets.IsKeyringRef(key):
		return fmt.Sprintf("%s, %d dimensions, API key in keyring", provider, dims)
	default:
		return fmt.Sprintf("%s, %d dimensions, API key set in config (consider keyring://)", provider, dims)
	}
}

func checkIndex(dataDir string) string {
	backend := viper.GetString("index.backend")
	if backend != "sqlite" {
		return fmt.Sprintf("%s (rebuilt per run)", backend)
	}

	dir := viper.GetString("index.path")
	if dir == "" {
		dir = dataDir
	}
	dbPath := filepath.Join(dir, "index.db")
	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("sqlite at %s (not yet built, run 'semdex index')", dbPath)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("sqlite at %s (%s)", dbPath, formatBytes(uint64(info.Size())))
}

func checkCorpus() string {
	root := viper.GetString("corpus.root")

	src, err := corpus.NewDir(root)
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	paths, err := src.List(context.Background())
	if err != nil {
		return fmt.Sprintf("error listing %s: %s", src.Root(), err)
	}
	return fmt.Sprintf("%d files under %s", len(paths), src.Root())
}

func checkCache(dataDir string) string {
	dir := viper.GetString("cache.dir")
	if dir == "" {
		dir = filepath.Join(dataDir, "cache")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("no cache directory at %s", dir)
		}
		return fmt.Sprintf("error reading cache: %s", err)
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() && e.Name()[0] != '.' {
			count++
		}
	}

	if count == 0 {
		return fmt.Sprintf("empty at %s", dir)
	}
	return fmt.Sprintf("%d entries in %s", count, dir)
}

func checkKeyring() string {
	store := secretStoreFactory()
	keys, err := store.List(serviceName)
	if err != nil {
		return fmt.Sprintf("unavailable: %s", err)
	}
	if len(keys) == 0 {
		return "available, no secrets stored"
	}
	return fmt.Sprintf("available, %d secret(s) stored", len(keys))
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Fall back to home directory if data dir doesn't exist yet.
		path, _ = os.UserHomeDir()
	}

	avail, err := diskFree(path)
	if err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}
	return formatBytes(avail) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
