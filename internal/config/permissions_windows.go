// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

//go:build windows

package config

import "log/slog"

// WarnInsecurePermissions is a no-op on Windows: ACLs govern access there,
// and the Unix permission bits this check reads carry no meaning.
func WarnInsecurePermissions(path string) {
	if path != "" {
		slog.Debug("config permission check skipped on Windows", "path", path)
	}
}
