// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package sqlite

import (
	"path/filepath"

	"github.com/semdex-dev/semdex/internal/index"
)

func init() {
	index.RegisterBackend("sqlite", func(dataDir string, dims int) (index.Index, error) {
		return Open(filepath.Join(dataDir, "index.db"), dims)
	})
}
