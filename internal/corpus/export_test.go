// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package corpus

// Test-only exports.

var (
	RelevantOp = relevantOp
	HiddenPath = hiddenPath
)
