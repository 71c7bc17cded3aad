// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package engine

// Test-only exports.

var (
	ClusterAverage = clusterAverage
	DistanceMatrix = distanceMatrix
)
