// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package engine

import (
	"math"
	"slices"

	"github.com/viant/vec/search"
)

// distanceMatrix converts embeddings into a symmetric pairwise cosine
// distance matrix with distance = 1 - similarity, spanning [0, 2]. Negative
// similarities map to distances above 1 instead of being clamped, so
// strongly dissimilar vectors stay far apart. Zero-norm vectors carry
// similarity 0 (distance 1) to everything.
func distanceMatrix(vecs [][]float32) [][]float64 {
	n := len(vecs)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}

	mags := make([]float32, n)
	for i, v := range vecs {
		mags[i] = search.Float32s(v).Magnitude()
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1.0
			if mags[i] != 0 && mags[j] != 0 {
				d = 1 - dot(vecs[i], vecs[j])/(float64(mags[i])*float64(mags[j]))
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	return dist
}

// cutoffTolerance absorbs floating-point accumulation in averaged
// distances when comparing against the merge cutoff.
const cutoffTolerance = 1e-9

// clusterAverage runs hierarchical agglomerative clustering with average
// linkage over a symmetric distance matrix, merging the closest pair while
// its distance stays within cutoff. The cluster count falls out of the
// cutoff rather than being fixed in advance. Each returned cluster holds
// ascending item indices; clusters are ordered by their smallest member.
func clusterAverage(dist [][]float64, cutoff float64) [][]int {
	n := len(dist)
	if n == 0 {
		return nil
	}

	d := make([][]float64, n)
	for i := range dist {
		d[i] = slices.Clone(dist[i])
	}

	members := make([][]int, n)
	sizes := make([]int, n)
	active := make([]bool, n)
	for i := range members {
		members[i] = []int{i}
		sizes[i] = 1
		active[i] = true
	}

	for remaining := n; remaining > 1; remaining-- {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if active[j] && d[i][j] < best {
					best, bi, bj = d[i][j], i, j
				}
			}
		}
		// The Lance-Williams recurrence accumulates rounding error, so a
		// merge sitting exactly on the cutoff can land a few ulps above
		// it; the tolerance keeps the boundary inclusive.
		if bi == -1 || best > cutoff+cutoffTolerance {
			break
		}

		// Merge bj into bi, updating distances by the Lance-Williams
		// recurrence for average linkage.
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			d[bi][k] = (float64(sizes[bi])*d[bi][k] + float64(sizes[bj])*d[bj][k]) /
				float64(sizes[bi]+sizes[bj])
			d[k][bi] = d[bi][k]
		}

		members[bi] = mergeSorted(members[bi], members[bj])
		sizes[bi] += sizes[bj]
		active[bj] = false
		members[bj] = nil
	}

	// The pair scan always picks bi < bj, so a slot index equals its
	// cluster's smallest member and slot order is first-member order.
	var out [][]int
	for i, alive := range active {
		if alive {
			out = append(out, members[i])
		}
	}
	return out
}

// dot accumulates in float64 so long vectors do not lose precision.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// mergeSorted merges two ascending index slices into one.
func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
