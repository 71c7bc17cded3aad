// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package engine

// State classifies how an engine operation completed.
type State string

const (
	// StateOK means the operation ran cleanly; empty results are a
	// legitimate "no matches".
	StateOK State = "ok"

	// StateDegraded means results were produced but some inputs were
	// skipped, excluded, or embedded as zero vectors.
	StateDegraded State = "degraded"

	// StateFailed means a required capability was missing or broken and
	// the empty result says nothing about the corpus.
	StateFailed State = "failed"
)

// Outcome travels alongside every engine result so callers can tell
// "legitimately no matches" apart from "the machinery is broken" without the
// operation ever returning an error.
type Outcome struct {
	State   State    `json:"state"`
	Reasons []string `json:"reasons,omitempty"`
}

// OK returns a clean outcome.
func OK() Outcome { return Outcome{State: StateOK} }

// Degraded returns a degraded outcome with the given reasons.
func Degraded(reasons ...string) Outcome {
	return Outcome{State: StateDegraded, Reasons: reasons}
}

// Failed returns a failed outcome with the given reasons.
func Failed(reasons ...string) Outcome {
	return Outcome{State: StateFailed, Reasons: reasons}
}

// Degrade lowers the outcome to StateDegraded (unless it is already failed)
// and records why.
func (o Outcome) Degrade(reason string) Outcome {
	if o.State != StateFailed {
		o.State = StateDegraded
	}
	o.Reasons = append(o.Reasons, reason)
	return o
}

// Fail lowers the outcome to StateFailed and records why.
func (o Outcome) Fail(reason string) Outcome {
	o.State = StateFailed
	o.Reasons = append(o.Reasons, reason)
	return o
}

// IsOK reports whether the operation completed without degradation.
func (o Outcome) IsOK() bool { return o.State == StateOK }
