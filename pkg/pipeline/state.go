// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"

	"github.com/invowk/pluginlib/pkg/cache"
)

// Lifecycle states of a declared library.
const (
	Declared State = iota
	Fetching
	Fetched
	Rewriting
	Rewritten
	Activated
	FailedFetch
	FailedRewrite
	FailedActivation
)

// State is the lifecycle state of one library within a Pipeline.
type State int

// String returns the state name.
func (s State) String() string {
	switch s {
	case Declared:
		return "declared"
	case Fetching:
		return "fetching"
	case Fetched:
		return "fetched"
	case Rewriting:
		return "rewriting"
	case Rewritten:
		return "rewritten"
	case Activated:
		return "activated"
	case FailedFetch:
		return "failed-fetch"
	case FailedRewrite:
		return "failed-rewrite"
	case FailedActivation:
		return "failed-activation"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s is never left once entered.
func (s State) Terminal() bool {
	return s == Activated || s.Failed()
}

// Failed reports whether s is a failure state.
func (s State) Failed() bool {
	return s == FailedFetch || s == FailedRewrite || s == FailedActivation
}

// stateOf maps a cache stage to the state it enters.
func stateOf(stage cache.Stage) State {
	switch stage {
	case cache.StageFetching:
		return Fetching
	case cache.StageFetched:
		return Fetched
	case cache.StageRewriting:
		return Rewriting
	case cache.StageRewritten:
		return Rewritten
	default:
		return Declared
	}
}

// failureOf returns the failure state for an error raised while in s.
func failureOf(s State) State {
	if s == Rewriting {
		return FailedRewrite
	}
	return FailedFetch
}
