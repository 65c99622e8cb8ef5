// SPDX-License-Identifier: MPL-2.0

package pipeline

import "github.com/invowk/pluginlib/pkg/library"

type (
	// Status is the outcome of one declared library.
	Status struct {
		// Key is the library's key in the manifest.
		Key     string
		Library library.Descriptor
		State   State
		// Path is the resolved artifact, empty when resolution failed.
		Path string
		// Err is set for failure states.
		Err error
	}

	// Report lists the statuses of a run in declaration order.
	Report struct {
		Statuses []Status
	}
)

// Failed returns the statuses in a failure state.
func (r *Report) Failed() []Status {
	return r.filter(func(s Status) bool { return s.State.Failed() })
}

// Activated returns the statuses that reached Activated.
func (r *Report) Activated() []Status {
	return r.filter(func(s Status) bool { return s.State == Activated })
}

// Paths returns the activated artifact paths in declaration order.
func (r *Report) Paths() []string {
	var paths []string
	for _, s := range r.Activated() {
		paths = append(paths, s.Path)
	}
	return paths
}

func (r *Report) filter(keep func(Status) bool) []Status {
	var out []Status
	for _, s := range r.Statuses {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
