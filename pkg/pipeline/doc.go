// SPDX-License-Identifier: MPL-2.0

// Package pipeline drives declared libraries through their lifecycle:
//
//	Declared -> Fetching -> Fetched -> Activated
//	                           \-> Rewriting -> Rewritten -> Activated
//
// A failure ends in FailedFetch, FailedRewrite or FailedActivation. Bootstrap
// wires the manifest loader, cache, rewriter and activator for a host's
// startup hook.
package pipeline
