// SPDX-License-Identifier: MPL-2.0

// Package activate injects resolved artifacts into the host.
//
// The host exposes a Loader; an Activator checks each resolved path and hands
// it to the Loader. SearchPath and ArchiveIndex are Loaders for hosts that run
// the artifacts in a child process or inspect their contents directly.
package activate
