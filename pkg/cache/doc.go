// SPDX-License-Identifier: MPL-2.0

// Package cache stores downloaded and relocated artifacts on disk.
//
// Each descriptor maps to two files in the cache directory:
//
//	<artifact>-<version>.jar            raw download
//	<artifact>-<version>-relocated.jar  namespace-rewritten copy
//
// File existence is the only state: an entry that exists is never downloaded or
// rewritten again, and files only ever appear through an atomic rename, so a
// crash leaves either nothing or a complete file. Within one process,
// concurrent requests for the same entry share a single download or rewrite.
package cache
