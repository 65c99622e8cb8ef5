// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the pluginlib command line.
//
// The commands load a host manifest, resolve its runtime libraries into the
// local cache and report on the result: the activated classpath, the archive
// that provides a class, or the cache contents. exec hands the classpath to a
// child process through CLASSPATH.
package cmd
