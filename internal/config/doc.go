// SPDX-License-Identifier: MPL-2.0

// Package config handles the pluginlib tool configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/pluginlib/config.cue (or XDG equivalent on Linux,
// ~/Library/Application Support/pluginlib/config.cue on macOS, %APPDATA%\pluginlib\config.cue
// on Windows) and validated against an embedded CUE schema (config_schema.cue). Every key can
// be overridden with a PLUGINLIB_* environment variable, dots replaced by underscores.
package config
