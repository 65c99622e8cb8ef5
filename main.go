// SPDX-License-Identifier: MPL-2.0

// Command pluginlib resolves, relocates and activates the runtime libraries
// declared in a plugin host manifest.
package main

import cmd "github.com/invowk/pluginlib/cmd/pluginlib"

func main() {
	cmd.Execute()
}
