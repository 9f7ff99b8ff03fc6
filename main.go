// The main package for the snapshot executable.
package main

import (
	"github.com/JakeFAU/feed-snapshot/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
