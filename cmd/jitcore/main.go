// Command jitcore drives the optimizer orchestrator and signal dispatcher
// from the command line: init writes a starting configuration file,
// compile runs one optimize() pass over a synthetic method and reports its
// outcome, and serve keeps a Runtime alive for a long-running host.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/jitcore/cmd/jitcore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jitcore: %v\n", err)
		os.Exit(1)
	}
}
