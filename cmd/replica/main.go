// Command replica keeps a local replica of a content space in sync.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/replica/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version string

func main() {
	cli.SetVersion(version)
	cli.SetBuilder(build)

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
