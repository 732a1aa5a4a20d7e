// Command tunewaved is the playback daemon's entrypoint: it hands off to
// the cobra command tree in package cmd (run / validate-config / version).
package main

import (
	"fmt"
	"os"

	"github.com/tunewave/tunewaved/cmd"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
