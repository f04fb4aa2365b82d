// Command blogd runs the blog API server and its maintenance tasks.
//
//	blogd serve     start the HTTP server
//	blogd migrate   apply pending schema migrations and print the version
//
// Settings come from the environment, .env and config.yaml; see
// internal/config.
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
