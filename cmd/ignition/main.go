// Package main is the single-binary entrypoint for the ignition engine.
package main

import "github.com/healthrocket-labs/ignition/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
