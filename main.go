package main

import (
	"github.com/teemow/threadkeeper/cmd"
)

// version is stamped by goreleaser at build time
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
