package main

import (
	"os"

	"github.com/shlokDS16/flow-state-studio/internal/cli"
)

func main() {
	code := cli.Run(os.Args[1:])
	os.Exit(code)
}
