package main

import (
	"os"

	"github.com/orbitlabs/orbit/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
