package main

import (
	"os"

	"github.com/pledgekit/patronage/cmd/patronctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
