package main

import (
	"os"

	"github.com/hirebot-dev/hirebot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
