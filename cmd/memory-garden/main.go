package main

import (
	"os"

	"github.com/rcliao/memory-garden/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
