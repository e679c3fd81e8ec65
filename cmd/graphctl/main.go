package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/Ratio1/graph_sdk_go/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
