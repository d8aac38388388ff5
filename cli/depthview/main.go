// Package main is the depthview command itself.
package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/depthview/depthview/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		//nolint:errcheck
		color.New(color.Bold, color.FgRed).Fprint(os.Stderr, "Error: ")
		//nolint:errcheck
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
