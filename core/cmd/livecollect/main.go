package main

import (
	"context"
	"os"

	"github.com/fatih/color"

	"livecollect/core/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "ERROR during collection: "+err.Error())
		os.Exit(cli.ExitCode(err))
	}
}
