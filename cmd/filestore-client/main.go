// Command filestore-client is a command-line client for filestored: one
// subcommand per wire operation, plus an interactive shell and a batch
// uploader for scripting a handful of calls at once.
package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"
)

func main() {
	c := cli.NewCLI("filestore-client", "0.1.0")
	c.Args = os.Args[1:]
	c.Commands = commandFactories()

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}
