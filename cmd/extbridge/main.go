// Command extbridge loads an extension from a directory and calls its
// operations from the command line.
//
//	extbridge call --dir ./ext --name mymodule add 2 3
//	extbridge inspect --dir ./ext --name mymodule
//	extbridge schema
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	err := newApp(os.Stdout, os.Stderr).Run(os.Args)
	if err == nil {
		return
	}
	code := 1
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		code = exit.ExitCode()
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}
