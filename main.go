package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/shellrun/cmd/cli"
	"github.com/temirov/shellrun/execshell"
)

const (
	exitErrorTemplateConstant = "%v\n"
	fallbackExitCodeConstant  = 1
)

// main executes the shellrun command-line application and mirrors the child
// exit code when the executed command fails.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)

		commandFailure := execshell.CommandFailedError{}
		if errors.As(executionError, &commandFailure) && commandFailure.ExitCode != 0 {
			os.Exit(commandFailure.ExitCode)
		}
		os.Exit(fallbackExitCodeConstant)
	}
}
