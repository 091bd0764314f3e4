// Package flags provides helpers for binding standardized command-line flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// ShellFlagName exposes the shared interpreter path flag name.
	ShellFlagName = "shell"
	// ShellFlagUsage describes the shared interpreter path flag purpose.
	ShellFlagUsage = "Interpreter used to run the command line"
	// WorkingDirectoryFlagName exposes the shared working directory flag name.
	WorkingDirectoryFlagName = "working-directory"
	// WorkingDirectoryFlagUsage describes the shared working directory flag purpose.
	WorkingDirectoryFlagUsage = "Directory the command runs in"
	// EnvironmentFlagName exposes the shared environment assignment flag name.
	EnvironmentFlagName = "env"
	// EnvironmentFlagShorthand provides the shorthand for the environment assignment flag.
	EnvironmentFlagShorthand = "e"
	// EnvironmentFlagUsage describes the shared environment assignment flag purpose.
	EnvironmentFlagUsage = "Environment assignment KEY=VALUE passed to the command (repeatable)"
	// EnvironmentFileFlagName exposes the shared environment file flag name.
	EnvironmentFileFlagName = "env-file"
	// EnvironmentFileFlagUsage describes the shared environment file flag purpose.
	EnvironmentFileFlagUsage = "YAML file with environment assignments passed to the command"
)

// InvocationFlagDefinition captures a single invocation flag's configuration.
type InvocationFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// InvocationFlagDefinitions groups the invocation flag definitions.
type InvocationFlagDefinitions struct {
	Shell            InvocationFlagDefinition
	WorkingDirectory InvocationFlagDefinition
	Environment      InvocationFlagDefinition
	EnvironmentFile  InvocationFlagDefinition
}

// InvocationFlagValues stores invocation flag values.
type InvocationFlagValues struct {
	Shell                  string
	WorkingDirectory       string
	EnvironmentAssignments []string
	EnvironmentFile        string
}

// DefaultInvocationFlagDefinitions returns the invocation flag set under its
// shared names with every flag enabled.
func DefaultInvocationFlagDefinitions() InvocationFlagDefinitions {
	return InvocationFlagDefinitions{
		Shell:            InvocationFlagDefinition{Name: ShellFlagName, Usage: ShellFlagUsage, Enabled: true},
		WorkingDirectory: InvocationFlagDefinition{Name: WorkingDirectoryFlagName, Usage: WorkingDirectoryFlagUsage, Enabled: true},
		Environment:      InvocationFlagDefinition{Name: EnvironmentFlagName, Shorthand: EnvironmentFlagShorthand, Usage: EnvironmentFlagUsage, Enabled: true},
		EnvironmentFile:  InvocationFlagDefinition{Name: EnvironmentFileFlagName, Usage: EnvironmentFileFlagUsage, Enabled: true},
	}
}

// BindInvocationFlags attaches the invocation flags to the provided command.
func BindInvocationFlags(command *cobra.Command, defaults InvocationFlagValues, definitions InvocationFlagDefinitions) *InvocationFlagValues {
	values := defaults
	values.EnvironmentAssignments = append([]string{}, defaults.EnvironmentAssignments...)
	if command == nil {
		return &values
	}

	flagSet := command.Flags()
	bindStringFlag(flagSet, definitions.Shell, &values.Shell, defaults.Shell)
	bindStringFlag(flagSet, definitions.WorkingDirectory, &values.WorkingDirectory, defaults.WorkingDirectory)
	bindStringArrayFlag(flagSet, definitions.Environment, &values.EnvironmentAssignments)
	bindStringFlag(flagSet, definitions.EnvironmentFile, &values.EnvironmentFile, defaults.EnvironmentFile)

	return &values
}

func bindStringFlag(flagSet *pflag.FlagSet, definition InvocationFlagDefinition, target *string, defaultValue string) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}

	if len(definition.Shorthand) > 0 {
		flagSet.StringVarP(target, definition.Name, definition.Shorthand, defaultValue, definition.Usage)
		return
	}

	flagSet.StringVar(target, definition.Name, defaultValue, definition.Usage)
}

func bindStringArrayFlag(flagSet *pflag.FlagSet, definition InvocationFlagDefinition, target *[]string) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}

	if len(definition.Shorthand) > 0 {
		flagSet.StringArrayVarP(target, definition.Name, definition.Shorthand, *target, definition.Usage)
		return
	}

	flagSet.StringArrayVar(target, definition.Name, *target, definition.Usage)
}
