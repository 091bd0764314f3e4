package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestBindInvocationFlagsUsesDefaultsAndParsesValues(t *testing.T) {
	command := &cobra.Command{}

	values := BindInvocationFlags(command, InvocationFlagValues{Shell: "/bin/sh", WorkingDirectory: "/workspace"}, DefaultInvocationFlagDefinitions())

	require.NotNil(t, values)
	require.Equal(t, "/bin/sh", values.Shell)
	require.Equal(t, "/workspace", values.WorkingDirectory)
	require.Empty(t, values.EnvironmentAssignments)
	require.Empty(t, values.EnvironmentFile)

	parseError := command.ParseFlags([]string{
		"--" + ShellFlagName, "/bin/bash",
		"--" + WorkingDirectoryFlagName, "/projects",
		"--" + EnvironmentFlagName, "FIRST_KEY=first value",
		"-" + EnvironmentFlagShorthand, "SECOND_KEY=second,value",
		"--" + EnvironmentFileFlagName, "environment.yaml",
	})
	require.NoError(t, parseError)
	require.Equal(t, "/bin/bash", values.Shell)
	require.Equal(t, "/projects", values.WorkingDirectory)
	require.Equal(t, []string{"FIRST_KEY=first value", "SECOND_KEY=second,value"}, values.EnvironmentAssignments)
	require.Equal(t, "environment.yaml", values.EnvironmentFile)
}

func TestBindInvocationFlagsSkipsDisabledDefinitions(t *testing.T) {
	command := &cobra.Command{}

	definitions := DefaultInvocationFlagDefinitions()
	definitions.EnvironmentFile.Enabled = false

	values := BindInvocationFlags(command, InvocationFlagValues{}, definitions)

	require.NotNil(t, values)
	require.NotNil(t, command.Flags().Lookup(ShellFlagName))
	require.Nil(t, command.Flags().Lookup(EnvironmentFileFlagName))
}

func TestBindInvocationFlagsToleratesNilCommand(t *testing.T) {
	values := BindInvocationFlags(nil, InvocationFlagValues{Shell: "/bin/zsh"}, DefaultInvocationFlagDefinitions())

	require.NotNil(t, values)
	require.Equal(t, "/bin/zsh", values.Shell)
}
