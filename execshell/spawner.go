package execshell

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// ProcessSpecification describes a child process to start.
//
// EnvironmentVariables holds the fully merged environment in KEY=value form;
// a nil slice lets the child inherit the parent environment unmodified.
type ProcessSpecification struct {
	ExecutablePath       string
	Arguments            []string
	EnvironmentVariables []string
	WorkingDirectory     string
}

// SpawnedProcess exposes the observable surface of a started child process.
type SpawnedProcess interface {
	// StandardOutput streams the child's standard output until exit.
	StandardOutput() io.Reader
	// StandardError streams the child's standard error until exit.
	StandardError() io.Reader
	// Wait blocks until the child exits and reports its exit code. Both
	// streams must be drained before Wait is called.
	Wait() (int, error)
}

// ProcessSpawner starts child processes described by a ProcessSpecification.
type ProcessSpawner interface {
	Spawn(executionContext context.Context, specification ProcessSpecification) (SpawnedProcess, error)
}

// OSProcessSpawner starts child processes using operating system facilities.
type OSProcessSpawner struct{}

// NewOSProcessSpawner creates a spawner backed by os/exec.
func NewOSProcessSpawner() *OSProcessSpawner {
	return &OSProcessSpawner{}
}

// Spawn implements ProcessSpawner. Failures to create the pipes or to start
// the executable are returned exactly as the platform reports them.
func (spawner *OSProcessSpawner) Spawn(executionContext context.Context, specification ProcessSpecification) (SpawnedProcess, error) {
	commandArguments := append([]string{}, specification.Arguments...)
	executable := exec.CommandContext(executionContext, specification.ExecutablePath, commandArguments...)

	if len(specification.WorkingDirectory) > 0 {
		executable.Dir = specification.WorkingDirectory
	}

	if specification.EnvironmentVariables != nil {
		executable.Env = specification.EnvironmentVariables
	}

	standardOutputPipe, standardOutputPipeError := executable.StdoutPipe()
	if standardOutputPipeError != nil {
		return nil, standardOutputPipeError
	}

	standardErrorPipe, standardErrorPipeError := executable.StderrPipe()
	if standardErrorPipeError != nil {
		return nil, standardErrorPipeError
	}

	if startError := executable.Start(); startError != nil {
		return nil, startError
	}

	return &osSpawnedProcess{
		command:        executable,
		standardOutput: standardOutputPipe,
		standardError:  standardErrorPipe,
	}, nil
}

type osSpawnedProcess struct {
	command        *exec.Cmd
	standardOutput io.Reader
	standardError  io.Reader
}

func (process *osSpawnedProcess) StandardOutput() io.Reader {
	return process.standardOutput
}

func (process *osSpawnedProcess) StandardError() io.Reader {
	return process.standardError
}

// Wait reaps the child. Non-zero exits are reported through the returned code
// with a nil error; any other wait failure is returned as-is.
func (process *osSpawnedProcess) Wait() (int, error) {
	waitError := process.command.Wait()
	if waitError != nil {
		exitError := &exec.ExitError{}
		if errors.As(waitError, &exitError) {
			return exitError.ExitCode(), nil
		}
		return 0, waitError
	}
	return 0, nil
}
