package execshell

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	defaultShellPathStringConstant         = "/bin/sh"
	shellCommandFlagConstant               = "-c"
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "%s%s%s"
	newlineCutsetConstant                  = "\n"
)

// DefaultShellPath is the interpreter used when ShellPath is left empty.
const DefaultShellPath = defaultShellPathStringConstant

// ShellConfiguration captures the caller-supplied execution defaults.
type ShellConfiguration struct {
	// ShellPath selects the interpreter; empty selects DefaultShellPath.
	ShellPath string
	// EnvironmentVariables overlay the parent process environment at spawn
	// time. An empty overlay lets the child inherit the ambient environment
	// unmodified.
	EnvironmentVariables map[string]string
	// WorkingDirectory optionally sets the child working directory.
	WorkingDirectory string
}

// ShellCommand identifies a single shell invocation.
type ShellCommand struct {
	ShellPath        string
	CommandLine      string
	WorkingDirectory string
	// RunIdentifier is assigned per run and correlates lifecycle events of
	// concurrent invocations.
	RunIdentifier string
}

// ExecutionResult captures the observable results of executing a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CompletionHandler receives the outcome of an asynchronous run exactly once,
// with either the produced output or the run error.
type CompletionHandler func(standardOutput string, runError error)

// noopCompletionHandler discards the outcome of an asynchronous run.
var noopCompletionHandler CompletionHandler = func(string, error) {}

// ShellExecutor runs shell command strings through a configurable interpreter.
//
// The exported fields form the executor configuration. They are read at the
// start of a run and must not be mutated while runs are in flight; any number
// of concurrent runs may share one executor.
type ShellExecutor struct {
	// ShellPath selects the interpreter; empty selects DefaultShellPath.
	ShellPath string
	// EnvironmentVariables overlay the parent process environment at spawn time.
	EnvironmentVariables map[string]string
	// WorkingDirectory optionally sets the child working directory.
	WorkingDirectory string
	// OutputSink and ErrorSink observe the respective stream incrementally.
	OutputSink StreamSink
	ErrorSink  StreamSink
	// CaptureStrategy selects the stream drainer; the zero value streams.
	CaptureStrategy CaptureStrategy
	// EventObserver receives run lifecycle notifications when set.
	EventObserver CommandEventObserver

	spawner    ProcessSpawner
	dispatcher *runDispatcher
}

// NewShellExecutor constructs an executor backed by the operating system
// spawner. Construction stores the configuration as-is; defaults apply when
// fields are left empty.
func NewShellExecutor(configuration ShellConfiguration) *ShellExecutor {
	executor, _ := NewShellExecutorWithSpawner(configuration, NewOSProcessSpawner())
	return executor
}

// NewShellExecutorWithSpawner constructs an executor around the provided
// process spawner.
func NewShellExecutorWithSpawner(configuration ShellConfiguration, spawner ProcessSpawner) (*ShellExecutor, error) {
	if spawner == nil {
		return nil, ErrProcessSpawnerNotConfigured
	}

	return &ShellExecutor{
		ShellPath:            configuration.ShellPath,
		EnvironmentVariables: configuration.EnvironmentVariables,
		WorkingDirectory:     configuration.WorkingDirectory,
		spawner:              spawner,
	}, nil
}

// Run executes the command line synchronously and returns its standard output
// trimmed of leading and trailing newline characters.
//
// A non-zero exit yields a CommandFailedError carrying the exit code and the
// captured standard error text. A zero exit whose standard output is not
// valid UTF-8 yields an OutputDecodingError. Failures to start the child
// process are returned exactly as the platform reports them. Errors are
// returned, never logged, and never retried.
func (executor *ShellExecutor) Run(executionContext context.Context, commandLine string) (string, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	command := executor.describeCommand(commandLine)
	observer := executor.resolveObserver()
	observer.CommandStarted(command)

	result, executionError := executor.executeCommand(executionContext, command)
	if executionError != nil {
		observer.CommandExecutionFailed(command, executionError)
		return emptyStringConstant, executionError
	}

	observer.CommandCompleted(command, result)
	return classifyResult(result)
}

// RunWithCompletion executes the command line asynchronously. The call never
// blocks: the run is scheduled on a bounded dispatcher and the completion
// handler is invoked exactly once with either the produced output or the run
// error. A nil handler does not cancel the run; the command executes and its
// outcome is discarded. Concurrent runs are independent and share nothing
// beyond the executor configuration.
func (executor *ShellExecutor) RunWithCompletion(executionContext context.Context, commandLine string, completion CompletionHandler) {
	if completion == nil {
		completion = noopCompletionHandler
	}
	if executionContext == nil {
		executionContext = context.Background()
	}

	executor.resolveDispatcher().dispatch(executionContext,
		func() {
			standardOutput, runError := executor.Run(executionContext, commandLine)
			if runError != nil {
				completion(emptyStringConstant, runError)
				return
			}
			completion(standardOutput, nil)
		},
		func(dispatchError error) {
			completion(emptyStringConstant, dispatchError)
		},
	)
}

func (executor *ShellExecutor) executeCommand(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	drainer, drainerError := drainerForStrategy(executor.CaptureStrategy)
	if drainerError != nil {
		return ExecutionResult{}, drainerError
	}

	specification := ProcessSpecification{
		ExecutablePath:       command.ShellPath,
		Arguments:            []string{shellCommandFlagConstant, command.CommandLine},
		EnvironmentVariables: executor.mergedEnvironment(),
		WorkingDirectory:     command.WorkingDirectory,
	}

	process, spawnError := executor.resolveSpawner().Spawn(executionContext, specification)
	if spawnError != nil {
		return ExecutionResult{}, spawnError
	}

	capture := newStreamCapture()
	drainError := drainer.drain(process, capture, executor.OutputSink, executor.ErrorSink)
	exitCode, waitError := process.Wait()
	executor.finishSinks()

	if drainError != nil {
		return ExecutionResult{}, drainError
	}
	if waitError != nil {
		return ExecutionResult{}, waitError
	}

	standardOutput, standardError := capture.snapshot()
	return ExecutionResult{
		StandardOutput: standardOutput,
		StandardError:  standardError,
		ExitCode:       exitCode,
	}, nil
}

// classifyResult reduces a raw execution result to the caller-facing outcome.
// The decoding failure can only arise on the zero-exit path; failure-path
// standard error decoding falls back to a fixed message inside
// CommandFailedError instead.
func classifyResult(result ExecutionResult) (string, error) {
	if result.ExitCode != 0 {
		return emptyStringConstant, CommandFailedError{
			ExitCode: result.ExitCode,
			Message:  failureMessage(result.StandardError),
		}
	}

	if !utf8.ValidString(result.StandardOutput) {
		return emptyStringConstant, OutputDecodingError{}
	}

	return strings.Trim(result.StandardOutput, newlineCutsetConstant), nil
}

func failureMessage(standardError string) string {
	if !utf8.ValidString(standardError) {
		return unknownErrorMessageConstant
	}
	return strings.Trim(standardError, newlineCutsetConstant)
}

// mergedEnvironment builds the child environment from the parent environment
// plus the configured overlay. A nil result lets the child inherit the
// ambient environment unmodified.
func (executor *ShellExecutor) mergedEnvironment() []string {
	if len(executor.EnvironmentVariables) == 0 {
		return nil
	}

	mergedEnvironment := append([]string{}, os.Environ()...)
	for environmentKey, environmentValue := range executor.EnvironmentVariables {
		mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentAssignmentSeparatorConstant, environmentValue))
	}
	return mergedEnvironment
}

func (executor *ShellExecutor) describeCommand(commandLine string) ShellCommand {
	return ShellCommand{
		ShellPath:        executor.resolveShellPath(),
		CommandLine:      commandLine,
		WorkingDirectory: executor.WorkingDirectory,
		RunIdentifier:    uuid.NewString(),
	}
}

func (executor *ShellExecutor) resolveShellPath() string {
	if len(strings.TrimSpace(executor.ShellPath)) == 0 {
		return DefaultShellPath
	}
	return executor.ShellPath
}

func (executor *ShellExecutor) resolveSpawner() ProcessSpawner {
	if executor.spawner == nil {
		return NewOSProcessSpawner()
	}
	return executor.spawner
}

func (executor *ShellExecutor) resolveDispatcher() *runDispatcher {
	if executor.dispatcher == nil {
		return defaultRunDispatcher
	}
	return executor.dispatcher
}

func (executor *ShellExecutor) resolveObserver() CommandEventObserver {
	if executor.EventObserver == nil {
		return noopCommandEventObserver{}
	}
	return executor.EventObserver
}

func (executor *ShellExecutor) finishSinks() {
	if executor.OutputSink != nil {
		executor.OutputSink.Finish()
	}
	if executor.ErrorSink != nil {
		executor.ErrorSink.Finish()
	}
}
