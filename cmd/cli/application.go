package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/shellrun/execshell"
	"github.com/temirov/shellrun/internal/ui"
	"github.com/temirov/shellrun/internal/utils"
	flagutils "github.com/temirov/shellrun/internal/utils/flags"
	pathutils "github.com/temirov/shellrun/internal/utils/path"
)

const (
	applicationNameConstant                 = "shellrun"
	applicationShortDescriptionConstant     = "Command-line interface for running shell command lines with captured output"
	applicationLongDescriptionConstant      = "shellrun executes a shell command line through a configurable interpreter, captures its output, and reports failures together with the child exit code."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	versionFlagNameConstant                 = "version"
	versionFlagUsageConstant                = "Print the application version and exit."
	versionOutputTemplateConstant           = "%s version: %s\n"
	developmentVersionConstant              = "development"
	captureFlagNameConstant                 = "capture"
	captureFlagDescriptionConstant          = "Capture strategy for command output"
	streamFlagNameConstant                  = "stream"
	streamFlagUsageConstant                 = "Mirror captured output to the console while the command runs"
	detachFlagNameConstant                  = "detach"
	detachFlagUsageConstant                 = "Run the command through the background dispatcher and wait for its completion"
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	shellConfigurationKeyConstant           = "shell"
	shellPathConfigKeyConstant              = shellConfigurationKeyConstant + ".path"
	shellCaptureConfigKeyConstant           = shellConfigurationKeyConstant + ".capture"
	environmentPrefixConstant               = "SHELLRUN"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	runDiagnosticsMessageConstant           = "shell command dispatch"
	logFieldCommandLineConstant             = "command_line"
	logFieldShellPathConstant               = "shell_path"
	logFieldDetachedConstant                = "detached"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	commandLineJoinSeparatorConstant        = " "
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Shell  ApplicationShellConfiguration  `mapstructure:"shell"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationShellConfiguration stores the configured shell invocation defaults.
type ApplicationShellConfiguration struct {
	Path             string            `mapstructure:"path"`
	WorkingDirectory string            `mapstructure:"working_directory"`
	Environment      map[string]string `mapstructure:"environment"`
	Capture          string            `mapstructure:"capture"`
	Stream           bool              `mapstructure:"stream"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	versionFlagValue       bool
	captureFlagValue       string
	streamFlagValue        bool
	detachFlagValue        bool
	invocationFlagValues   *flagutils.InvocationFlagValues
	commandContextAccessor utils.CommandContextAccessor
	environmentFileLoader  *utils.EnvironmentFileLoader
	homeExpander           *pathutils.HomeExpander
	versionResolver        func(context.Context) string
	exitFunction           func(int)
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		environmentFileLoader:  utils.NewEnvironmentFileLoader(),
		homeExpander:           pathutils.NewHomeExpander(),
		versionResolver:        defaultVersionResolver,
		exitFunction:           os.Exit,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if application.versionFlagValue {
				return application.printVersion(command)
			}
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().BoolVar(&application.versionFlagValue, versionFlagNameConstant, false, versionFlagUsageConstant)

	cobraCommand.Flags().SetInterspersed(false)
	application.invocationFlagValues = flagutils.BindInvocationFlags(cobraCommand, flagutils.InvocationFlagValues{}, flagutils.DefaultInvocationFlagDefinitions())
	cobraCommand.Flags().StringVar(
		&application.captureFlagValue,
		captureFlagNameConstant,
		"",
		flagutils.FormatChoiceUsage(
			string(execshell.CaptureStrategyStreaming),
			[]string{string(execshell.CaptureStrategyStreaming), string(execshell.CaptureStrategyBuffered)},
			captureFlagDescriptionConstant,
		),
	)
	flagutils.AddToggleFlag(cobraCommand.Flags(), &application.streamFlagValue, streamFlagNameConstant, "", false, streamFlagUsageConstant)
	flagutils.AddToggleFlag(cobraCommand.Flags(), &application.detachFlagValue, detachFlagNameConstant, "", false, detachFlagUsageConstant)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	application.rootCommand.SetArgs(flagutils.NormalizeToggleArguments(os.Args[1:]))
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
		shellPathConfigKeyConstant:       execshell.DefaultShellPath,
		shellCaptureConfigKeyConstant:    string(execshell.CaptureStrategyStreaming),
	}

	configurationFilePath := application.homeExpander.Expand(application.configurationFilePath)
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) printVersion(command *cobra.Command) error {
	executionContext := context.Background()
	if command != nil && command.Context() != nil {
		executionContext = command.Context()
	}

	fmt.Fprintf(os.Stdout, versionOutputTemplateConstant, applicationNameConstant, application.versionResolver(executionContext))
	application.exitFunction(0)
	return nil
}

func defaultVersionResolver(context.Context) string {
	if buildInformation, buildInformationAvailable := debug.ReadBuildInfo(); buildInformationAvailable {
		if len(strings.TrimSpace(buildInformation.Main.Version)) > 0 {
			return buildInformation.Main.Version
		}
	}
	return developmentVersionConstant
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	if len(arguments) == 0 {
		return command.Help()
	}

	commandLine := strings.Join(arguments, commandLineJoinSeparatorConstant)
	shellExecutor, executorBuildError := application.buildShellExecutor(command)
	if executorBuildError != nil {
		return executorBuildError
	}

	configurationFilePath, _ := application.commandContextAccessor.ConfigurationFilePath(command.Context())

	application.logger.Debug(
		runDiagnosticsMessageConstant,
		zap.String(logFieldCommandLineConstant, commandLine),
		zap.String(logFieldShellPathConstant, shellExecutor.ShellPath),
		zap.String(configurationFileFieldConstant, configurationFilePath),
		zap.Bool(logFieldDetachedConstant, application.detachFlagValue),
	)

	if application.detachFlagValue {
		return application.runDetached(command.Context(), shellExecutor, commandLine)
	}

	standardOutput, runError := shellExecutor.Run(command.Context(), commandLine)
	return application.emitRunOutcome(command, standardOutput, runError)
}

type detachedRunOutcome struct {
	standardOutput string
	runError       error
}

func (application *Application) runDetached(executionContext context.Context, shellExecutor *execshell.ShellExecutor, commandLine string) error {
	completionSignals := make(chan detachedRunOutcome, 1)
	shellExecutor.RunWithCompletion(executionContext, commandLine, func(standardOutput string, runError error) {
		completionSignals <- detachedRunOutcome{standardOutput: standardOutput, runError: runError}
	})

	completion := <-completionSignals
	return application.emitRunOutcome(application.rootCommand, completion.standardOutput, completion.runError)
}

func (application *Application) emitRunOutcome(command *cobra.Command, standardOutput string, runError error) error {
	if runError != nil {
		return runError
	}

	if !application.streamingEnabled(command) && len(standardOutput) > 0 {
		fmt.Fprintln(os.Stdout, standardOutput)
	}

	return nil
}

func (application *Application) buildShellExecutor(command *cobra.Command) (*execshell.ShellExecutor, error) {
	environmentVariables := map[string]string{}
	for environmentKey, environmentValue := range application.configuration.Shell.Environment {
		environmentVariables[environmentKey] = environmentValue
	}

	if len(strings.TrimSpace(application.invocationFlagValues.EnvironmentFile)) > 0 {
		environmentFilePath := application.homeExpander.Expand(application.invocationFlagValues.EnvironmentFile)
		fileAssignments, fileLoadError := application.environmentFileLoader.Load(environmentFilePath)
		if fileLoadError != nil {
			return nil, fileLoadError
		}
		for environmentKey, environmentValue := range fileAssignments {
			environmentVariables[environmentKey] = environmentValue
		}
	}

	flagAssignments, assignmentParseError := utils.ParseEnvironmentAssignments(application.invocationFlagValues.EnvironmentAssignments)
	if assignmentParseError != nil {
		return nil, assignmentParseError
	}
	for environmentKey, environmentValue := range flagAssignments {
		environmentVariables[environmentKey] = environmentValue
	}

	shellPath := application.configuration.Shell.Path
	if len(strings.TrimSpace(application.invocationFlagValues.Shell)) > 0 {
		shellPath = application.invocationFlagValues.Shell
	}
	shellPath = application.homeExpander.Expand(shellPath)

	workingDirectory := application.configuration.Shell.WorkingDirectory
	if len(strings.TrimSpace(application.invocationFlagValues.WorkingDirectory)) > 0 {
		workingDirectory = application.invocationFlagValues.WorkingDirectory
	}
	workingDirectory = application.homeExpander.Expand(workingDirectory)

	shellExecutor := execshell.NewShellExecutor(execshell.ShellConfiguration{
		ShellPath:            shellPath,
		EnvironmentVariables: environmentVariables,
		WorkingDirectory:     workingDirectory,
	})
	shellExecutor.CaptureStrategy = application.captureStrategy()
	shellExecutor.EventObserver = ui.NewConsoleCommandEventLogger(application.logger)

	if application.streamingEnabled(command) {
		shellExecutor.OutputSink = execshell.NewWriterSink(utils.NewFlushingWriter(os.Stdout))
		shellExecutor.ErrorSink = execshell.NewWriterSink(utils.NewFlushingWriter(os.Stderr))
	}

	return shellExecutor, nil
}

func (application *Application) captureStrategy() execshell.CaptureStrategy {
	if len(strings.TrimSpace(application.captureFlagValue)) > 0 {
		return execshell.CaptureStrategy(application.captureFlagValue)
	}
	return execshell.CaptureStrategy(application.configuration.Shell.Capture)
}

func (application *Application) streamingEnabled(command *cobra.Command) bool {
	if command != nil && command.Flags().Changed(streamFlagNameConstant) {
		return application.streamFlagValue
	}
	return application.configuration.Shell.Stream
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
