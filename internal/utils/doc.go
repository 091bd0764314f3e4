// Package utils exposes reusable helpers consumed by the command-line layer.
//
// It houses the ConfigurationLoader and LoggerFactory abstractions that
// integrate Viper, environment variables, and zap logging, alongside the
// EnvironmentFileLoader for YAML variable files and small context and writer
// helpers.
package utils
