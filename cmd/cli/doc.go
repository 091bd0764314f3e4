// Package cli constructs the shellrun command-line interface, wiring the
// Cobra root command, configuration loader, and structured logging primitives
// around the execshell executor. It exposes helpers to build reusable
// application instances and to execute the default command as a library.
package cli
