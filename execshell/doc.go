// Package execshell runs shell command strings through a configurable
// interpreter and captures their output.
//
// ShellExecutor spawns the configured interpreter with -c, merges an optional
// environment overlay onto the parent process environment, and concurrently
// drains stdout and stderr into per-run buffers. Callers receive the trimmed
// standard output or a typed error carrying the exit code and the captured
// standard error text. Optional StreamSink implementations observe output
// incrementally while a command runs, and CommandEventObserver surfaces run
// lifecycle events without the package logging anything itself.
package execshell
