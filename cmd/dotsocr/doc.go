// Package main hosts the dotsocr CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground (serve), manages a
// detached daemon (start, stop, status), and translates file, task, and parse
// invocations into HTTP calls against the running service. Configuration
// resolution and API address discovery are centralized in commandContext so
// subcommands only deal with presentation.
package main
