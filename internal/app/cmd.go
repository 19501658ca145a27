package app

import "slices"

// Command selects what the passdesk binary runs.
type Command string

const (
	CommandServe   Command = "serve"   // HTTP API, the default
	CommandWorker  Command = "worker"  // expiry sweep and session cleanup
	CommandMigrate Command = "migrate" // apply schema migrations and exit
	// CommandHealthcheck probes the local /health endpoint. The distroless
	// image has no curl, so the container health check runs this.
	CommandHealthcheck Command = "healthcheck"
)

var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand reads the subcommand from args[0]. Anything else means serve.
func ParseCommand(args []string) Command {
	if len(args) > 0 && slices.Contains(commands, Command(args[0])) {
		return Command(args[0])
	}
	return CommandServe
}
