// Package main is the entry point of the qanda command.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal — its job is to:
// 1. Read configuration (YAML file + environment, see internal/config)
// 2. Create dependencies (logger, database, services)
// 3. Start the server, or run one operator command and exit
//
// All actual logic lives in imported packages (internal/server, internal/service, etc.).
//
// COMMANDS:
//
//	qanda serve                          run the web server
//	qanda createuser --username --email  create an account
//	qanda user activate|deactivate EMAIL toggle is_active
//	qanda restore question|answer ID     undo a soft delete
//
// Every command accepts --config path/to/qanda.yaml.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra has already printed the error.
		os.Exit(1)
	}
}
