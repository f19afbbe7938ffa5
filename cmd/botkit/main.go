// cmd/botkit/main.go
package main

import (
	"os"

	"github.com/vulntor/botkit/cmd/botkit/commands"
	"github.com/vulntor/botkit/cmd/botkit/internal/format"
)

// main runs the botkit CLI and exits with a status derived from the error
// code, see commands.ExitCode.
func main() {
	command := commands.NewCommand()

	err := commands.Execute(command)
	if err != nil {
		_ = format.FromCommand(command).PrintError(commands.WithErrorCode(err, commands.ErrorCode(err)))
		os.Exit(commands.ExitCode(err))
	}
}
