package cmd

import (
	"os"

	"github.com/crytic/solverify/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the root CLI command object which all other commands stem from.
var rootCmd = &cobra.Command{
	Use:   "solverify",
	Short: "A Solidity source verification tool",
	Long:  "solverify checks that a Solidity source file compiles to the bytecode deployed at an address",
}

// cmdLogger is the logger that will be used for the cmd package
var cmdLogger = newCmdLogger()

// newCmdLogger creates the console logger used by commands before a project configuration has been loaded.
func newCmdLogger() *logging.Logger {
	logger := logging.NewLogger(zerolog.InfoLevel).NewSubLogger("module", logging.CLI_SERVICE)
	logger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
	return logger
}

// Execute provides an exportable function to invoke the CLI. Returns an error if one was encountered.
func Execute() error {
	return rootCmd.Execute()
}
