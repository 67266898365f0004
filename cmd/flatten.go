package cmd

import (
	"fmt"

	"github.com/crytic/solverify/cmd/exitcodes"
	"github.com/crytic/solverify/logging/colors"
	"github.com/crytic/solverify/utils"
	"github.com/crytic/solverify/verification"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// flattenCmd represents the command provider for flattening
var flattenCmd = &cobra.Command{
	Use:   "flatten",
	Short: "Flattens a root source file",
	Long: `Inlines every import of a root source file and prints the block of the requested contract, which is the unit
the verify command compiles.`,
	Args:              cmdValidateFlattenArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunFlatten,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Prevent alphabetical sorting of usage message
	flattenCmd.Flags().SortFlags = false

	addSourceFlags(flattenCmd)
	flattenCmd.Flags().String("out", "", "output path for the flattened source (default is stdout)")
	flattenCmd.Flags().Bool("full", false, "output the whole flattened unit rather than the extracted contract")
	addLoggingFlags(flattenCmd)

	rootCmd.AddCommand(flattenCmd)
}

// cmdValidateFlattenArgs makes sure that there are no positional arguments provided to the flatten command
func cmdValidateFlattenArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("flatten does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the flatten command", err)
		return err
	}
	return nil
}

// cmdRunFlatten executes the CLI flatten command
func cmdRunFlatten(cmd *cobra.Command, args []string) error {
	projectConfig, configPath, err := loadProjectConfig(cmd)
	if err == nil {
		err = updateProjectConfigWithSourceFlags(cmd, projectConfig)
	}
	if err == nil {
		err = updateProjectConfigWithLoggingFlags(cmd, projectConfig)
	}
	if err == nil && projectConfig.Sources.RootFile == "" {
		err = errors.Errorf("a root source file must be provided")
	}
	if err != nil {
		cmdLogger.Error("Failed to run the flatten command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// --out is relative to the invocation directory
	outputPath := ""
	if cmd.Flags().Changed("out") {
		if outputPath, err = absFlagPath(cmd, "out"); err != nil {
			cmdLogger.Error("Failed to run the flatten command", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		}
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		cmdLogger.Error("Failed to run the flatten command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	if err = enterConfigDirectory(configPath); err != nil {
		cmdLogger.Error("Failed to run the flatten command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	closeLogs, err := setupLogging(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to set up logging", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer closeLogs()

	flattened, extracted, err := verification.BuildUnit(projectConfig, projectConfig.ResolvedContractName())
	if err != nil {
		cmdLogger.Error("Failed to flatten ", projectConfig.Sources.RootFile, err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	text := extracted.Text
	if full {
		text = flattened.Text
	}

	if outputPath == "" {
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	}
	if err = utils.WriteFileCreatingDirectory(outputPath, []byte(text)); err != nil {
		cmdLogger.Error("Failed to write the flattened source", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	cmdLogger.Info("Flattened ", len(flattened.InlinedPaths)+1, " source unit(s) to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}
