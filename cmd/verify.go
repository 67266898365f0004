package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/crytic/solverify/cmd/exitcodes"
	"github.com/crytic/solverify/logging/colors"
	"github.com/crytic/solverify/verification"
	"github.com/spf13/cobra"
)

// verifyCmd represents the command provider for verification
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verifies a source file against deployed bytecode",
	Long: `Flattens a root source file, compiles the requested contract under each configured compiler version and
optimizer setting, and compares the result with the runtime bytecode deployed at an address. Metadata trailers are
stripped from both sides before comparison.`,
	Args:              cmdValidateVerifyArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunVerify,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the verify command
	err := addVerifyFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the verify command", err)
	}

	// Add the verify command and its associated flags to the root command
	rootCmd.AddCommand(verifyCmd)
}

// cmdValidateVerifyArgs makes sure that there are no positional arguments provided to the verify command
func cmdValidateVerifyArgs(cmd *cobra.Command, args []string) error {
	// Make sure we have no positional args
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("verify does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the verify command", err)
		return err
	}
	return nil
}

// cmdRunVerify executes the CLI verify command. A match exits with ExitCodeSuccess, a mismatch with
// ExitCodeVerificationFailed, and any error that prevented a verdict with ExitCodeHandledError.
func cmdRunVerify(cmd *cobra.Command, args []string) error {
	projectConfig, configPath, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the verify command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithVerifyFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the verify command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Paths in the configuration file are relative to its directory
	err = enterConfigDirectory(configPath)
	if err != nil {
		cmdLogger.Error("Failed to run the verify command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	closeLogs, err := setupLogging(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to set up logging", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer closeLogs()

	verifier, err := verification.NewVerifier(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the verify command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Write the report as soon as the run has an outcome
	if reportPath := projectConfig.Verification.ReportPath; reportPath != "" {
		verifier.Events.VerificationFinished.Subscribe(func(event verification.VerificationFinishedEvent) error {
			err := verification.WriteReport(event.Outcome, reportPath, projectConfig.Verification.ReportFormat)
			if err != nil {
				return err
			}
			cmdLogger.Info("Verification report written to: ", colors.Bold, reportPath, colors.Reset)
			return nil
		})
	}
	verifier.Events.AttemptCompleted.Subscribe(func(event verification.AttemptCompletedEvent) error {
		cmdLogger.Debug(attemptProgress(event)...)
		return nil
	})

	// Stop verifying on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcome, err := verifier.Run(ctx)
	if err != nil {
		cmdLogger.Error("Verification could not be completed", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	outcome.Log(cmdLogger)
	fmt.Fprint(cmd.OutOrStdout(), outcome.String())

	if !outcome.Matched {
		return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeVerificationFailed)
	}
	return nil
}

// attemptProgress returns the log arguments of a progress line for a completed attempt, colored by its result.
func attemptProgress(event verification.AttemptCompletedEvent) []any {
	args := []any{colors.DarkGray, "[", event.Index + 1, "/", event.Total, "] ", colors.Reset,
		event.Attempt.Configuration().String(), ": "}
	switch {
	case event.Attempt.Error != "":
		return append(args, colors.Red, "failed", colors.Reset, " (", event.Attempt.Error, ")")
	case event.Attempt.Matched:
		return append(args, colors.GreenBold, "match")
	default:
		return append(args, colors.Yellow, "mismatch", colors.Reset, " (stripped local: ",
			event.Attempt.LocalStrippedLength, " bytes)")
	}
}
