package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/crytic/solverify/cmd/exitcodes"
	"github.com/crytic/solverify/compilation"
	"github.com/crytic/solverify/utils"
	"github.com/crytic/solverify/verification"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// compileCmd represents the command provider for compilation
var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compiles the flattened contract under the first working configuration",
	Long: `Flattens a root source file and compiles the requested contract under each configured compiler version and
optimizer setting until one succeeds, then prints the resulting runtime bytecode summary.`,
	Args:              cmdValidateCompileArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunCompile,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Prevent alphabetical sorting of usage message
	compileCmd.Flags().SortFlags = false

	addSourceFlags(compileCmd)
	addCompilerFlags(compileCmd)
	compileCmd.Flags().Bool("bytecode", false, "print the full deployed bytecode")
	addLoggingFlags(compileCmd)

	rootCmd.AddCommand(compileCmd)
}

// cmdValidateCompileArgs makes sure that there are no positional arguments provided to the compile command
func cmdValidateCompileArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = fmt.Errorf("compile does not accept any positional arguments, only flags and their associated values")
		cmdLogger.Error("Failed to validate args to the compile command", err)
		return err
	}
	return nil
}

// cmdRunCompile executes the CLI compile command
func cmdRunCompile(cmd *cobra.Command, args []string) error {
	projectConfig, configPath, err := loadProjectConfig(cmd)
	if err == nil {
		err = updateProjectConfigWithSourceFlags(cmd, projectConfig)
	}
	if err == nil {
		err = updateProjectConfigWithCompilerFlags(cmd, projectConfig)
	}
	if err == nil {
		err = updateProjectConfigWithLoggingFlags(cmd, projectConfig)
	}
	if err == nil && projectConfig.Sources.RootFile == "" {
		err = errors.Errorf("a root source file must be provided")
	}
	if err == nil {
		err = projectConfig.Compilation.Validate()
	}
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	printBytecode, err := cmd.Flags().GetBool("bytecode")
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	if err = enterConfigDirectory(configPath); err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	closeLogs, err := setupLogging(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to set up logging", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	defer closeLogs()

	contractName := projectConfig.ResolvedContractName()
	_, extracted, err := verification.BuildUnit(projectConfig, contractName)
	if err != nil {
		cmdLogger.Error("Failed to flatten ", projectConfig.Sources.RootFile, err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Stop compiling on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := compilation.CompileFirst(ctx, platformConfig, extracted.Text, contractName)
	if err != nil {
		cmdLogger.Error("Failed to compile ", contractName, err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	for _, diagnostic := range result.Diagnostics {
		cmdLogger.Warn("Compiler ", diagnostic.Severity, ": ", diagnostic.String())
	}

	out := cmd.OutOrStdout()
	stripped := result.StrippedBytecode()
	fmt.Fprintf(out, "contract: %s\n", result.ContractName)
	fmt.Fprintf(out, "compiler: %s optimizer: %t (runs: %d)\n", result.CompilerVersion, result.OptimizerEnabled, result.OptimizerRuns)
	fmt.Fprintf(out, "length: %d (stripped: %d)\n", len(result.DeployedBytecode), len(stripped))
	fmt.Fprintf(out, "stripped code hash: %s\n", verification.CodeHash(stripped))
	if printBytecode {
		fmt.Fprintf(out, "bytecode: %s\n", utils.EncodeHexString(result.DeployedBytecode))
	}
	return nil
}
