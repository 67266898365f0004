package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/crytic/solverify/compilation"
	"github.com/crytic/solverify/logging"
	"github.com/crytic/solverify/logging/colors"
	"github.com/crytic/solverify/utils"
	"github.com/crytic/solverify/verification/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cmdValidFlagArgs will return which flags are valid for dynamic completion for a command that accepts no positional
// arguments.
func cmdValidFlagArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			// The "--" prefix marks each suggestion as a flag rather than a positional argument
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// loadProjectConfig navigates through the following possibilities:
// #1: We will search for either a custom config file (via --config) or the default (solverify.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If solverify.json can't be found, use the default project configuration.
// The returned path is the config file path, even if no file was read.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, string, error) {
	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, "", err
	}

	// If --config was not used, look for `solverify.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err := config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, "", err
		}
		return projectConfig, configPath, nil
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed {
		return nil, "", existenceError
	}

	// Possibility #3: --config flag was not used and solverify.json was not found, so use the default project config
	cmdLogger.Debug(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration for the "+
		"%v compilation platform instead", configPath, DefaultCompilationPlatform))
	projectConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	if err != nil {
		return nil, "", err
	}
	return projectConfig, configPath, nil
}

// enterConfigDirectory changes the working directory to the parent directory of the project configuration file, as
// paths in the configuration file are relative to it. Paths provided through flags have already been made absolute.
func enterConfigDirectory(configPath string) error {
	return os.Chdir(filepath.Dir(configPath))
}

// addSourceFlags adds the flags which describe the root source file and the contract within it.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file")
	cmd.Flags().String("root", "", RootFlagDescription)
	cmd.Flags().String("contract", "", ContractFlagDescription)
	cmd.Flags().String("dependency-root", "",
		"directory package imports are resolved against (unless a config file is provided, default is the node_modules directory next to the root file)")
	cmd.Flags().Bool("strict-contract", false,
		"fail if the contract cannot be found in the flattened source instead of compiling the whole unit")
}

// updateProjectConfigWithSourceFlags will update the given projectConfig with any source-related CLI arguments.
func updateProjectConfigWithSourceFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Paths provided on the command line are relative to the invocation directory, not the config directory
	if cmd.Flags().Changed("root") {
		projectConfig.Sources.RootFile, err = absFlagPath(cmd, "root")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("dependency-root") {
		projectConfig.Sources.DependencyRoot, err = absFlagPath(cmd, "dependency-root")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("contract") {
		projectConfig.Verification.ContractName, err = cmd.Flags().GetString("contract")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("strict-contract") {
		projectConfig.Verification.StrictContractMatch, err = cmd.Flags().GetBool("strict-contract")
		if err != nil {
			return err
		}
	}
	return nil
}

// addCompilerFlags adds the flags which describe the compiler configurations to try.
func addCompilerFlags(cmd *cobra.Command) {
	cmd.Flags().String("platform", "",
		fmt.Sprintf("compilation platform to use (unless a config file is provided, default is %q)", DefaultCompilationPlatform))
	cmd.Flags().StringSlice("compiler-version", []string{},
		"compiler version(s) to try, in order (unless a config file is provided, default is the installed compiler)")
	cmd.Flags().BoolSlice("optimizer-settings", []bool{},
		"optimizer settings to try for every compiler version, in order (unless a config file is provided, default is true)")
	cmd.Flags().Int("optimizer-runs", 0, "optimizer runs setting (unless a config file is provided, default is 200)")
}

// updateProjectConfigWithCompilerFlags will update the given projectConfig with any compiler-related CLI arguments.
func updateProjectConfigWithCompilerFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	// A platform switch starts from that platform's defaults
	if cmd.Flags().Changed("platform") {
		platform, err := cmd.Flags().GetString("platform")
		if err != nil {
			return err
		}
		projectConfig.Compilation, err = compilation.NewCompilationConfig(platform)
		if err != nil {
			return err
		}
	}

	platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
	if err != nil {
		return err
	}
	settings := platformConfig.Settings()

	if cmd.Flags().Changed("compiler-version") {
		settings.CompilerVersions, err = cmd.Flags().GetStringSlice("compiler-version")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("optimizer-settings") {
		settings.OptimizerSettings, err = cmd.Flags().GetBoolSlice("optimizer-settings")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("optimizer-runs") {
		settings.OptimizerRuns, err = cmd.Flags().GetInt("optimizer-runs")
		if err != nil {
			return err
		}
	}
	return projectConfig.Compilation.SetPlatformConfig(platformConfig)
}

// addLoggingFlags adds the flags which describe how logs are emitted.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().String("log-level", "", "log level: trace, debug, info, warn or error (unless a config file is provided, default is info)")
	cmd.Flags().String("log-dir", "", "directory structured log files are written to")
	cmd.Flags().Bool("no-color", false, "disable colored console output")
}

// updateProjectConfigWithLoggingFlags will update the given projectConfig with any logging-related CLI arguments.
func updateProjectConfigWithLoggingFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	if cmd.Flags().Changed("log-level") {
		levelStr, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		level, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return err
		}
		projectConfig.Logging.Level = level
	}
	if cmd.Flags().Changed("log-dir") {
		logDirectory, err := absFlagPath(cmd, "log-dir")
		if err != nil {
			return err
		}
		projectConfig.Logging.LogDirectory = logDirectory
	}
	if cmd.Flags().Changed("no-color") {
		noColor, err := cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
		projectConfig.Logging.NoColor = noColor
	}
	return nil
}

// setupLogging instantiates the global logger from the logging configuration: console output to stdout, and a
// structured log file if a log directory is configured. The returned function closes the log file, if any.
func setupLogging(loggingConfig config.LoggingConfig) (func(), error) {
	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level)

	// Console output, optionally without ANSI coloring
	if loggingConfig.NoColor {
		colors.DisableColor()
		cmdLogger.RemoveWriter(os.Stdout, logging.UNSTRUCTURED, true)
		cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, false)
	}
	cmdLogger.SetLevel(loggingConfig.Level)
	logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !loggingConfig.NoColor)

	if loggingConfig.LogDirectory == "" {
		return func() {}, nil
	}

	// Filename will be the "log-current_unix_timestamp.log"
	filename := "log-" + strconv.FormatInt(time.Now().Unix(), 10) + ".log"
	file, err := utils.CreateFile(loggingConfig.LogDirectory, filename)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
	cmdLogger.AddWriter(file, logging.STRUCTURED, false)

	return func() {
		logging.GlobalLogger.RemoveWriter(file, logging.STRUCTURED, false)
		cmdLogger.RemoveWriter(file, logging.STRUCTURED, false)
		_ = file.Close()
	}, nil
}

// absFlagPath returns the value of a path flag made absolute against the invocation directory.
func absFlagPath(cmd *cobra.Command, name string) (string, error) {
	path, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", err
	}
	return filepath.Abs(path)
}
