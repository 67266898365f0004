package cmd

import (
	"github.com/crytic/solverify/verification/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Root file and deployed contract
	initCmd.Flags().String("root", "", RootFlagDescription)
	initCmd.Flags().String("contract", "", ContractFlagDescription)
	initCmd.Flags().String("address", "", "address of the deployed contract")
	initCmd.Flags().String("rpc-url", "", "JSON-RPC endpoint the deployed code is fetched from")

	// Compiler configurations
	initCmd.Flags().StringSlice("compiler-version", []string{}, "compiler version(s) to try, in order")
	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to
// the init command. Paths are stored as given, since the configuration file is read relative to its own directory.
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error
	if cmd.Flags().Changed("root") {
		projectConfig.Sources.RootFile, err = cmd.Flags().GetString("root")
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
	if cmd.Flags().Changed("address") {
		projectConfig.Verification.Address, err = cmd.Flags().GetString("address")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("rpc-url") {
		projectConfig.Verification.RPCEndpoint, err = cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
	}

	// Update the compiler versions of the platform config
	if cmd.Flags().Changed("compiler-version") {
		platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
		if err != nil {
			return err
		}
		platformConfig.Settings().CompilerVersions, err = cmd.Flags().GetStringSlice("compiler-version")
		if err != nil {
			return err
		}
		return projectConfig.Compilation.SetPlatformConfig(platformConfig)
	}
	return nil
}
