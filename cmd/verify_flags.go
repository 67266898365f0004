package cmd

import (
	"fmt"

	"github.com/crytic/solverify/verification/config"
	"github.com/spf13/cobra"
)

// addVerifyFlags adds the various flags for the verify command
func addVerifyFlags() error {
	// Get the default project config and throw an error if we cant
	defaultConfig, err := config.GetDefaultProjectConfig(DefaultCompilationPlatform)
	if err != nil {
		return err
	}

	// Prevent alphabetical sorting of usage message
	verifyCmd.Flags().SortFlags = false

	// Config file, root file and contract
	addSourceFlags(verifyCmd)

	// Deployed contract
	verifyCmd.Flags().String("address", "", "address of the deployed contract")
	verifyCmd.Flags().String("rpc-url", "", "JSON-RPC endpoint the deployed code is fetched from")
	verifyCmd.Flags().String("block", "",
		fmt.Sprintf("block tag or hex block number the code is fetched at (unless a config file is provided, default is %q)", defaultConfig.Verification.BlockTag))
	verifyCmd.Flags().Int("rpc-timeout", 0,
		fmt.Sprintf("timeout of a single RPC call in seconds (unless a config file is provided, default is %d)", defaultConfig.Verification.RPCTimeout))
	verifyCmd.Flags().Int("rpc-attempts", 0,
		fmt.Sprintf("number of attempts for a failing RPC call (unless a config file is provided, default is %d)", defaultConfig.Verification.RPCAttempts))
	verifyCmd.Flags().String("cache-dir", "", "directory used to cache code fetched at pinned blocks")

	// Compiler configurations
	addCompilerFlags(verifyCmd)

	// Report
	verifyCmd.Flags().String("report-out", "", "path the verification report is written to")
	verifyCmd.Flags().String("report-format", "",
		fmt.Sprintf("format of the verification report, json or yaml (unless a config file is provided, default is %q)", defaultConfig.Verification.ReportFormat))

	// Logging
	addLoggingFlags(verifyCmd)
	return nil
}

// updateProjectConfigWithVerifyFlags will update the given projectConfig with any CLI arguments that were provided to
// the verify command
func updateProjectConfigWithVerifyFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	if err = updateProjectConfigWithSourceFlags(cmd, projectConfig); err != nil {
		return err
	}

	// Update the deployed contract
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
	if cmd.Flags().Changed("block") {
		projectConfig.Verification.BlockTag, err = cmd.Flags().GetString("block")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("rpc-timeout") {
		projectConfig.Verification.RPCTimeout, err = cmd.Flags().GetInt("rpc-timeout")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("rpc-attempts") {
		projectConfig.Verification.RPCAttempts, err = cmd.Flags().GetInt("rpc-attempts")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("cache-dir") {
		projectConfig.Verification.CacheDirectory, err = absFlagPath(cmd, "cache-dir")
		if err != nil {
			return err
		}
	}

	if err = updateProjectConfigWithCompilerFlags(cmd, projectConfig); err != nil {
		return err
	}

	// Update the report
	if cmd.Flags().Changed("report-out") {
		projectConfig.Verification.ReportPath, err = absFlagPath(cmd, "report-out")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("report-format") {
		projectConfig.Verification.ReportFormat, err = cmd.Flags().GetString("report-format")
		if err != nil {
			return err
		}
	}

	return updateProjectConfigWithLoggingFlags(cmd, projectConfig)
}
