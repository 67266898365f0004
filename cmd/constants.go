package cmd

// DefaultProjectConfigFilename describes the default config filename for a given project folder.
const DefaultProjectConfigFilename = "solverify.json"

// DefaultCompilationPlatform describes the default compilation platform to use if one is not provided
const DefaultCompilationPlatform = "solc"

// RootFlagDescription describes the help text for the --root flag
const RootFlagDescription = "path to the root contract source file"

// ContractFlagDescription describes the help text for the --contract flag
const ContractFlagDescription = "name of the contract to verify (unless a config file is provided, default is the root file name)"
