package config

import (
	"time"

	"github.com/crytic/solverify/chain/rpc"
	"github.com/crytic/solverify/compilation"
	"github.com/crytic/solverify/sources"
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default configuration for a project. It populates a default compilation config
// based on the provided platform, or the solc platform if an empty string is provided.
func GetDefaultProjectConfig(platform string) (*ProjectConfig, error) {
	if platform == "" {
		platform = "solc"
	}
	compilationConfig, err := compilation.NewCompilationConfig(platform)
	if err != nil {
		return nil, err
	}

	packagePrefixes := make([]string, len(sources.DefaultPackagePrefixes))
	copy(packagePrefixes, sources.DefaultPackagePrefixes)

	// Create a project configuration
	projectConfig := &ProjectConfig{
		Sources: SourcesConfig{
			RootFile:        "",
			DependencyRoot:  "",
			PackagePrefixes: packagePrefixes,
			MaxImportDepth:  sources.DefaultMaxImportDepth,
		},
		Verification: VerificationConfig{
			Address:             "",
			RPCEndpoint:         "",
			BlockTag:            rpc.DefaultBlockTag,
			RPCTimeout:          int(rpc.DefaultTimeout / time.Second),
			RPCAttempts:         1,
			ContractName:        "",
			StrictContractMatch: false,
			CacheDirectory:      "",
			ReportPath:          "",
			ReportFormat:        ReportFormatJSON,
		},
		Compilation: compilationConfig,
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}

	return projectConfig, nil
}
