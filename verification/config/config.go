package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/crytic/solverify/compilation"
	"github.com/crytic/solverify/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	// ReportFormatJSON describes a report written as JSON.
	ReportFormatJSON = "json"

	// ReportFormatYAML describes a report written as YAML.
	ReportFormatYAML = "yaml"
)

// ProjectConfig describes the configuration of a verification run.
type ProjectConfig struct {
	// Sources describes how the root source file and its imports are located.
	Sources SourcesConfig `json:"sources"`

	// Verification describes the deployed contract and how it is compared.
	Verification VerificationConfig `json:"verification"`

	// Compilation describes the configuration used to compile the flattened unit.
	Compilation *compilation.CompilationConfig `json:"compilation"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging"`
}

// SourcesConfig describes the configuration options used to resolve and flatten sources.
type SourcesConfig struct {
	// RootFile describes the path of the root contract source file.
	RootFile string `json:"rootFile"`

	// DependencyRoot describes the directory package-style imports are resolved against. If empty, the node_modules
	// directory next to the root file is used.
	DependencyRoot string `json:"dependencyRoot"`

	// PackagePrefixes describes the import prefixes which are resolved against DependencyRoot.
	PackagePrefixes []string `json:"packagePrefixes"`

	// MaxImportDepth describes the maximum length of an import chain.
	MaxImportDepth int `json:"maxImportDepth"`
}

// VerificationConfig describes the configuration options used to fetch and compare the deployed contract.
type VerificationConfig struct {
	// Address describes the address of the deployed contract.
	Address string `json:"address"`

	// RPCEndpoint describes the JSON-RPC endpoint code is fetched from.
	RPCEndpoint string `json:"rpcUrl"`

	// BlockTag describes the block the code is fetched at, e.g. "latest" or a hex block number.
	BlockTag string `json:"blockTag"`

	// RPCTimeout describes the timeout of a single RPC call, in seconds.
	RPCTimeout int `json:"rpcTimeout"`

	// RPCAttempts describes how many times a failed RPC call is attempted. A value of one disables retries.
	RPCAttempts int `json:"rpcAttempts"`

	// ContractName describes the contract to extract and compare. If empty, the root file's name without its
	// extension is used.
	ContractName string `json:"contractName"`

	// StrictContractMatch describes whether a contract name that cannot be found in the flattened source fails the
	// run, rather than compiling the whole flattened unit.
	StrictContractMatch bool `json:"strictContractMatch"`

	// CacheDirectory describes the directory of the persistent code cache. If empty, no code is persisted.
	CacheDirectory string `json:"cacheDirectory"`

	// ReportPath describes the file the verification report is written to. If empty, no report file is written.
	ReportPath string `json:"reportPath"`

	// ReportFormat describes the format of the report file: "json" or "yaml".
	ReportFormat string `json:"reportFormat"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor describes whether console output should be uncolored.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Fields absent from the
// file keep their default values.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration
	projectConfig, err := GetDefaultProjectConfig("")
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	return utils.WriteFileCreatingDirectory(path, b)
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	if p.Sources.RootFile == "" {
		return errors.Errorf("a root source file must be provided")
	}
	if p.Sources.MaxImportDepth <= 0 {
		return errors.Errorf("max import depth must be a positive number")
	}

	// Verify that the address is well-formed
	if _, err := utils.HexStringToAddress(p.Verification.Address); err != nil {
		return errors.Errorf("malformed contract address '%s'", p.Verification.Address)
	}
	if p.Verification.RPCEndpoint == "" {
		return errors.Errorf("an rpc url must be provided")
	}
	if p.Verification.RPCTimeout <= 0 {
		return errors.Errorf("rpc timeout must be a positive number")
	}
	if p.Verification.RPCAttempts <= 0 {
		return errors.Errorf("rpc attempts must be a positive number")
	}
	if p.Verification.BlockTag == "" {
		return errors.Errorf("a block tag must be provided")
	}
	if p.Verification.ReportFormat != ReportFormatJSON && p.Verification.ReportFormat != ReportFormatYAML {
		return errors.Errorf("report format must be '%s' or '%s'", ReportFormatJSON, ReportFormatYAML)
	}

	// Verify the compilation config
	if p.Compilation == nil {
		return errors.Errorf("a compilation config must be provided")
	}
	return p.Compilation.Validate()
}

// ResolvedContractName returns the configured contract name, or the root file's name without its extension.
func (p *ProjectConfig) ResolvedContractName() string {
	if p.Verification.ContractName != "" {
		return p.Verification.ContractName
	}
	base := filepath.Base(p.Sources.RootFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ResolvedDependencyRoot returns the configured dependency root, or the node_modules directory next to the root file.
func (p *ProjectConfig) ResolvedDependencyRoot() string {
	if p.Sources.DependencyRoot != "" {
		return p.Sources.DependencyRoot
	}
	return filepath.Join(filepath.Dir(p.Sources.RootFile), "node_modules")
}

// RPCTimeoutDuration returns the RPC timeout as a time.Duration.
func (p *ProjectConfig) RPCTimeoutDuration() time.Duration {
	return time.Duration(p.Verification.RPCTimeout) * time.Second
}
