package platforms

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/Masterminds/semver"
	"github.com/crytic/solverify/compilation/types"
	"github.com/crytic/solverify/logging"
)

// SolcJSCompilationConfig describes the configuration for compiling with the solcjs binary distributed through npm.
// A solcjs installation provides a single compiler version.
type SolcJSCompilationConfig struct {
	// SolcJSPath describes the solcjs binary to use.
	SolcJSPath string `json:"solcjsPath"`

	CompilerSettings
}

// NewSolcJSCompilationConfig returns a SolcJSCompilationConfig with default values.
func NewSolcJSCompilationConfig() *SolcJSCompilationConfig {
	return &SolcJSCompilationConfig{
		SolcJSPath:       "solcjs",
		CompilerSettings: NewCompilerSettings(),
	}
}

// Platform returns the platform identifier.
func (s *SolcJSCompilationConfig) Platform() string {
	return "solcjs"
}

// Settings returns the compiler settings.
func (s *SolcJSCompilationConfig) Settings() *CompilerSettings {
	return &s.CompilerSettings
}

// CandidateVersions returns the configured compiler versions, or the version of the solcjs installation if none are
// configured.
func (s *SolcJSCompilationConfig) CandidateVersions(ctx context.Context) ([]string, error) {
	return s.configuredVersions(func() (*semver.Version, error) {
		return GetSystemSolcVersion(ctx, s.solcJSPath())
	})
}

// Compile compiles the unit with solcjs using standard JSON input. Versions other than the installed one fail with a
// *types.CompileError.
func (s *SolcJSCompilationConfig) Compile(ctx context.Context, unit string, target string, version string, optimizer bool) (*types.CompileResult, error) {
	logger := logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE)

	installed, err := GetSystemSolcVersion(ctx, s.solcJSPath())
	if err != nil {
		return nil, &types.CompileError{Version: version, OptimizerEnabled: optimizer, Err: err}
	}
	if !sameVersion(installed.String(), version) {
		return nil, &types.CompileError{
			Version:          version,
			OptimizerEnabled: optimizer,
			Err:              fmt.Errorf("solcjs provides version %s only", installed.String()),
		}
	}

	input, err := NewStandardJSONInput(unit, s.CompilerSettings, optimizer)
	if err != nil {
		return nil, &types.CompileError{Version: version, OptimizerEnabled: optimizer, Err: err}
	}

	logger.Debug("Compiling with ", s.solcJSPath(), " (version: ", version, ", optimizer: ", optimizer, ")")
	return runStandardJSON(exec.CommandContext(ctx, s.solcJSPath(), "--standard-json"), input, target, version, optimizer, s.OptimizerRuns)
}

// solcJSPath returns the configured solcjs binary, or "solcjs" if none is configured.
func (s *SolcJSCompilationConfig) solcJSPath() string {
	if s.SolcJSPath == "" {
		return "solcjs"
	}
	return s.SolcJSPath
}
