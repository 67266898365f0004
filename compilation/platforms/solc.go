package platforms

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver"
	"github.com/crytic/solverify/compilation/types"
	"github.com/crytic/solverify/logging"
	"github.com/crytic/solverify/utils"
)

// solcVersionPattern matches the release version reported by `solc --version` and `solcjs --version`.
var solcVersionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// SolcCompilationConfig describes the configuration for compiling with a native solc binary.
type SolcCompilationConfig struct {
	// SolcPath describes the solc binary used when no version-specific binary can be found.
	SolcPath string `json:"solcPath"`

	// ArtifactsDirectory describes a solc-select style directory holding version-specific binaries at
	// <dir>/solc-<version>/solc-<version>. If empty, ~/.solc-select/artifacts is used.
	ArtifactsDirectory string `json:"artifactsDirectory"`

	CompilerSettings
}

// NewSolcCompilationConfig returns a SolcCompilationConfig with default values.
func NewSolcCompilationConfig() *SolcCompilationConfig {
	return &SolcCompilationConfig{
		SolcPath:         "solc",
		CompilerSettings: NewCompilerSettings(),
	}
}

// Platform returns the platform identifier.
func (s *SolcCompilationConfig) Platform() string {
	return "solc"
}

// Settings returns the compiler settings.
func (s *SolcCompilationConfig) Settings() *CompilerSettings {
	return &s.CompilerSettings
}

// GetSystemSolcVersion runs `<binary> --version` and parses the compiler version out of its output.
func GetSystemSolcVersion(ctx context.Context, binary string) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, binary, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("error while executing %s:\nOUTPUT:\n%s\nERROR: %s\n", binary, string(out), err.Error())
	}

	versionStr := solcVersionPattern.FindString(string(out))
	if versionStr == "" {
		return nil, fmt.Errorf("could not parse compiler version using '%s --version'", binary)
	}
	return semver.NewVersion(versionStr)
}

// CandidateVersions returns the configured compiler versions, or the version of the configured solc binary if none
// are configured.
func (s *SolcCompilationConfig) CandidateVersions(ctx context.Context) ([]string, error) {
	return s.configuredVersions(func() (*semver.Version, error) {
		return GetSystemSolcVersion(ctx, s.solcPath())
	})
}

// ResolveBinary locates a solc binary for the provided version. In order, it tries `solc-<version>` on PATH, the
// solc-select artifacts directory, and finally the configured solc binary if it reports the requested version.
func (s *SolcCompilationConfig) ResolveBinary(ctx context.Context, version string) (string, error) {
	versionedName := "solc-" + version
	if path, err := exec.LookPath(versionedName); err == nil {
		return path, nil
	}

	if artifactsDir := s.artifactsDirectory(); artifactsDir != "" {
		candidate := filepath.Join(artifactsDir, versionedName, versionedName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	installed, err := GetSystemSolcVersion(ctx, s.solcPath())
	if err != nil {
		return "", err
	}
	if !sameVersion(installed.String(), version) {
		return "", fmt.Errorf("no solc binary found for version %s (installed: %s)", version, installed.String())
	}
	return s.solcPath(), nil
}

// Compile compiles the unit with solc using standard JSON input.
func (s *SolcCompilationConfig) Compile(ctx context.Context, unit string, target string, version string, optimizer bool) (*types.CompileResult, error) {
	logger := logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE)

	binary, err := s.ResolveBinary(ctx, version)
	if err != nil {
		return nil, &types.CompileError{Version: version, OptimizerEnabled: optimizer, Err: err}
	}
	input, err := NewStandardJSONInput(unit, s.CompilerSettings, optimizer)
	if err != nil {
		return nil, &types.CompileError{Version: version, OptimizerEnabled: optimizer, Err: err}
	}

	logger.Debug("Compiling with ", binary, " (version: ", version, ", optimizer: ", optimizer, ")")
	return runStandardJSON(exec.CommandContext(ctx, binary, "--standard-json"), input, target, version, optimizer, s.OptimizerRuns)
}

// solcPath returns the configured solc binary, or "solc" if none is configured.
func (s *SolcCompilationConfig) solcPath() string {
	if s.SolcPath == "" {
		return "solc"
	}
	return s.SolcPath
}

// artifactsDirectory returns the configured artifacts directory, or the solc-select default.
func (s *SolcCompilationConfig) artifactsDirectory() string {
	if s.ArtifactsDirectory != "" {
		return s.ArtifactsDirectory
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".solc-select", "artifacts")
}

// runStandardJSON feeds standard JSON input to the provided command and parses its output.
func runStandardJSON(cmd *exec.Cmd, input []byte, target string, version string, optimizer bool, runs int) (*types.CompileResult, error) {
	stdout, _, combined, err := utils.RunCommandWithInput(cmd, input)
	if err != nil {
		var exitErr *exec.ExitError
		// solc exits non-zero for some invalid inputs while still emitting standard JSON diagnostics
		if !errors.As(err, &exitErr) || len(stdout) == 0 {
			return nil, &types.CompileError{
				Version:          version,
				OptimizerEnabled: optimizer,
				Err:              fmt.Errorf("error while executing %s:\n%s\n\nCommand Output:\n%s\n", cmd.Path, err.Error(), string(combined)),
			}
		}
	}
	if runs <= 0 {
		runs = DefaultOptimizerRuns
	}
	return ParseStandardJSONOutput(stdout, target, version, optimizer, runs)
}
