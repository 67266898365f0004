package compilation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/crytic/solverify/compilation/platforms"
	"github.com/crytic/solverify/compilation/types"
	"github.com/crytic/solverify/logging"
	"github.com/crytic/solverify/logging/colors"
)

// Configuration describes a single (compiler version, optimizer setting) combination to compile with.
type Configuration struct {
	// Version describes the compiler version.
	Version string

	// Optimizer describes whether the optimizer is enabled.
	Optimizer bool
}

// String returns a printable representation of the configuration.
func (c Configuration) String() string {
	return fmt.Sprintf("solc %s (optimizer: %t)", c.Version, c.Optimizer)
}

// Configurations returns every combination of the platform's candidate versions and optimizer settings, ordered by
// version first and optimizer setting second.
func Configurations(ctx context.Context, platformConfig platforms.PlatformConfig) ([]Configuration, error) {
	versions, err := platformConfig.CandidateVersions(ctx)
	if err != nil {
		return nil, err
	}
	optimizerSettings := platformConfig.Settings().OptimizerSettings
	if len(optimizerSettings) == 0 {
		optimizerSettings = []bool{true}
	}

	configurations := make([]Configuration, 0, len(versions)*len(optimizerSettings))
	for _, version := range versions {
		for _, optimizer := range optimizerSettings {
			configurations = append(configurations, Configuration{Version: version, Optimizer: optimizer})
		}
	}
	return configurations, nil
}

// IsCandidateError returns a boolean indicating whether err only disqualifies the candidate configuration which
// produced it, in which case the next configuration may be tried.
func IsCandidateError(err error) bool {
	var compileErr *types.CompileError
	var noBytecodeErr *types.NoBytecodeError
	return errors.As(err, &compileErr) || errors.As(err, &noBytecodeErr)
}

// CompileFirst compiles unit under each configuration in order and returns the first successful result. Candidate
// errors are logged and the next configuration is tried. If every configuration fails, the last error is returned.
func CompileFirst(ctx context.Context, platformConfig platforms.PlatformConfig, unit string, target string) (*types.CompileResult, error) {
	logger := logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE)

	configurations, err := Configurations(ctx, platformConfig)
	if err != nil {
		return nil, err
	}
	if len(configurations) == 0 {
		return nil, fmt.Errorf("no compiler configurations to try")
	}

	var lastErr error
	for _, configuration := range configurations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := platformConfig.Compile(ctx, unit, target, configuration.Version, configuration.Optimizer)
		if err == nil {
			return result, nil
		}
		if !IsCandidateError(err) {
			return nil, err
		}
		logger.Warn("Compilation with ", colors.Bold, configuration.String(), colors.Reset, " failed: ", err)
		lastErr = err
	}
	return nil, lastErr
}

// normalizeConstraint rewrites a solidity version constraint into the syntax accepted by semver, where space separated
// ranges such as ">=0.8.0 <0.9.0" are written as ">=0.8.0, <0.9.0".
func normalizeConstraint(constraint string) string {
	parts := strings.Split(constraint, "||")
	for i, part := range parts {
		parts[i] = strings.Join(strings.Fields(part), ", ")
	}
	return strings.Join(parts, " || ")
}

// CheckPragmaCompatibility returns the candidate versions which do not satisfy the provided version pragma
// constraint, e.g. "^0.8.0" or ">=0.6.0 <0.9.0". An error is returned if the constraint cannot be parsed.
func CheckPragmaCompatibility(constraint string, versions []string) ([]string, error) {
	c, err := semver.NewConstraint(normalizeConstraint(constraint))
	if err != nil {
		return nil, fmt.Errorf("could not parse version pragma constraint '%s': %v", constraint, err)
	}

	incompatible := make([]string, 0)
	for _, version := range versions {
		v, err := semver.NewVersion(version)
		if err != nil || !c.Check(v) {
			incompatible = append(incompatible, version)
		}
	}
	return incompatible, nil
}

// WarnIncompatibleVersions logs a warning for every candidate version which does not satisfy the version pragma
// constraint. Constraints that cannot be parsed are logged at debug level and otherwise ignored.
func WarnIncompatibleVersions(constraint string, versions []string) {
	logger := logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE)
	if constraint == "" {
		return
	}

	incompatible, err := CheckPragmaCompatibility(constraint, versions)
	if err != nil {
		logger.Debug("Skipping version pragma check: ", err)
		return
	}
	for _, version := range incompatible {
		logger.Warn("Compiler version ", colors.Bold, version, colors.Reset, " does not satisfy the version pragma '",
			constraint, "'")
	}
}
