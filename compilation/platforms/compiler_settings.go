package platforms

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// DefaultOptimizerRuns describes the optimizer runs setting used when none is configured.
const DefaultOptimizerRuns = 200

// CompilerSettings describes the compiler options shared by every compilation platform.
type CompilerSettings struct {
	// CompilerVersions describes the compiler versions to try, in order. If empty, the installed compiler is used.
	CompilerVersions []string `json:"compilerVersions"`

	// OptimizerSettings describes the optimizer settings to try for every compiler version, in order.
	OptimizerSettings []bool `json:"optimizerSettings"`

	// OptimizerRuns describes the optimizer runs setting.
	OptimizerRuns int `json:"optimizerRuns"`

	// EvmVersion describes the EVM version to target. If empty, the compiler default is used.
	EvmVersion string `json:"evmVersion,omitempty"`
}

// NewCompilerSettings returns CompilerSettings with default values: the installed compiler, with the optimizer
// enabled at 200 runs.
func NewCompilerSettings() CompilerSettings {
	return CompilerSettings{
		CompilerVersions:  []string{},
		OptimizerSettings: []bool{true},
		OptimizerRuns:     DefaultOptimizerRuns,
	}
}

// Validate returns an error if the settings are invalid.
func (s *CompilerSettings) Validate() error {
	for _, v := range s.CompilerVersions {
		if _, err := semver.NewVersion(v); err != nil {
			return fmt.Errorf("compiler version '%s' is not a valid version: %v", v, err)
		}
	}
	if len(s.OptimizerSettings) == 0 {
		return fmt.Errorf("at least one optimizer setting must be provided")
	}
	if s.OptimizerRuns <= 0 {
		return fmt.Errorf("optimizer runs must be greater than zero")
	}
	return nil
}

// configuredVersions returns the configured compiler versions or, if none are configured, the provided installed
// version.
func (s *CompilerSettings) configuredVersions(installed func() (*semver.Version, error)) ([]string, error) {
	if len(s.CompilerVersions) > 0 {
		versions := make([]string, len(s.CompilerVersions))
		copy(versions, s.CompilerVersions)
		return versions, nil
	}
	v, err := installed()
	if err != nil {
		return nil, err
	}
	return []string{v.String()}, nil
}

// sameVersion returns a boolean indicating whether two version strings describe the same release.
func sameVersion(a string, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return va.Equal(vb)
}
