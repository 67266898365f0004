package platforms

import (
	"context"

	"github.com/crytic/solverify/compilation/types"
)

// PlatformConfig describes the interface all compilation platform configs must implement.
type PlatformConfig interface {
	// Platform returns the identifier of the platform.
	Platform() string

	// Settings returns the compiler settings shared by all platforms, which may be updated in place.
	Settings() *CompilerSettings

	// CandidateVersions returns the compiler versions to try, in order. If none are configured, the version of the
	// installed compiler is returned.
	CandidateVersions(ctx context.Context) ([]string, error)

	// Compile compiles the provided single-file unit with the given compiler version and optimizer setting, and
	// returns the deployed bytecode of the contract which best matches target.
	Compile(ctx context.Context, unit string, target string, version string, optimizer bool) (*types.CompileResult, error)
}
