package types

import (
	"fmt"
	"strings"
)

// CompileError describes a failed compilation under a single compiler configuration. It is returned when the compiler
// could not be run, when it reported fatal diagnostics, or when its output could not be used.
type CompileError struct {
	// Version describes the compiler version that was used.
	Version string

	// OptimizerEnabled describes whether the optimizer was enabled.
	OptimizerEnabled bool

	// Diagnostics describes the fatal diagnostics reported by the compiler, if any.
	Diagnostics []Diagnostic

	// Err describes the underlying cause when the failure was not reported as diagnostics.
	Err error
}

// Error returns the error message.
func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "compilation failed (version: %s, optimizer: %t)", e.Version, e.OptimizerEnabled)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, d := range e.Diagnostics {
		b.WriteString("\n")
		b.WriteString(d.String())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// NoBytecodeError describes a compilation which succeeded but where the selected declaration has no deployed
// bytecode, as is the case for interfaces and abstract contracts.
type NoBytecodeError struct {
	// ContractName describes the declaration that was selected.
	ContractName string

	// Version describes the compiler version that was used.
	Version string
}

// Error returns the error message.
func (e *NoBytecodeError) Error() string {
	return fmt.Sprintf("contract '%s' has no deployed bytecode (compiler version %s)", e.ContractName, e.Version)
}
