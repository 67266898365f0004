package types

import (
	"encoding/json"
	"strings"
)

// Diagnostic describes a single error or warning reported by the compiler.
type Diagnostic struct {
	// Severity describes the severity reported by the compiler: "error", "warning" or "info".
	Severity string `json:"severity" yaml:"severity"`

	// Type describes the kind of diagnostic, e.g. "ParserError", "TypeError" or "Warning".
	Type string `json:"type" yaml:"type"`

	// Component describes the compiler component which produced the diagnostic.
	Component string `json:"component,omitempty" yaml:"component,omitempty"`

	// Message describes the short diagnostic message.
	Message string `json:"message" yaml:"message"`

	// FormattedMessage describes the diagnostic message along with the source excerpt it refers to.
	FormattedMessage string `json:"formattedMessage,omitempty" yaml:"formattedMessage,omitempty"`
}

// IsFatal returns a boolean indicating whether the diagnostic prevents the compilation from succeeding.
func (d Diagnostic) IsFatal() bool {
	return strings.EqualFold(d.Severity, "error")
}

// String returns a printable representation of the diagnostic, preferring the formatted message.
func (d Diagnostic) String() string {
	if d.FormattedMessage != "" {
		return strings.TrimSpace(d.FormattedMessage)
	}
	return d.Type + ": " + d.Message
}

// FatalDiagnostics returns the subset of the provided diagnostics which are fatal.
func FatalDiagnostics(diagnostics []Diagnostic) []Diagnostic {
	fatal := make([]Diagnostic, 0)
	for _, d := range diagnostics {
		if d.IsFatal() {
			fatal = append(fatal, d)
		}
	}
	return fatal
}

// CompileResult describes the output of compiling a single unit under a single compiler configuration.
type CompileResult struct {
	// CompilerVersion describes the version of the compiler which produced the result.
	CompilerVersion string

	// OptimizerEnabled describes whether the optimizer was enabled.
	OptimizerEnabled bool

	// OptimizerRuns describes the optimizer runs setting used.
	OptimizerRuns int

	// ContractName describes the name of the contract which was selected from the compiler output.
	ContractName string

	// DeployedBytecode describes the runtime bytecode of the selected contract.
	DeployedBytecode []byte

	// Abi describes the raw ABI of the selected contract.
	Abi json.RawMessage

	// Diagnostics describes the non-fatal diagnostics reported by the compiler.
	Diagnostics []Diagnostic
}

// StrippedBytecode returns the deployed bytecode with its metadata trailer removed.
func (r *CompileResult) StrippedBytecode() []byte {
	return StripMetadata(r.DeployedBytecode)
}
