package verification

import (
	"fmt"
	"strings"

	"github.com/crytic/solverify/compilation"
	"github.com/crytic/solverify/logging"
	"github.com/crytic/solverify/logging/colors"
)

// Attempt describes a single compiler configuration tried during a verification run.
type Attempt struct {
	// CompilerVersion describes the compiler version that was used.
	CompilerVersion string `json:"compilerVersion" yaml:"compilerVersion"`

	// OptimizerEnabled describes whether the optimizer was enabled.
	OptimizerEnabled bool `json:"optimizerEnabled" yaml:"optimizerEnabled"`

	// ContractName describes the contract selected from the compiler output, if compilation succeeded.
	ContractName string `json:"contractName,omitempty" yaml:"contractName,omitempty"`

	// LocalLength and LocalStrippedLength describe the length of the compiled bytecode before and after stripping.
	LocalLength         int `json:"localLength" yaml:"localLength"`
	LocalStrippedLength int `json:"localStrippedLength" yaml:"localStrippedLength"`

	// Matched describes whether the compiled bytecode matched the on-chain bytecode.
	Matched bool `json:"matched" yaml:"matched"`

	// Error describes why the configuration failed to produce bytecode, if it did.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Configuration returns the compiler configuration the attempt was made with.
func (a Attempt) Configuration() compilation.Configuration {
	return compilation.Configuration{Version: a.CompilerVersion, Optimizer: a.OptimizerEnabled}
}

// Outcome describes the result of a verification run. It is created once per run and not modified afterward.
type Outcome struct {
	// RunID describes the unique identifier of the run.
	RunID string `json:"runId" yaml:"runId"`

	// Address describes the address of the deployed contract.
	Address string `json:"address" yaml:"address"`

	// BlockTag describes the block the on-chain code was fetched at.
	BlockTag string `json:"blockTag" yaml:"blockTag"`

	// Matched describes whether any configuration produced bytecode identical to the on-chain bytecode.
	Matched bool `json:"matched" yaml:"matched"`

	// CompilerVersion and OptimizerEnabled describe the matching configuration or, if none matched, the last
	// configuration attempted.
	CompilerVersion  string `json:"compilerVersion" yaml:"compilerVersion"`
	OptimizerEnabled bool   `json:"optimizerEnabled" yaml:"optimizerEnabled"`

	// ContractName describes the contract that was requested.
	ContractName string `json:"contractName" yaml:"contractName"`

	// SelectedContract describes the contract selected from the compiler output for the reported comparison.
	SelectedContract string `json:"selectedContract,omitempty" yaml:"selectedContract,omitempty"`

	// ContractFound describes whether the requested contract was found in the flattened source. If it was not, the
	// whole flattened unit was compiled.
	ContractFound bool `json:"contractFound" yaml:"contractFound"`

	// EmbeddedCompilerVersion describes the compiler version recorded in the on-chain metadata trailer, if any.
	EmbeddedCompilerVersion string `json:"embeddedCompilerVersion,omitempty" yaml:"embeddedCompilerVersion,omitempty"`

	// EmbeddedMetadataHash describes the hex-encoded source metadata hash (ipfs or bzzr) recorded in the on-chain
	// metadata trailer, if any.
	EmbeddedMetadataHash string `json:"embeddedMetadataHash,omitempty" yaml:"embeddedMetadataHash,omitempty"`

	// Comparison describes the comparison of the matching configuration or, if none matched, of the last
	// configuration attempted. Its local fields are zero if that configuration produced no bytecode.
	Comparison *Comparison `json:"comparison" yaml:"comparison"`

	// Attempts describes every configuration tried, in order.
	Attempts []Attempt `json:"attempts" yaml:"attempts"`

	// Diagnostics describes the compiler errors and warnings gathered during the run.
	Diagnostics []string `json:"diagnostics" yaml:"diagnostics"`
}

// String returns a human-readable summary of the outcome.
func (o *Outcome) String() string {
	var b strings.Builder
	if o.Matched {
		b.WriteString("MATCH: yes\n")
	} else {
		b.WriteString("MATCH: no\n")
	}
	fmt.Fprintf(&b, "address: %s (block: %s)\n", o.Address, o.BlockTag)
	fmt.Fprintf(&b, "compiler: %s optimizer: %t contract: %s\n", o.CompilerVersion, o.OptimizerEnabled, o.contractLabel())
	if o.Comparison != nil {
		fmt.Fprintf(&b, "on-chain length: %d (stripped: %d)\n", o.Comparison.OnchainLength, o.Comparison.OnchainStrippedLength)
		fmt.Fprintf(&b, "local length: %d (stripped: %d)\n", o.Comparison.LocalLength, o.Comparison.LocalStrippedLength)
		if !o.Matched {
			fmt.Fprintf(&b, "common prefix: %d bytes (ratio: %s)\n", o.Comparison.CommonPrefixLength, o.Comparison.MatchRatio.String())
		}
	}
	if !o.Matched {
		versions := make([]string, 0, len(o.Attempts))
		for _, attempt := range o.Attempts {
			versions = append(versions, attempt.Configuration().String())
		}
		fmt.Fprintf(&b, "tried: %s\n", strings.Join(versions, ", "))
	}
	if o.EmbeddedCompilerVersion != "" {
		fmt.Fprintf(&b, "embedded compiler version: %s\n", o.EmbeddedCompilerVersion)
	}
	if o.EmbeddedMetadataHash != "" {
		fmt.Fprintf(&b, "embedded metadata hash: %s\n", o.EmbeddedMetadataHash)
	}
	return b.String()
}

// Log emits the outcome through the provided logger, along with its diagnostics when the run did not match.
func (o *Outcome) Log(logger *logging.Logger) {
	info := logging.StructuredLogInfo{"runId": o.RunID, "address": o.Address, "matched": o.Matched}
	if o.Matched {
		logger.Info(colors.GreenBold, "Bytecode matches", colors.Reset, " for ", colors.Bold, o.Address, colors.Reset,
			" (compiler: ", o.CompilerVersion, ", optimizer: ", o.OptimizerEnabled, ", contract: ", o.contractLabel(), ")",
			info)
		return
	}

	logger.Error(colors.RedBold, "Bytecode does not match", colors.Reset, " for ", colors.Bold, o.Address,
		colors.Reset, " after ", len(o.Attempts), " attempt(s)", info)
	for _, diagnostic := range o.Diagnostics {
		logger.Warn(diagnostic)
	}
	if !o.ContractFound {
		logger.Warn("Contract '", o.ContractName, "' was not found in the flattened source, the whole unit was compiled")
	}
}

// contractLabel returns the contract name to display, preferring the contract selected from compiler output.
func (o *Outcome) contractLabel() string {
	if o.SelectedContract != "" {
		return o.SelectedContract
	}
	return o.ContractName
}
