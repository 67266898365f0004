package platforms

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crytic/solverify/compilation/types"
	"github.com/crytic/solverify/utils"
	"golang.org/x/exp/slices"
)

// FlattenedSourceName describes the source name the flattened unit is submitted under.
const FlattenedSourceName = "Flattened.sol"

// standardJSONInput describes the Solidity standard JSON input accepted by solc and solcjs.
type standardJSONInput struct {
	Language string                        `json:"language"`
	Sources  map[string]standardJSONSource `json:"sources"`
	Settings standardJSONSettings          `json:"settings"`
}

// standardJSONSource describes a single source within standardJSONInput.
type standardJSONSource struct {
	Content string `json:"content"`
}

// standardJSONSettings describes the compiler settings within standardJSONInput.
type standardJSONSettings struct {
	Optimizer       standardJSONOptimizer          `json:"optimizer"`
	EvmVersion      string                         `json:"evmVersion,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// standardJSONOptimizer describes the optimizer settings within standardJSONSettings.
type standardJSONOptimizer struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// standardJSONOutput describes the parts of the Solidity standard JSON output that are used.
type standardJSONOutput struct {
	Errors    []types.Diagnostic                             `json:"errors"`
	Contracts map[string]map[string]standardJSONContractOutput `json:"contracts"`
}

// standardJSONContractOutput describes the output for a single contract within standardJSONOutput.
type standardJSONContractOutput struct {
	Abi json.RawMessage `json:"abi"`
	Evm struct {
		DeployedBytecode struct {
			Object string `json:"object"`
		} `json:"deployedBytecode"`
	} `json:"evm"`
}

// NewStandardJSONInput creates the standard JSON input which compiles unit as a single source, requesting only the
// deployed bytecode and ABI of every contract.
func NewStandardJSONInput(unit string, settings CompilerSettings, optimizer bool) ([]byte, error) {
	runs := settings.OptimizerRuns
	if runs <= 0 {
		runs = DefaultOptimizerRuns
	}

	input := standardJSONInput{
		Language: "Solidity",
		Sources: map[string]standardJSONSource{
			FlattenedSourceName: {Content: unit},
		},
		Settings: standardJSONSettings{
			Optimizer:  standardJSONOptimizer{Enabled: optimizer, Runs: runs},
			EvmVersion: settings.EvmVersion,
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {"evm.deployedBytecode.object", "abi"}},
			},
		},
	}
	return json.Marshal(input)
}

// ParseStandardJSONOutput parses standard JSON output and selects the contract which best matches target: an exact
// name match, then the first name containing target, then the first name in sorted order. Returns a
// *types.CompileError if the compiler reported fatal diagnostics or the bytecode is unusable, and a
// *types.NoBytecodeError if the selected contract has no deployed bytecode.
func ParseStandardJSONOutput(output []byte, target string, version string, optimizer bool, runs int) (*types.CompileResult, error) {
	var parsed standardJSONOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, &types.CompileError{
			Version:          version,
			OptimizerEnabled: optimizer,
			Err:              fmt.Errorf("could not parse compiler output: %v", err),
		}
	}

	// Fatal diagnostics fail the compilation, the rest are kept on the result
	if fatal := types.FatalDiagnostics(parsed.Errors); len(fatal) > 0 {
		return nil, &types.CompileError{Version: version, OptimizerEnabled: optimizer, Diagnostics: fatal}
	}

	contracts := parsed.Contracts[FlattenedSourceName]
	if len(contracts) == 0 {
		// Fall back to whatever source the compiler reported
		for _, sourceContracts := range parsed.Contracts {
			if contracts == nil {
				contracts = make(map[string]standardJSONContractOutput)
			}
			for name, contract := range sourceContracts {
				contracts[name] = contract
			}
		}
	}
	if len(contracts) == 0 {
		return nil, &types.CompileError{
			Version:          version,
			OptimizerEnabled: optimizer,
			Err:              fmt.Errorf("compiler output contains no contracts"),
		}
	}

	names := make([]string, 0, len(contracts))
	for name := range contracts {
		names = append(names, name)
	}
	selected := SelectContractName(names, target)
	contract := contracts[selected]

	object := strings.TrimSpace(contract.Evm.DeployedBytecode.Object)
	if object == "" || object == "0x" {
		return nil, &types.NoBytecodeError{ContractName: selected, Version: version}
	}
	if strings.Contains(object, "__") {
		return nil, &types.CompileError{
			Version:          version,
			OptimizerEnabled: optimizer,
			Err:              fmt.Errorf("deployed bytecode of contract '%s' contains unlinked library placeholders", selected),
		}
	}
	bytecode, err := utils.DecodeHexString(object)
	if err != nil {
		return nil, &types.CompileError{Version: version, OptimizerEnabled: optimizer, Err: err}
	}

	return &types.CompileResult{
		CompilerVersion:  version,
		OptimizerEnabled: optimizer,
		OptimizerRuns:    runs,
		ContractName:     selected,
		DeployedBytecode: bytecode,
		Abi:              contract.Abi,
		Diagnostics:      parsed.Errors,
	}, nil
}

// SelectContractName selects the name which best matches target from the provided contract names: an exact match,
// then the first name (in sorted order) containing target, then the first name in sorted order. Returns an empty
// string if no names are provided.
func SelectContractName(names []string, target string) string {
	if len(names) == 0 {
		return ""
	}
	sorted := slices.Clone(names)
	slices.Sort(sorted)

	if slices.Contains(sorted, target) {
		return target
	}
	if target != "" {
		for _, name := range sorted {
			if strings.Contains(name, target) {
				return name
			}
		}
	}
	return sorted[0]
}
