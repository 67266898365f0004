package verification

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/solverify/chain/rpc"
	"github.com/crytic/solverify/compilation/platforms"
	"github.com/crytic/solverify/compilation/types"
	"github.com/crytic/solverify/sources"
	"github.com/crytic/solverify/utils"
	"github.com/crytic/solverify/verification/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreAnyFunction("internal/poll.runtime_pollWait"),
	)
}

// testAddress describes the contract address used by the tests.
const testAddress = "0xa5A750f3eF47fc35e5c1Af2c54C1182Abb392125"

// vaultBody describes the stripped runtime bytecode shared by the fixtures.
var vaultBody = []byte{0x60, 0x80, 0x60, 0x40, 0x52, 0x34, 0x80, 0x15, 0x60, 0x0f, 0x57, 0x5f, 0x80, 0xfd}

// scriptedCompiler is a platforms.PlatformConfig which returns a scripted result or error per compiler version, and
// records the units it was asked to compile.
type scriptedCompiler struct {
	settings platforms.CompilerSettings
	results  map[string][]byte
	errs     map[string]error
	units    []string
}

func (p *scriptedCompiler) Platform() string                       { return "scripted" }
func (p *scriptedCompiler) Settings() *platforms.CompilerSettings { return &p.settings }
func (p *scriptedCompiler) CandidateVersions(ctx context.Context) ([]string, error) {
	return p.settings.CompilerVersions, nil
}
func (p *scriptedCompiler) Compile(ctx context.Context, unit string, target string, version string, optimizer bool) (*types.CompileResult, error) {
	p.units = append(p.units, unit)
	if err, ok := p.errs[version]; ok {
		return nil, err
	}
	return &types.CompileResult{
		CompilerVersion:  version,
		OptimizerEnabled: optimizer,
		ContractName:     target,
		DeployedBytecode: p.results[version],
		Diagnostics:      []types.Diagnostic{{Severity: "warning", Type: "Warning", Message: "unused variable"}},
	}, nil
}

// newCodeNode starts a JSON-RPC server answering eth_getCode with the provided result. A nil result answers null.
func newCodeNode(t *testing.T, code []byte) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		var result any
		if code != nil {
			result = utils.EncodeHexString(code)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(server.Close)
	return server
}

// writeProject writes a root file importing a package-style dependency, and returns its path.
func writeProject(t *testing.T) string {
	dir := t.TempDir()
	files := map[string]string{
		"Vault.sol": "// SPDX-License-Identifier: MIT\npragma solidity ^0.8.20;\n\n" +
			"import \"@openzeppelin/contracts/access/Ownable.sol\";\n\n" +
			"contract Vault is Ownable {\n    uint256 public total;\n}\n\n" +
			"contract Unrelated {\n}\n",
		"node_modules/@openzeppelin/contracts/access/Ownable.sol": "// SPDX-License-Identifier: MIT\n" +
			"pragma solidity ^0.8.0;\n\nabstract contract Ownable {\n    address public owner;\n}\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return filepath.Join(dir, "Vault.sol")
}

// newTestVerifier creates a Verifier for the project at rootFile against endpoint, using the scripted compiler.
func newTestVerifier(t *testing.T, rootFile string, endpoint string, compiler *scriptedCompiler) *Verifier {
	projectConfig, err := config.GetDefaultProjectConfig("")
	require.NoError(t, err)
	projectConfig.Sources.RootFile = rootFile
	projectConfig.Verification.Address = testAddress
	projectConfig.Verification.RPCEndpoint = endpoint

	verifier, err := NewVerifier(projectConfig)
	require.NoError(t, err)
	verifier.platformConfig = compiler
	return verifier
}

// TestVerifierMatch verifies a run whose compiled bytecode matches the on-chain bytecode after stripping.
func TestVerifierMatch(t *testing.T) {
	server := newCodeNode(t, withTrailer(vaultBody, 8, 0xbb))
	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{CompilerVersions: []string{"0.8.20"}, OptimizerSettings: []bool{true}},
		results:  map[string][]byte{"0.8.20": withTrailer(vaultBody, 3, 0xaa)},
	}
	verifier := newTestVerifier(t, writeProject(t), server.URL, compiler)

	outcome, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Matched)
	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, "0.8.20", outcome.CompilerVersion)
	assert.True(t, outcome.OptimizerEnabled)
	assert.Equal(t, "Vault", outcome.ContractName)
	assert.True(t, outcome.ContractFound)
	assert.Equal(t, rpc.DefaultBlockTag, outcome.BlockTag)
	assert.Equal(t, len(vaultBody), outcome.Comparison.LocalStrippedLength)
	assert.Equal(t, len(vaultBody), outcome.Comparison.OnchainStrippedLength)
	require.Len(t, outcome.Attempts, 1)
	assert.True(t, outcome.Attempts[0].Matched)
	assert.Contains(t, outcome.String(), "MATCH: yes")

	// The compiled unit is flattened and extracted: imports inlined, trailing declarations dropped
	require.Len(t, compiler.units, 1)
	assert.NotContains(t, compiler.units[0], "import")
	assert.Contains(t, compiler.units[0], "abstract contract Ownable")
	assert.NotContains(t, compiler.units[0], "Unrelated")
}

// TestVerifierFallsThroughCandidates verifies failing and mismatching configurations are skipped until one matches.
func TestVerifierFallsThroughCandidates(t *testing.T) {
	server := newCodeNode(t, withTrailer(vaultBody, 2, 0xbb))
	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{
			CompilerVersions:  []string{"0.8.21", "0.8.19", "0.8.20"},
			OptimizerSettings: []bool{true},
		},
		results: map[string][]byte{
			"0.8.19": withTrailer([]byte{0x60, 0x80}, 2, 0xaa),
			"0.8.20": withTrailer(vaultBody, 2, 0xaa),
		},
		errs: map[string]error{"0.8.21": &types.NoBytecodeError{ContractName: "Vault", Version: "0.8.21"}},
	}
	verifier := newTestVerifier(t, writeProject(t), server.URL, compiler)

	outcome, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Matched)
	assert.Equal(t, "0.8.20", outcome.CompilerVersion)
	require.Len(t, outcome.Attempts, 3)
	assert.NotEmpty(t, outcome.Attempts[0].Error)
	assert.False(t, outcome.Attempts[1].Matched)
	assert.True(t, outcome.Attempts[2].Matched)
}

// TestVerifierExhaustsCandidates verifies a run where every configuration fails with fatal diagnostics reports no
// match along with the diagnostics of every attempt.
func TestVerifierExhaustsCandidates(t *testing.T) {
	onchain := withTrailer(vaultBody, 2, 0xbb)
	server := newCodeNode(t, onchain)
	fatal := []types.Diagnostic{{Severity: "error", Type: "ParserError", Message: "Expected ';'"}}
	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{
			CompilerVersions:  []string{"0.8.20", "0.8.19"},
			OptimizerSettings: []bool{true, false},
		},
		errs: map[string]error{
			"0.8.20": &types.CompileError{Version: "0.8.20", Diagnostics: fatal},
			"0.8.19": &types.CompileError{Version: "0.8.19", Diagnostics: fatal},
		},
	}
	verifier := newTestVerifier(t, writeProject(t), server.URL, compiler)

	outcome, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Matched)
	assert.Len(t, outcome.Attempts, 4)
	assert.Len(t, outcome.Diagnostics, 4)
	assert.Equal(t, "0.8.19", outcome.CompilerVersion)
	assert.False(t, outcome.OptimizerEnabled)
	assert.False(t, outcome.Comparison.Matched)
	assert.Equal(t, len(onchain), outcome.Comparison.OnchainLength)
	assert.Zero(t, outcome.Comparison.LocalLength)
	assert.Contains(t, outcome.String(), "MATCH: no")
}

// TestVerifierRpcErrorAborts verifies a null eth_getCode result aborts the run before compiling.
func TestVerifierRpcErrorAborts(t *testing.T) {
	server := newCodeNode(t, nil)
	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{CompilerVersions: []string{"0.8.20"}, OptimizerSettings: []bool{true}},
	}
	verifier := newTestVerifier(t, writeProject(t), server.URL, compiler)

	_, err := verifier.Run(context.Background())
	var rpcErr *rpc.RpcError
	assert.True(t, errors.As(err, &rpcErr))
	assert.Empty(t, compiler.units)
}

// TestVerifierResolutionErrorAborts verifies a missing import aborts the run before compiling.
func TestVerifierResolutionErrorAborts(t *testing.T) {
	server := newCodeNode(t, vaultBody)
	rootFile := writeProject(t)
	require.NoError(t, os.RemoveAll(filepath.Join(filepath.Dir(rootFile), "node_modules")))

	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{CompilerVersions: []string{"0.8.20"}, OptimizerSettings: []bool{true}},
	}
	verifier := newTestVerifier(t, rootFile, server.URL, compiler)

	_, err := verifier.Run(context.Background())
	var resolutionErr *sources.ResolutionError
	assert.True(t, errors.As(err, &resolutionErr))
	assert.Empty(t, compiler.units)
}

// TestVerifierContractNotFound verifies a missing contract compiles the whole unit, unless strict matching is set.
func TestVerifierContractNotFound(t *testing.T) {
	server := newCodeNode(t, vaultBody)
	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{CompilerVersions: []string{"0.8.20"}, OptimizerSettings: []bool{true}},
		results:  map[string][]byte{"0.8.20": vaultBody},
	}
	verifier := newTestVerifier(t, writeProject(t), server.URL, compiler)
	verifier.config.Verification.ContractName = "Missing"

	outcome, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.ContractFound)
	require.Len(t, compiler.units, 1)
	assert.Contains(t, compiler.units[0], "Unrelated")

	verifier.config.Verification.StrictContractMatch = true
	_, err = verifier.Run(context.Background())
	var notFoundErr *sources.ContractNotFoundError
	assert.True(t, errors.As(err, &notFoundErr))
}

// TestNewVerifierRejectsInvalidConfig verifies the configuration is validated.
func TestNewVerifierRejectsInvalidConfig(t *testing.T) {
	projectConfig, err := config.GetDefaultProjectConfig("")
	require.NoError(t, err)
	_, err = NewVerifier(projectConfig)
	assert.Error(t, err)
}

// TestVerifierEvents verifies that a run publishes its start, each attempt, and its outcome, and that a failing
// handler aborts the run.
func TestVerifierEvents(t *testing.T) {
	server := newCodeNode(t, withTrailer(vaultBody, 2, 0xbb))
	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{
			CompilerVersions:  []string{"0.8.19", "0.8.20"},
			OptimizerSettings: []bool{true},
		},
		results: map[string][]byte{
			"0.8.19": withTrailer([]byte{0x60, 0x80}, 2, 0xaa),
			"0.8.20": withTrailer(vaultBody, 2, 0xaa),
		},
	}
	verifier := newTestVerifier(t, writeProject(t), server.URL, compiler)

	var started []VerificationStartingEvent
	var attempts []AttemptCompletedEvent
	var finished *Outcome
	verifier.Events.VerificationStarting.Subscribe(func(event VerificationStartingEvent) error {
		started = append(started, event)
		return nil
	})
	verifier.Events.AttemptCompleted.Subscribe(func(event AttemptCompletedEvent) error {
		attempts = append(attempts, event)
		return nil
	})
	verifier.Events.VerificationFinished.Subscribe(func(event VerificationFinishedEvent) error {
		finished = event.Outcome
		return nil
	})

	outcome, err := verifier.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, started, 1)
	assert.Equal(t, outcome.RunID, started[0].RunID)
	assert.Len(t, started[0].Configurations, 2)
	require.Len(t, attempts, 2)
	assert.Equal(t, 0, attempts[0].Index)
	assert.Equal(t, 2, attempts[1].Total)
	assert.False(t, attempts[0].Attempt.Matched)
	assert.True(t, attempts[1].Attempt.Matched)
	assert.Same(t, outcome, finished)

	// A failing handler aborts the run
	verifier.Events.AttemptCompleted.Subscribe(func(event AttemptCompletedEvent) error {
		return errors.New("stop")
	})
	_, err = verifier.Run(context.Background())
	assert.EqualError(t, err, "stop")
}

// TestVerifierReportsLastAttempt verifies that when the last configuration fails to compile, the outcome describes
// that configuration alone rather than pairing it with the bytecode of an earlier one.
func TestVerifierReportsLastAttempt(t *testing.T) {
	onchain := withTrailer(vaultBody, 2, 0xbb)
	server := newCodeNode(t, onchain)
	fatal := []types.Diagnostic{{Severity: "error", Type: "TypeError", Message: "Undeclared identifier"}}
	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{
			CompilerVersions:  []string{"0.8.19", "0.8.20"},
			OptimizerSettings: []bool{true},
		},
		results: map[string][]byte{"0.8.19": withTrailer([]byte{0x60, 0x80}, 2, 0xaa)},
		errs:    map[string]error{"0.8.20": &types.CompileError{Version: "0.8.20", Diagnostics: fatal}},
	}
	verifier := newTestVerifier(t, writeProject(t), server.URL, compiler)

	outcome, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Matched)
	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, 8, outcome.Attempts[0].LocalLength)
	assert.Equal(t, "0.8.20", outcome.CompilerVersion)
	assert.Empty(t, outcome.SelectedContract)
	assert.Zero(t, outcome.Comparison.LocalLength)
	assert.Zero(t, outcome.Comparison.LocalStrippedLength)
	assert.Equal(t, len(onchain), outcome.Comparison.OnchainLength)
	assert.Contains(t, outcome.String(), "local length: 0 (stripped: 0)")
}

// TestVerifierEmbeddedMetadata verifies the compiler version and source metadata hash recorded in the on-chain
// metadata trailer are reported.
func TestVerifierEmbeddedMetadata(t *testing.T) {
	trailer := []byte{0xa2, 0x64, 'i', 'p', 'f', 's', 0x58, 0x22}
	trailer = append(trailer, bytes.Repeat([]byte{0x12}, 34)...)
	trailer = append(trailer, 0x64, 's', 'o', 'l', 'c', 0x43, 0x00, 0x08, 0x14)
	trailer = binary.BigEndian.AppendUint16(trailer, uint16(len(trailer)))
	onchain := append(append([]byte{}, vaultBody...), trailer...)

	server := newCodeNode(t, onchain)
	compiler := &scriptedCompiler{
		settings: platforms.CompilerSettings{CompilerVersions: []string{"0.8.20"}, OptimizerSettings: []bool{false}},
		results:  map[string][]byte{"0.8.20": withTrailer(vaultBody, 3, 0xaa)},
	}
	verifier := newTestVerifier(t, writeProject(t), server.URL, compiler)

	outcome, err := verifier.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.8.20", outcome.EmbeddedCompilerVersion)
	assert.Equal(t, utils.EncodeHexString(bytes.Repeat([]byte{0x12}, 34)), outcome.EmbeddedMetadataHash)
	assert.Contains(t, outcome.String(), "embedded metadata hash: 0x1212")
}
