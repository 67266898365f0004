package verification

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/solverify/verification/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// testOutcome returns an outcome describing a mismatch after two attempts.
func testOutcome() *Outcome {
	return &Outcome{
		RunID:            "5d1f6c1e-6a0c-4c57-9a43-1c0e8f7d3b2a",
		Address:          testAddress,
		BlockTag:         "latest",
		CompilerVersion:  "0.8.19",
		OptimizerEnabled: true,
		ContractName:     "Vault",
		ContractFound:    true,
		Comparison:       CompareBytecode([]byte{0x60, 0x80, 0x60}, []byte{0x60, 0x80, 0x61, 0x00}),
		Attempts: []Attempt{
			{CompilerVersion: "0.8.20", OptimizerEnabled: true, Error: "compilation failed"},
			{CompilerVersion: "0.8.19", OptimizerEnabled: true, ContractName: "Vault", LocalLength: 3, LocalStrippedLength: 3},
		},
		Diagnostics: []string{"solc 0.8.20 (optimizer: true): compilation failed"},
	}
}

// TestWriteReportJSON verifies the JSON report contains the outcome fields.
func TestWriteReportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "report.json")
	require.NoError(t, WriteReport(testOutcome(), path, config.ReportFormatJSON))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal(b, &report))
	assert.Equal(t, false, report["matched"])
	assert.Equal(t, "0.8.19", report["compilerVersion"])
	assert.Len(t, report["attempts"], 2)

	comparison := report["comparison"].(map[string]any)
	assert.EqualValues(t, 2, comparison["commonPrefixLength"])
	assert.Equal(t, "0.5", comparison["matchRatio"])
}

// TestWriteReportYAML verifies the YAML report contains the outcome fields.
func TestWriteReportYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, WriteReport(testOutcome(), path, config.ReportFormatYAML))

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, yaml.Unmarshal(b, &report))
	assert.Equal(t, "Vault", report["contractName"])
	assert.Equal(t, testAddress, report["address"])
	assert.Len(t, report["diagnostics"], 1)
}

// TestWriteReportUnsupportedFormat verifies unknown formats are rejected.
func TestWriteReportUnsupportedFormat(t *testing.T) {
	err := WriteReport(testOutcome(), filepath.Join(t.TempDir(), "report.xml"), "xml")
	assert.Error(t, err)
}

// TestOutcomeString verifies the human-readable summary of a mismatch.
func TestOutcomeString(t *testing.T) {
	summary := testOutcome().String()
	assert.Contains(t, summary, "MATCH: no")
	assert.Contains(t, summary, "compiler: 0.8.19 optimizer: true contract: Vault")
	assert.Contains(t, summary, "on-chain length: 4 (stripped: 4)")
	assert.Contains(t, summary, "tried: solc 0.8.20 (optimizer: true), solc 0.8.19 (optimizer: true)")
}
