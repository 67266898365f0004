package sources

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFlattenPackageImport ensures a root file importing a package-style dependency is flattened with the vendored
// copy inlined in place, no import lines left over and a single license and pragma line from the root file.
func TestFlattenPackageImport(t *testing.T) {
	dir := writeSourceTree(t, map[string]string{
		"node_modules/@openzeppelin/contracts/utils/Context.sol": `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.20;

abstract contract Context {
    function _msgSender() internal view virtual returns (address) { return msg.sender; }
}
`,
		"Main.sol": `// SPDX-License-Identifier: AGPL-3.0
pragma solidity 0.8.24;

import {Context} from "@openzeppelin/contracts/utils/Context.sol";

contract Main is Context {
    function who() external view returns (address) { return _msgSender(); }
}
`,
	})
	flattener := newTestFlattener(t, dir, 0)

	flattened, err := flattener.FlattenFile(filepath.Join(dir, "Main.sol"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(flattened.Text, "// SPDX-License-Identifier: AGPL-3.0\npragma solidity 0.8.24;\n"))
	assert.NotContains(t, flattened.Text, "import")
	assert.EqualValues(t, 1, strings.Count(flattened.Text, "SPDX-License-Identifier"))
	assert.EqualValues(t, 1, strings.Count(flattened.Text, "pragma solidity"))
	assert.Less(t, strings.Index(flattened.Text, "abstract contract Context"), strings.Index(flattened.Text, "contract Main is Context"))
	assert.EqualValues(t, "0.8.24", PragmaConstraint(flattened.PragmaLine))
	require.Len(t, flattened.InlinedPaths, 1)
	assert.EqualValues(t, filepath.Join(dir, "node_modules", "@openzeppelin", "contracts", "utils", "Context.sol"), flattened.InlinedPaths[0])
}

// TestFlattenPreOrder ensures imports are inlined depth-first, with each import replaced by its fully flattened
// content before the scan continues past it.
func TestFlattenPreOrder(t *testing.T) {
	dir := writeSourceTree(t, map[string]string{
		"A.sol":    "import \"./B.sol\";\ncontract A {}\n",
		"B.sol":    "import './sub/C.sol';\ncontract B {}\n",
		"sub/C.sol": "pragma solidity ^0.8.0;\ncontract C {}\n",
		"Root.sol": "pragma solidity ^0.8.0;\nimport \"./A.sol\";\nimport \"./D.sol\";\ncontract Root {}\n",
		"D.sol":    "contract D {}\n",
	})
	flattener := newTestFlattener(t, dir, 0)

	flattened, err := flattener.FlattenFile(filepath.Join(dir, "Root.sol"))
	require.NoError(t, err)

	order := []string{"contract C", "contract B", "contract A", "contract D", "contract Root"}
	last := -1
	for _, decl := range order {
		idx := strings.Index(flattened.Text, decl)
		require.NotEqual(t, -1, idx, decl)
		assert.Greater(t, idx, last, decl)
		last = idx
	}

	// No license line in the root means the default is used
	assert.True(t, strings.HasPrefix(flattened.Text, DefaultLicenseLine+"\npragma solidity ^0.8.0;\n"))
}

// TestFlattenDeterminism ensures flattening the same import graph twice yields byte-identical output.
func TestFlattenDeterminism(t *testing.T) {
	dir := writeSourceTree(t, map[string]string{
		"Root.sol": "import \"./A.sol\";\nimport \"./B.sol\";\ncontract Root {}\n",
		"A.sol":    "import \"./B.sol\";\ncontract A {}\n",
		"B.sol":    "contract B {}\n",
	})

	first, err := newTestFlattener(t, dir, 0).FlattenFile(filepath.Join(dir, "Root.sol"))
	require.NoError(t, err)
	second, err := newTestFlattener(t, dir, 0).FlattenFile(filepath.Join(dir, "Root.sol"))
	require.NoError(t, err)
	assert.EqualValues(t, first.Text, second.Text)
}

// TestFlattenDiamondAndCycle ensures a unit imported more than once, including through a cycle back to the root, is
// only inlined once and flattening terminates.
func TestFlattenDiamondAndCycle(t *testing.T) {
	dir := writeSourceTree(t, map[string]string{
		"Root.sol":   "import \"./Left.sol\";\nimport \"./Right.sol\";\ncontract Root {}\n",
		"Left.sol":   "import \"./Shared.sol\";\ncontract Left {}\n",
		"Right.sol":  "import \"./Shared.sol\";\nimport \"./Root.sol\";\ncontract Right {}\n",
		"Shared.sol": "import \"./Left.sol\";\ncontract Shared {}\n",
	})
	flattener := newTestFlattener(t, dir, 0)

	flattened, err := flattener.FlattenFile(filepath.Join(dir, "Root.sol"))
	require.NoError(t, err)
	for _, decl := range []string{"contract Root", "contract Left", "contract Right", "contract Shared"} {
		assert.EqualValues(t, 1, strings.Count(flattened.Text, decl), decl)
	}
	assert.Len(t, flattened.InlinedPaths, 3)
}

// TestFlattenDepthExceeded ensures an import chain deeper than the limit fails with ImportDepthExceededError.
func TestFlattenDepthExceeded(t *testing.T) {
	dir := writeSourceTree(t, map[string]string{
		"Root.sol": "import \"./L1.sol\";\ncontract Root {}\n",
		"L1.sol":   "import \"./L2.sol\";\ncontract L1 {}\n",
		"L2.sol":   "import \"./L3.sol\";\ncontract L2 {}\n",
		"L3.sol":   "contract L3 {}\n",
	})

	// A limit of three is just enough
	_, err := newTestFlattener(t, dir, 3).FlattenFile(filepath.Join(dir, "Root.sol"))
	require.NoError(t, err)

	_, err = newTestFlattener(t, dir, 2).FlattenFile(filepath.Join(dir, "Root.sol"))
	require.Error(t, err)
	var depthErr *ImportDepthExceededError
	require.True(t, errors.As(err, &depthErr))
	assert.EqualValues(t, 2, depthErr.MaxDepth)
	assert.EqualValues(t, filepath.Join(dir, "L3.sol"), depthErr.Path)
}

// TestFlattenMissingImport ensures a missing import aborts flattening with a ResolutionError.
func TestFlattenMissingImport(t *testing.T) {
	dir := writeSourceTree(t, map[string]string{
		"Root.sol": "import \"@openzeppelin/contracts/Missing.sol\";\ncontract Root {}\n",
	})

	_, err := newTestFlattener(t, dir, 0).FlattenFile(filepath.Join(dir, "Root.sol"))
	var resolutionErr *ResolutionError
	require.True(t, errors.As(err, &resolutionErr))
	assert.EqualValues(t, "@openzeppelin/contracts/Missing.sol", resolutionErr.Specifier)
}

// TestFlattenUnsupportedImport ensures an import syntax that cannot be inlined is reported rather than left in the
// flattened output.
func TestFlattenUnsupportedImport(t *testing.T) {
	dir := writeSourceTree(t, map[string]string{
		"Root.sol": "import * as Lib from \"./Lib.sol\";\ncontract Root {}\n",
		"Lib.sol":  "library Lib {}\n",
	})

	_, err := newTestFlattener(t, dir, 0).FlattenFile(filepath.Join(dir, "Root.sol"))
	var resolutionErr *ResolutionError
	require.True(t, errors.As(err, &resolutionErr))
	assert.Contains(t, resolutionErr.Error(), "unsupported import directive")
}

// TestFlattenAndExtract ensures the strict and lenient handling of a contract name missing from the flattened source.
func TestFlattenAndExtract(t *testing.T) {
	dir := writeSourceTree(t, map[string]string{
		"Root.sol": "pragma solidity ^0.8.0;\ncontract Foo { uint a; }\ncontract Bar { uint b; }\n",
	})
	flattener := newTestFlattener(t, dir, 0)

	_, extracted, err := flattener.FlattenAndExtract(filepath.Join(dir, "Root.sol"), "Foo", true)
	require.NoError(t, err)
	assert.True(t, extracted.Found)
	assert.NotContains(t, extracted.Text, "contract Bar")

	_, extracted, err = flattener.FlattenAndExtract(filepath.Join(dir, "Root.sol"), "Baz", false)
	require.NoError(t, err)
	assert.False(t, extracted.Found)
	assert.Contains(t, extracted.Text, "contract Bar")

	_, _, err = flattener.FlattenAndExtract(filepath.Join(dir, "Root.sol"), "Baz", true)
	var notFoundErr *ContractNotFoundError
	assert.True(t, errors.As(err, &notFoundErr))
}

// TestStripDirectives ensures only pragma solidity and SPDX lines are removed.
func TestStripDirectives(t *testing.T) {
	text := "  // SPDX-License-Identifier: MIT\npragma solidity ^0.8.0;\npragma abicoder v2;\ncontract A {}"
	assert.EqualValues(t, "pragma abicoder v2;\ncontract A {}", StripDirectives(text))
}
