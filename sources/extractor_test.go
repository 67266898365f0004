package sources

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExtractContractBlockDropsTrailingDeclarations ensures that extracting "Foo" keeps everything before it and its own
// block, while "Bar", which is declared afterward, is dropped.
func TestExtractContractBlockDropsTrailingDeclarations(t *testing.T) {
	text := `pragma solidity ^0.8.0;
interface IFoo { function foo() external; }
contract Foo is IFoo {
    struct S { uint a; }
    function foo() external override { if (true) { } }
}
contract Bar {
    function bar() external {}
}
`
	extracted, err := ExtractContractBlock(text, "Foo")
	require.NoError(t, err)
	assert.True(t, extracted.Found)
	assert.True(t, strings.HasPrefix(extracted.Text, "pragma solidity ^0.8.0;\ninterface IFoo"))
	assert.True(t, strings.HasSuffix(extracted.Text, "if (true) { } }\n}\n"))
	assert.NotContains(t, extracted.Text, "contract Bar")
	assert.EqualValues(t, strings.Index(text, "contract Foo"), extracted.Offset)

	// The returned block has balanced braces
	block := extracted.Text[extracted.Offset:]
	assert.EqualValues(t, strings.Count(block, "{"), strings.Count(block, "}"))
}

// TestExtractContractBlockNotFound ensures a missing declaration returns the input unchanged.
func TestExtractContractBlockNotFound(t *testing.T) {
	text := "contract Bar {}\n"
	extracted, err := ExtractContractBlock(text, "Foo")
	require.NoError(t, err)
	assert.False(t, extracted.Found)
	assert.EqualValues(t, text, extracted.Text)
	assert.EqualValues(t, -1, extracted.Offset)
}

// TestExtractContractBlockMalformed ensures unbalanced input fails rather than returning a half-open block.
func TestExtractContractBlockMalformed(t *testing.T) {
	var malformedErr *MalformedSourceError

	_, err := ExtractContractBlock("contract Foo { function f() public { ", "Foo")
	require.Error(t, err)
	assert.True(t, errors.As(err, &malformedErr))
	assert.EqualValues(t, "Foo", malformedErr.ContractName)

	_, err = ExtractContractBlock("contract Foo is Bar", "Foo")
	require.Error(t, err)
	assert.True(t, errors.As(err, &malformedErr))
}

// TestExtractContractBlockPrefixMatch ensures the first textual occurrence of the declaration is used, even if it is
// a declaration whose name merely starts with the target name.
func TestExtractContractBlockPrefixMatch(t *testing.T) {
	text := "contract FooBase { uint x; }\ncontract Foo is FooBase { uint y; }\n"
	extracted, err := ExtractContractBlock(text, "Foo")
	require.NoError(t, err)
	assert.EqualValues(t, "contract FooBase { uint x; }\n", extracted.Text)
}
