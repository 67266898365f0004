package sources

import "strings"

// ExtractedUnit describes the part of a flattened source which is submitted for compilation.
type ExtractedUnit struct {
	// ContractName describes the contract the unit was extracted for.
	ContractName string

	// Text describes the extracted source: everything preceding the contract declaration, followed by the
	// declaration's balanced block and a trailing newline. If the contract was not found, this is the input unchanged.
	Text string

	// Found describes whether the contract declaration was located.
	Found bool

	// Offset describes the byte offset of the declaration within the input, or -1 if it was not found.
	Offset int
}

// ExtractContractBlock locates the first occurrence of "contract <contractName>" in text and returns the text before
// it, plus the declaration up to and including the brace which closes its body. Declarations following the block are
// dropped. If the declaration is absent, the input is returned unchanged with Found set to false. If the block cannot
// be delimited, a *MalformedSourceError is returned.
func ExtractContractBlock(text string, contractName string) (*ExtractedUnit, error) {
	start := strings.Index(text, "contract "+contractName)
	if start == -1 {
		return &ExtractedUnit{ContractName: contractName, Text: text, Found: false, Offset: -1}, nil
	}

	// Find the opening brace of the contract body
	open := strings.IndexByte(text[start:], '{')
	if open == -1 {
		return nil, &MalformedSourceError{
			ContractName: contractName,
			Offset:       start,
			Reason:       "no opening brace follows the contract declaration",
		}
	}
	open += start

	// Scan until the depth returns to zero
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return &ExtractedUnit{
					ContractName: contractName,
					Text:         text[:i+1] + "\n",
					Found:        true,
					Offset:       start,
				}, nil
			}
		}
	}

	return nil, &MalformedSourceError{
		ContractName: contractName,
		Offset:       start,
		Reason:       "end of input reached before the contract body was closed",
	}
}
