package sources

import "fmt"

// ResolutionError describes a failure to locate or read an imported (or root) source unit. It is fatal to a
// verification run since it indicates broken input rather than a transient condition.
type ResolutionError struct {
	// Specifier describes the import specifier as written in the importing file. Empty for root files.
	Specifier string

	// FromFile describes the path of the importing file. Empty for root files.
	FromFile string

	// Path describes the path resolution was attempted at.
	Path string

	// Err describes the underlying error.
	Err error
}

// Error returns the error message string, implementing the `error` interface.
func (e *ResolutionError) Error() string {
	if e.Specifier == "" {
		return fmt.Sprintf("could not read source unit '%s': %v", e.Path, e.Err)
	}
	return fmt.Sprintf("could not resolve import '%s' from '%s' (tried '%s'): %v", e.Specifier, e.FromFile, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ImportDepthExceededError describes an import chain that is deeper than the configured limit, which is how
// pathological or generated import graphs are reported instead of exhausting resources.
type ImportDepthExceededError struct {
	// Path describes the import that would have exceeded the limit.
	Path string

	// MaxDepth describes the configured depth limit.
	MaxDepth int
}

// Error returns the error message string, implementing the `error` interface.
func (e *ImportDepthExceededError) Error() string {
	return fmt.Sprintf("import depth limit of %d exceeded while inlining '%s'", e.MaxDepth, e.Path)
}

// MalformedSourceError describes a contract declaration whose block could not be delimited, such as unbalanced braces.
type MalformedSourceError struct {
	// ContractName describes the contract that was being extracted.
	ContractName string

	// Offset describes the byte offset of the declaration in the flattened source.
	Offset int

	// Reason describes why the block could not be extracted.
	Reason string
}

// Error returns the error message string, implementing the `error` interface.
func (e *MalformedSourceError) Error() string {
	return fmt.Sprintf("malformed source for contract '%s' at offset %d: %s", e.ContractName, e.Offset, e.Reason)
}

// ContractNotFoundError describes a target contract which does not appear in the flattened source. It is only raised
// when strict contract matching is enabled, otherwise the whole flattened unit is used.
type ContractNotFoundError struct {
	// ContractName describes the contract that was searched for.
	ContractName string
}

// Error returns the error message string, implementing the `error` interface.
func (e *ContractNotFoundError) Error() string {
	return fmt.Sprintf("contract '%s' was not found in the flattened source", e.ContractName)
}
