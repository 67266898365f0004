package sources

import (
	"path/filepath"
	"strings"

	"github.com/crytic/solverify/logging"
	"github.com/pkg/errors"
)

// DefaultMaxImportDepth describes the default limit on the length of an import chain while flattening.
const DefaultMaxImportDepth = 64

// FlattenedUnit describes a root source file with all of its imports inlined into a single compilable unit.
type FlattenedUnit struct {
	// RootPath describes the absolute path of the root file.
	RootPath string

	// Text describes the flattened source. It contains no import directives, and exactly one license line and one
	// version pragma line, both taken from the root file.
	Text string

	// LicenseLine describes the SPDX license line placed at the top of Text.
	LicenseLine string

	// PragmaLine describes the version pragma line placed below the license line.
	PragmaLine string

	// InlinedPaths describes the absolute paths of every inlined unit, in inlining order.
	InlinedPaths []string
}

// Flattener inlines the imports of a root source file into one textual unit. Units are inlined depth-first in
// pre-order: an import directive is replaced by the fully flattened content of its target before the scan continues
// past it. Each unit is inlined at most once; later imports of an already inlined path (diamonds or cycles) are
// dropped.
type Flattener struct {
	// resolver describes the Resolver used to locate imported units.
	resolver *Resolver

	// maxDepth describes the maximum length of an import chain.
	maxDepth int

	// logger describes the Flattener's log object that can be used to log important events
	logger *logging.Logger
}

// flattenFrame describes a unit which is currently being flattened.
type flattenFrame struct {
	// path describes the absolute path of the unit.
	path string

	// remaining describes the part of the unit that has not been scanned yet.
	remaining string

	// output describes the flattened text produced for the unit so far.
	output strings.Builder

	// depth describes the length of the import chain leading to this unit. The root has a depth of zero.
	depth int
}

// NewFlattener creates a Flattener which resolves imports with the provided Resolver. A non-positive maxDepth
// selects DefaultMaxImportDepth.
func NewFlattener(resolver *Resolver, maxDepth int) *Flattener {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxImportDepth
	}
	return &Flattener{
		resolver: resolver,
		maxDepth: maxDepth,
		logger:   logging.GlobalLogger.NewSubLogger("module", logging.SOURCES_SERVICE),
	}
}

// Flatten inlines every import of rootText, which is the content of the file at rootPath. License and version pragma
// lines are removed from inlined units but kept in the root text. Returns the flattened text along with the paths of
// the inlined units, or an error if an import could not be resolved or the depth limit was exceeded.
func (f *Flattener) Flatten(rootText string, rootPath string) (string, []string, error) {
	absRootPath, err := filepath.Abs(rootPath)
	if err != nil {
		return "", nil, &ResolutionError{Path: rootPath, Err: err}
	}

	// The root is considered visited so that imports cycling back to it are dropped.
	visited := map[string]struct{}{absRootPath: {}}
	inlined := make([]string, 0)
	stack := []*flattenFrame{{path: absRootPath, remaining: rootText}}

	for {
		top := stack[len(stack)-1]

		// If there are no further imports in this unit, it is complete. Hand it to its parent, or return it if it is
		// the root.
		loc := importPattern.FindStringSubmatchIndex(top.remaining)
		if loc == nil {
			top.output.WriteString(top.remaining)
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return top.output.String(), inlined, nil
			}
			stack[len(stack)-1].output.WriteString(StripDirectives(top.output.String()))
			continue
		}

		// Copy the text preceding the import and consume the directive
		top.output.WriteString(top.remaining[:loc[0]])
		specifier := importSpecifier(top.remaining, loc)
		top.remaining = top.remaining[loc[1]:]

		path, err := f.resolver.ResolvePath(specifier, top.path)
		if err != nil {
			return "", nil, err
		}
		if _, seen := visited[path]; seen {
			f.logger.Debug("Skipping already inlined import '", specifier, "' from ", top.path)
			continue
		}
		if top.depth+1 > f.maxDepth {
			return "", nil, &ImportDepthExceededError{Path: path, MaxDepth: f.maxDepth}
		}

		unit, err := f.resolver.Resolve(specifier, top.path)
		if err != nil {
			return "", nil, err
		}
		visited[unit.Path] = struct{}{}
		inlined = append(inlined, unit.Path)
		stack = append(stack, &flattenFrame{path: unit.Path, remaining: unit.Text, depth: top.depth + 1})
	}
}

// FlattenFile reads the root file at rootPath, flattens it, and places exactly one license line and one version pragma
// line (the first ones found in the root file, or defaults) at the top of the result.
func (f *Flattener) FlattenFile(rootPath string) (*FlattenedUnit, error) {
	rootUnit, err := f.resolver.ReadUnit(rootPath)
	if err != nil {
		return nil, err
	}

	flattened, inlined, err := f.Flatten(rootUnit.Text, rootUnit.Path)
	if err != nil {
		return nil, err
	}

	// Any import directive which survived uses syntax we cannot inline.
	if loc := leftoverImportPattern.FindStringIndex(flattened); loc != nil {
		line := strings.TrimSpace(strings.SplitN(flattened[loc[0]:], "\n", 2)[0])
		return nil, &ResolutionError{
			Path: rootUnit.Path,
			Err:  errors.Errorf("unsupported import directive '%s'", line),
		}
	}

	licenseLine := firstMatchingLine(rootUnit.Text, rootLicensePattern, DefaultLicenseLine)
	pragmaLine := firstMatchingLine(rootUnit.Text, rootPragmaPattern, DefaultPragmaLine)
	f.logger.Debug("Flattened ", rootUnit.Path, " with ", len(inlined), " inlined unit(s)")

	return &FlattenedUnit{
		RootPath:     rootUnit.Path,
		Text:         licenseLine + "\n" + pragmaLine + "\n" + StripDirectives(flattened),
		LicenseLine:  licenseLine,
		PragmaLine:   pragmaLine,
		InlinedPaths: inlined,
	}, nil
}

// FlattenAndExtract flattens the root file and extracts the block of the named contract from the result. If the
// contract is not found, a warning is logged and the whole flattened unit is returned, unless strict is set, in which
// case a *ContractNotFoundError is returned.
func (f *Flattener) FlattenAndExtract(rootPath string, contractName string, strict bool) (*FlattenedUnit, *ExtractedUnit, error) {
	flattened, err := f.FlattenFile(rootPath)
	if err != nil {
		return nil, nil, err
	}

	extracted, err := ExtractContractBlock(flattened.Text, contractName)
	if err != nil {
		return nil, nil, err
	}
	if !extracted.Found {
		if strict {
			return nil, nil, &ContractNotFoundError{ContractName: contractName}
		}
		f.logger.Warn("Contract '", contractName, "' was not found in the flattened source of ", flattened.RootPath,
			", the entire flattened unit will be compiled")
	}
	return flattened, extracted, nil
}

// importSpecifier returns the path captured by importPattern for the match described by loc.
func importSpecifier(text string, loc []int) string {
	if loc[2] >= 0 {
		return text[loc[2]:loc[3]]
	}
	return text[loc[4]:loc[5]]
}
