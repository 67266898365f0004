package sources

import (
	"regexp"
	"strings"
)

const (
	// DefaultLicenseLine is used when the root file carries no SPDX license identifier.
	DefaultLicenseLine = "// SPDX-License-Identifier: MIT"

	// DefaultPragmaLine is used when the root file carries no solidity version pragma.
	DefaultPragmaLine = "pragma solidity ^0.8.0;"
)

var (
	// importPattern matches `import "path";` and `import {A, B} from "path";`. The first capture group holds the path of
	// a bare import, the second the path of a named-symbol import.
	importPattern = regexp.MustCompile(`import\s+(?:["']([^"']+)["']|\{[^}]+\}\s+from\s+["']([^"']+)["'])\s*;`)

	// leftoverImportPattern matches any import directive at the start of a line, used to detect unsupported import
	// syntax that survived flattening.
	leftoverImportPattern = regexp.MustCompile(`(?m)^\s*import\s`)

	// pragmaLinePattern and licenseLinePattern match the directive lines removed from inlined units.
	pragmaLinePattern  = regexp.MustCompile(`^\s*pragma\s+solidity`)
	licenseLinePattern = regexp.MustCompile(`^\s*//\s*SPDX-License-Identifier:`)

	// rootPragmaPattern and rootLicensePattern select the directive lines kept from the root file.
	rootPragmaPattern  = regexp.MustCompile(`pragma\s+solidity`)
	rootLicensePattern = regexp.MustCompile(`SPDX-License-Identifier`)

	// pragmaConstraintPattern captures the version constraint of a pragma line.
	pragmaConstraintPattern = regexp.MustCompile(`pragma\s+solidity\s+([^;]+);`)
)

// StripDirectives removes every version pragma line and SPDX license identifier line from the provided source text.
func StripDirectives(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if pragmaLinePattern.MatchString(line) || licenseLinePattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// firstMatchingLine returns the first line of text matching the pattern, or the fallback if no line matches.
func firstMatchingLine(text string, pattern *regexp.Regexp, fallback string) string {
	for _, line := range strings.Split(text, "\n") {
		if pattern.MatchString(line) {
			return strings.TrimRight(line, "\r")
		}
	}
	return fallback
}

// PragmaConstraint extracts the version constraint from a pragma line, e.g. "^0.8.20" from
// "pragma solidity ^0.8.20;". Returns an empty string if the line is not a version pragma.
func PragmaConstraint(pragmaLine string) string {
	matches := pragmaConstraintPattern.FindStringSubmatch(pragmaLine)
	if matches == nil {
		return ""
	}
	return strings.TrimSpace(matches[1])
}
