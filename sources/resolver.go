package sources

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/crytic/solverify/logging"
)

// DefaultPackagePrefixes describes the import specifier prefixes resolved against the dependency root by default.
var DefaultPackagePrefixes = []string{"@openzeppelin/"}

// SourceUnit describes a single source file, identified by its absolute path.
type SourceUnit struct {
	// Path describes the absolute, cleaned path of the source file.
	Path string

	// Text describes the raw contents of the source file.
	Text string
}

// Resolver locates and reads imported source units. Package-style specifiers (those starting with one of the
// configured package prefixes) resolve against a fixed dependency root, mirroring an installed node_modules layout.
// All other specifiers resolve relative to the directory of the importing file.
//
// Resolution is pure: resolving the same specifier from the same file always yields the same unit. Reads are cached
// by absolute path, which is safe for concurrent use.
type Resolver struct {
	// dependencyRoot describes the absolute directory package-style specifiers are resolved against.
	dependencyRoot string

	// packagePrefixes describes the specifier prefixes which are treated as package-style.
	packagePrefixes []string

	// cacheLock guards cache.
	cacheLock sync.RWMutex

	// cache maps absolute file paths to their contents.
	cache map[string]string

	// logger describes the Resolver's log object that can be used to log important events
	logger *logging.Logger
}

// NewResolver creates a Resolver which resolves package-style specifiers against dependencyRoot. A relative
// dependencyRoot is interpreted relative to the current working directory.
func NewResolver(dependencyRoot string, packagePrefixes []string) (*Resolver, error) {
	absRoot, err := filepath.Abs(dependencyRoot)
	if err != nil {
		return nil, &ResolutionError{Path: dependencyRoot, Err: err}
	}

	prefixes := make([]string, len(packagePrefixes))
	copy(prefixes, packagePrefixes)

	return &Resolver{
		dependencyRoot:  absRoot,
		packagePrefixes: prefixes,
		cache:           make(map[string]string),
		logger:          logging.GlobalLogger.NewSubLogger("module", logging.SOURCES_SERVICE),
	}, nil
}

// DependencyRoot returns the absolute directory package-style specifiers are resolved against.
func (r *Resolver) DependencyRoot() string {
	return r.dependencyRoot
}

// IsPackageSpecifier returns a boolean indicating whether the specifier starts with a recognized package prefix.
func (r *Resolver) IsPackageSpecifier(specifier string) bool {
	for _, prefix := range r.packagePrefixes {
		if strings.HasPrefix(specifier, prefix) {
			return true
		}
	}
	return false
}

// ResolvePath computes the absolute path an import specifier refers to, without reading the file.
func (r *Resolver) ResolvePath(specifier string, fromFile string) (string, error) {
	var target string
	if r.IsPackageSpecifier(specifier) {
		target = filepath.Join(r.dependencyRoot, filepath.FromSlash(specifier))
	} else {
		target = filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(specifier))
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return "", &ResolutionError{Specifier: specifier, FromFile: fromFile, Path: target, Err: err}
	}
	return absTarget, nil
}

// Resolve locates the unit an import specifier refers to and returns its contents. Returns a *ResolutionError if the
// target does not exist or cannot be read.
func (r *Resolver) Resolve(specifier string, fromFile string) (*SourceUnit, error) {
	path, err := r.ResolvePath(specifier, fromFile)
	if err != nil {
		return nil, err
	}

	text, err := r.read(path)
	if err != nil {
		return nil, &ResolutionError{Specifier: specifier, FromFile: fromFile, Path: path, Err: err}
	}
	return &SourceUnit{Path: path, Text: text}, nil
}

// ReadUnit reads the source unit at the provided path, which is typically a root file.
func (r *Resolver) ReadUnit(path string) (*SourceUnit, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &ResolutionError{Path: path, Err: err}
	}

	text, err := r.read(absPath)
	if err != nil {
		return nil, &ResolutionError{Path: absPath, Err: err}
	}
	return &SourceUnit{Path: absPath, Text: text}, nil
}

// read returns the contents of the file at the absolute path, consulting the cache first.
func (r *Resolver) read(absPath string) (string, error) {
	r.cacheLock.RLock()
	text, ok := r.cache[absPath]
	r.cacheLock.RUnlock()
	if ok {
		return text, nil
	}

	b, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	r.logger.Trace("Read source unit: ", absPath)

	r.cacheLock.Lock()
	r.cache[absPath] = string(b)
	r.cacheLock.Unlock()
	return string(b), nil
}
