package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeSourceTree writes the provided files (relative path to contents) beneath a temporary directory and returns the
// directory path.
func writeSourceTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for relPath, contents := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0755))
		require.NoError(t, os.WriteFile(fullPath, []byte(contents), 0644))
	}
	return dir
}

// newTestFlattener creates a Flattener resolving package imports against <dir>/node_modules.
func newTestFlattener(t *testing.T, dir string, maxDepth int) *Flattener {
	t.Helper()
	resolver, err := NewResolver(filepath.Join(dir, "node_modules"), DefaultPackagePrefixes)
	require.NoError(t, err)
	return NewFlattener(resolver, maxDepth)
}
