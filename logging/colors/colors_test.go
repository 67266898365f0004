package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestColorize verifies ANSI codes are only emitted while coloring is enabled.
func TestColorize(t *testing.T) {
	previous := enabled
	t.Cleanup(func() { enabled = previous })

	enabled = true
	assert.Equal(t, "\x1b[31mfailed\x1b[0m", Red("failed"))
	assert.Equal(t, "\x1b[1m\x1b[32mmatch\x1b[0m\x1b[0m", GreenBold("match"))
	assert.Equal(t, "\x1b[90m[1/2]\x1b[0m", DarkGray("[1/2]"))
	assert.Equal(t, "7", Reset(7))

	DisableColor()
	assert.Equal(t, "mismatch", Yellow("mismatch"))
	assert.Equal(t, "Vault", Bold("Vault"))
}
