package colors

import "os"

// noColorEnvVar describes the environment variable which, when set to any non-empty value, disables coloring.
// See https://no-color.org.
const noColorEnvVar = "NO_COLOR"

// init enables ANSI coloring where the console supports it, unless NO_COLOR is set.
func init() {
	if os.Getenv(noColorEnvVar) != "" {
		DisableColor()
		return
	}
	EnableColor()
}
