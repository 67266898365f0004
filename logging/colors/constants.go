package colors

// Color describes an ANSI SGR code.
type Color int

// ANSI codes used to colorize console output. Values follow zerolog's console writer.
const (
	BOLD      Color = 1
	RED       Color = 31
	GREEN     Color = 32
	YELLOW    Color = 33
	BLUE      Color = 34
	CYAN      Color = 36
	DARK_GRAY Color = 90
)

// LEFT_ARROW is the glyph printed in place of the level name for info events.
const LEFT_ARROW = "⇾"
