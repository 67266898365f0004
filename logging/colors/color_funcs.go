package colors

import "fmt"

// ColorFunc is an alias type for a coloring function that accepts anything and returns a colorized string
type ColorFunc = func(s any) string

// Reset is a ColorFunc that returns the plain string representation of its input. Passing it to a logger ends the
// color context started by a previous ColorFunc argument.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

// Bold returns a bolded string of the provided input
func Bold(s any) string {
	return Colorize(s, BOLD)
}

// Red returns a red string of the provided input
func Red(s any) string {
	return Colorize(s, RED)
}

// RedBold returns a bold red string of the provided input
func RedBold(s any) string {
	return Colorize(Colorize(s, RED), BOLD)
}

// GreenBold returns a bold green string of the provided input
func GreenBold(s any) string {
	return Colorize(Colorize(s, GREEN), BOLD)
}

// Yellow returns a yellow string of the provided input
func Yellow(s any) string {
	return Colorize(s, YELLOW)
}

// YellowBold returns a bold yellow string of the provided input
func YellowBold(s any) string {
	return Colorize(Colorize(s, YELLOW), BOLD)
}

// BlueBold returns a bold blue string of the provided input
func BlueBold(s any) string {
	return Colorize(Colorize(s, BLUE), BOLD)
}

// CyanBold returns a bold cyan string of the provided input
func CyanBold(s any) string {
	return Colorize(Colorize(s, CYAN), BOLD)
}

// DarkGray returns a dark gray string of the provided input
func DarkGray(s any) string {
	return Colorize(s, DARK_GRAY)
}
