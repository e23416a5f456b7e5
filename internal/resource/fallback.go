package resource

import "strings"

// Display fallbacks applied uniformly at the view-model mapping boundary.
// Joined relations can be absent (deleted author, unlinked provider); the
// mapped record still renders with one of these instead of an empty field.
const (
	FallbackUnknown = "Unknown"
	FallbackSystem  = "System"
	FallbackNA      = "N/A"
)

// Display returns the dereferenced string, or def when the value is nil or
// blank.
func Display(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return *v
}

// DisplayName joins first and last name parts, falling back to def when both
// are absent.
func DisplayName(first, last *string, def string) string {
	f := Display(first, "")
	l := Display(last, "")
	switch {
	case f != "" && l != "":
		return f + " " + l
	case f != "":
		return f
	case l != "":
		return l
	default:
		return def
	}
}
