package transform

import "time"

const (
	// ReleaseDateLayout is the stored release date layout.
	ReleaseDateLayout = "2006-01-02"

	// DisplayDateLayout is the long month-day-year layout, e.g. "May 01, 2023".
	DisplayDateLayout = "January 02, 2006"
)

// FormatReleaseDate rewrites a YYYY-MM-DD date in DisplayDateLayout.
// It reports false, and returns the input unchanged, when s does not parse.
func FormatReleaseDate(s string) (string, bool) {
	if s == "" {
		return s, false
	}
	t, err := time.Parse(ReleaseDateLayout, s)
	if err != nil {
		return s, false
	}
	return t.Format(DisplayDateLayout), true
}
