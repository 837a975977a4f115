package diagram

import "fmt"

// Mode selects how stories are arranged on the page.
type Mode string

const (
	// ModeOutline places every story in one row beneath its feature.
	ModeOutline Mode = "outline"
	// ModeIncrements adds one horizontal lane per release increment.
	ModeIncrements Mode = "increments"
)

// Story rows sit a fixed distance below the top of whatever holds them. The
// extractor measures a story's depth in its stack from these rows.
const (
	StoryRowOffset = 150.0 // feature top to its story row
	LaneRowOffset  = 70.0  // increment lane top to its story row
)

// String returns the mode name.
func (m Mode) String() string { return string(m) }

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeOutline || m == ModeIncrements
}

// ParseMode parses a mode name. The empty string means outline.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeOutline, nil
	}
	m := Mode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown diagram mode %q (want outline or increments)", s)
	}
	return m, nil
}
