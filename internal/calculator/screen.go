package calculator

// Display receives operand strings after every successful state change.
type Display interface {
	ShowCurrent(value string)
	ShowPrevious(value string)
}

// Screen is an in-memory Display holding what a calculator would show.
type Screen struct {
	current  string
	previous string
}

func (s *Screen) ShowCurrent(value string) {
	s.current = value
}

func (s *Screen) ShowPrevious(value string) {
	s.previous = value
}

// Snapshot returns the rendered pair.
func (s *Screen) Snapshot() Snapshot {
	return Snapshot{Current: s.current, Previous: s.previous}
}
