// AngelaMos | 2026
// state.go

package sidebar

import "sync"

// Breakpoint is the viewport width, in CSS pixels, below which the sidebar
// becomes an overlay the user opens and closes.
const Breakpoint = 1024

// State is the sidebar flag of one client. On wide viewports the sidebar
// is always laid out and the flag is not consulted.
type State struct {
	mu     sync.Mutex
	open   bool
	width  int
	resize bool
}

func New() *State {
	return &State{}
}

func (s *State) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

func (s *State) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// Toggle flips the flag, but only on a mobile viewport. Before any Resize
// the viewport is assumed to be mobile.
func (s *State) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mobileLocked() {
		s.open = !s.open
	}
}

// Resize records the viewport width and forces the sidebar closed below
// the breakpoint.
func (s *State) Resize(width int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.width = width
	s.resize = true
	if width < Breakpoint {
		s.open = false
	}
}

func (s *State) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Open:   s.open,
		Width:  s.width,
		Mobile: s.mobileLocked(),
	}
}

func (s *State) mobileLocked() bool {
	return !s.resize || s.width < Breakpoint
}
