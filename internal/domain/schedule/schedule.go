package schedule

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/doctagger/internal/domain"
)

// Default working-hours window.
const (
	DefaultStart = 8
	DefaultEnd   = 18
)

// Window is a half-open range of local hours [Start, End) during which
// tagging must not run. Start > End wraps past midnight; Start == End
// disables the window.
type Window struct {
	start int
	end   int
}

// NewWindow validates hours and builds a Window.
func NewWindow(start, end int) (Window, error) {
	if start < 0 || start > 23 {
		return Window{}, fmt.Errorf("working_hours.start must be 0..23, got %d: %w", start, domain.ErrInvalidConfig)
	}
	if end < 0 || end > 24 {
		return Window{}, fmt.Errorf("working_hours.end must be 0..24, got %d: %w", end, domain.ErrInvalidConfig)
	}
	return Window{start: start, end: end}, nil
}

// DefaultWindow returns the 08:00-18:00 window.
func DefaultWindow() Window { return Window{start: DefaultStart, end: DefaultEnd} }

func (w Window) Start() int { return w.start }
func (w Window) End() int   { return w.end }

// Contains reports whether hour falls inside the window.
func (w Window) Contains(hour int) bool {
	switch {
	case w.start == w.end:
		return false
	case w.start < w.end:
		return hour >= w.start && hour < w.end
	default:
		return hour >= w.start || hour < w.end
	}
}

// Active reports whether t, in its own location, falls inside the window.
func (w Window) Active(t time.Time) bool {
	return w.Contains(t.Hour())
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.start, w.end)
}
