// Package system provides the clocks used to timestamp runs.
package system

import "time"

// Clock implements crawler.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Stepped returns start on its first call and advances by step on every later call.
// It is not safe for concurrent use.
type Stepped struct {
	next time.Time
	step time.Duration
}

// NewStepped creates a Stepped clock.
func NewStepped(start time.Time, step time.Duration) *Stepped {
	return &Stepped{next: start.UTC(), step: step}
}

// Now returns the current reading and advances the clock.
func (s *Stepped) Now() time.Time {
	now := s.next
	s.next = s.next.Add(s.step)
	return now
}
