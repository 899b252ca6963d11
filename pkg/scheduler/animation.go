package scheduler

import "time"

type Phase int

const (
	Idle Phase = iota
	Entering
	Holding
	Scrolling
	// Exiting retires the shown item and picks the next one
	Exiting
)

// Animation is the transition state of one display region.
type Animation struct {
	Phase Phase

	// vertical offset while entering, horizontal position while scrolling
	Offset int
	Scroll int

	Index         int
	Previous      int
	Width         int
	PreviousWidth int

	Due time.Time
}

// Moving is true while the region is mid-transition. Fetches wait for it.
func (a Animation) Moving() bool {
	return a.Phase == Entering || a.Phase == Scrolling || a.Phase == Exiting
}

func (a Animation) due(now time.Time) bool {
	return !now.Before(a.Due)
}
