package scheduler

import (
	"math"
	"time"

	"github.com/dmateus/lexflash/internal/errors"
)

// SM-2 constants.
const (
	MinEase     = 1.3
	MaxEase     = 2.5
	InitialEase = 2.5

	// LapseIntervalDays is the short interval a card falls back to after a
	// failed review.
	LapseIntervalDays = 1

	firstIntervalDays  = 1
	secondIntervalDays = 6

	// PassingQuality is the lowest quality rating counted as a successful
	// recall. Anything below resets repetition progress.
	PassingQuality = 3
)

// State is the scheduling state the SM-2 computation operates on.
type State struct {
	Repetitions  int
	EaseFactor   float64
	IntervalDays int
}

// NewState returns the state of a never-reviewed card.
func NewState() State {
	return State{EaseFactor: InitialEase}
}

// Next computes the scheduling state after a review with the given quality
// rating (0-5). It is pure: no clock, no I/O, same output for same input.
//
// This is the plain SM-2 variant without hard/easy interval multipliers. The
// ease factor is adjusted for every answer, failures included, and kept within
// [MinEase, MaxEase]. A failing quality (< 3) resets repetitions and drops the
// interval to LapseIntervalDays.
func Next(s State, quality int) (State, error) {
	if quality < 0 || quality > 5 {
		return State{}, errors.NewInvalidInputError("quality", "must be between 0 and 5")
	}

	miss := float64(5 - quality)
	ease := s.EaseFactor + 0.1 - miss*(0.08+miss*0.02)
	if ease < MinEase {
		ease = MinEase
	}
	if ease > MaxEase {
		ease = MaxEase
	}

	next := State{EaseFactor: ease}
	if quality < PassingQuality {
		next.IntervalDays = LapseIntervalDays
		return next, nil
	}

	switch s.Repetitions {
	case 0:
		next.IntervalDays = firstIntervalDays
	case 1:
		next.IntervalDays = secondIntervalDays
	default:
		next.IntervalDays = int(math.Round(float64(s.IntervalDays) * ease))
	}
	next.Repetitions = s.Repetitions + 1
	return next, nil
}

// DueAt returns the next review timestamp for a card rescheduled at now with
// the given interval. Kept out of Next so the interval arithmetic itself stays
// time-independent.
func DueAt(now time.Time, intervalDays int) time.Time {
	return now.AddDate(0, 0, intervalDays)
}
