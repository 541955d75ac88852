package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrExhaustedOutsidePhase indicates an exhaustion timestamp outside the phase range.
var ErrExhaustedOutsidePhase = errors.New("exhausted timestamp is outside the voucher phase range")

// EpochID derives the congress period identifier for a point in time.
// The congress number increases by one each year.
func EpochID(now time.Time) string {
	return fmt.Sprintf("%dC3", now.Year()-1986)
}

// PhaseRange bounds the period during which returned codes are accepted for
// one epoch.
type PhaseRange struct {
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	ExhaustedAt *time.Time `json:"exhausted_at,omitempty"`
}

// Contains reports whether now falls inside the range, bounds inclusive.
func (r PhaseRange) Contains(now time.Time) bool {
	return !now.Before(r.Start) && !now.After(r.End)
}

// MarkExhausted records when the upstream pool ran out of codes. The
// timestamp must fall within the phase range.
func (r *PhaseRange) MarkExhausted(at time.Time) error {
	if !r.Contains(at) {
		return ErrExhaustedOutsidePhase
	}
	r.ExhaustedAt = &at
	return nil
}
