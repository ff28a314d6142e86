package domain

import (
	"fmt"
	"time"
)

// DefaultInterval is the check interval used when none was configured.
const DefaultInterval = 30 * time.Second

// Intervals lists the check intervals an operator may choose from.
var Intervals = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
}

// ValidateInterval returns ErrInvalidInterval unless d is one of Intervals.
func ValidateInterval(d time.Duration) error {
	for _, v := range Intervals {
		if d == v {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
}
