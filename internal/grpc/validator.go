package server

import (
	"fmt"
	"time"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// DefaultMaxRange is one leap year.
const DefaultMaxRange = 366 * 24 * time.Hour

// RequestValidator handles input validation
type RequestValidator struct {
	maxRange time.Duration
}

// NewRequestValidator creates a validator rejecting periods longer than
// maxRange. A non-positive maxRange falls back to DefaultMaxRange.
func NewRequestValidator(maxRange time.Duration) *RequestValidator {
	if maxRange <= 0 {
		maxRange = DefaultMaxRange
	}
	return &RequestValidator{maxRange: maxRange}
}

// Validate checks if the request parameters are valid
func (v *RequestValidator) Validate(start, end time.Time, granularity string) error {
	// Validate timestamps are present
	if start.IsZero() || end.IsZero() || start.Equal(time.Unix(0, 0)) || end.Equal(time.Unix(0, 0)) {
		return fmt.Errorf("missing timestamp")
	}

	// Validate time range
	if !start.Before(end) {
		return fmt.Errorf("start time must be before end time")
	}

	// Validate maximum time range
	if end.Sub(start) > v.maxRange {
		return fmt.Errorf("time range exceeds maximum allowed")
	}

	// Validate granularity
	if !models.Granularity(granularity).IsValid() {
		return fmt.Errorf("invalid granularity: %s", granularity)
	}

	return nil
}
