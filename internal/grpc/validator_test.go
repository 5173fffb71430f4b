package server

import (
	"testing"
	"time"
)

func TestRequestValidator_Validate(t *testing.T) {
	validator := NewRequestValidator(0)
	now := time.Now()

	tests := []struct {
		name        string
		start       time.Time
		end         time.Time
		granularity string
		wantErr     bool
		errMessage  string
	}{
		{
			name:        "valid request",
			start:       now.Add(-24 * time.Hour),
			end:         now,
			granularity: "hour",
			wantErr:     false,
		},
		{
			name:        "missing timestamp",
			start:       time.Time{},
			end:         now,
			granularity: "hour",
			wantErr:     true,
			errMessage:  "missing timestamp",
		},
		{
			name:        "unix epoch timestamp",
			start:       time.Unix(0, 0),
			end:         now,
			granularity: "day",
			wantErr:     true,
			errMessage:  "missing timestamp",
		},
		{
			name:        "invalid time range",
			start:       now,
			end:         now.Add(-24 * time.Hour),
			granularity: "hour",
			wantErr:     true,
			errMessage:  "start time must be before end time",
		},
		{
			name:        "empty time range",
			start:       now,
			end:         now,
			granularity: "hour",
			wantErr:     true,
			errMessage:  "start time must be before end time",
		},
		{
			name:        "exceeds max time range",
			start:       now.Add(-3 * 365 * 24 * time.Hour),
			end:         now,
			granularity: "month",
			wantErr:     true,
			errMessage:  "time range exceeds maximum allowed",
		},
		{
			name:        "invalid granularity",
			start:       now.Add(-24 * time.Hour),
			end:         now,
			granularity: "minute",
			wantErr:     true,
			errMessage:  "invalid granularity: minute",
		},
		{
			name:        "empty granularity",
			start:       now.Add(-24 * time.Hour),
			end:         now,
			granularity: "",
			wantErr:     true,
			errMessage:  "invalid granularity: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.start, tt.end, tt.granularity)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMessage {
				t.Errorf("Validate() error message = %v, want %v", err.Error(), tt.errMessage)
			}
		})
	}
}

func TestRequestValidatorCustomRange(t *testing.T) {
	validator := NewRequestValidator(48 * time.Hour)
	now := time.Now()

	if err := validator.Validate(now.Add(-47*time.Hour), now, "hour"); err != nil {
		t.Errorf("Validate() unexpected error = %v", err)
	}
	if err := validator.Validate(now.Add(-49*time.Hour), now, "hour"); err == nil {
		t.Error("Validate() expected range error")
	}
}
