package services

import "errors"

// Typed failure conditions surfaced to the HTTP boundary. Handlers map these
// with errors.Is onto response codes.
var (
	// ErrInvalidDate rejects date strings that are not a fixed-length
	// YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrNotReady is returned when a prediction is requested before the
	// first successful model training has completed.
	ErrNotReady = errors.New("prediction model not trained yet")

	// ErrEmptyAggregate is returned when an average is requested over an
	// area with no persisted prices.
	ErrEmptyAggregate = errors.New("no prices recorded for area")
)
