package models

import "fmt"

// InvalidValueError flags a non-positive value passed to scaling or
// decomposition. It is always surfaced, never silently clamped.
type InvalidValueError struct {
	Source string
	Value  float64
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %v (must be positive)", e.Source, e.Value)
}

// InsufficientDataError flags a series too short for the requested
// computation.
type InsufficientDataError struct {
	Op   string
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: need at least %d points, got %d", e.Op, e.Need, e.Got)
}

// ScorerUnavailableError wraps a failure of the injected action scorer or
// trajectory source. It propagates; the pipeline never guesses a fallback.
type ScorerUnavailableError struct {
	Scorer string
	Err    error
}

func (e *ScorerUnavailableError) Error() string {
	return fmt.Sprintf("scorer %s unavailable: %v", e.Scorer, e.Err)
}

func (e *ScorerUnavailableError) Unwrap() error { return e.Err }
