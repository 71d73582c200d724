package engine

import (
	"errors"
	"fmt"
	"sync"
)

// QuotaEnforcer counts the actions dispatched by one run and enforces a
// maximum. Nested program actions share their outer run's enforcer, so a
// script that dispatches itself is bounded the same way as a long linear
// chain.
type QuotaEnforcer struct {
	mu       sync.Mutex
	maxSteps int
	current  int
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
// A limit of 0 or less disables the quota.
func NewQuotaEnforcer(maxSteps int) *QuotaEnforcer {
	return &QuotaEnforcer{maxSteps: maxSteps}
}

// Check increments the step counter and validates against the limit.
func (q *QuotaEnforcer) Check(run string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.current++
	if q.maxSteps > 0 && q.current > q.maxSteps {
		return &StepsExceededError{
			Run:   run,
			Steps: q.current,
			Limit: q.maxSteps,
		}
	}
	return nil
}

// Current returns the current step count.
func (q *QuotaEnforcer) Current() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// MaxSteps returns the maximum steps limit.
func (q *QuotaEnforcer) MaxSteps() int {
	return q.maxSteps
}

// StepsExceededError is returned when a run dispatches more actions than
// its quota allows.
type StepsExceededError struct {
	Run   string // specifier of the run
	Steps int    // number of steps taken
	Limit int    // maximum allowed steps
}

// Error implements the error interface.
func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded max steps quota: %d steps > %d limit",
		e.Run, e.Steps, e.Limit)
}

// IsStepsExceededError returns true if the error is a StepsExceededError.
// Uses errors.As to handle wrapped errors.
func IsStepsExceededError(err error) bool {
	var se *StepsExceededError
	return errors.As(err, &se)
}
