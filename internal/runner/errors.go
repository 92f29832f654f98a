package runner

import (
	"fmt"
	"time"
)

// Every error kind carries the job's last known status so callers can decide
// whether the job is still worth tracking.

type SubmissionError struct {
	LastStatus Status
	error
}

func NewSubmissionError(last Status, err error) *SubmissionError {
	return &SubmissionError{LastStatus: last, error: fmt.Errorf("submission rejected: %v", err)}
}

type PollingError struct {
	LastStatus Status
	Attempts   int
	error
}

func NewPollingError(last Status, attempts int, err error) *PollingError {
	return &PollingError{
		LastStatus: last,
		Attempts:   attempts,
		error:      fmt.Errorf("status query failed %d consecutive times: %v", attempts, err),
	}
}

type TimeoutError struct {
	LastStatus Status
	error
}

func NewTimeoutError(last Status, timeout time.Duration) *TimeoutError {
	return &TimeoutError{
		LastStatus: last,
		error:      fmt.Errorf("no terminal state within %s, last observed status: %s", timeout, last),
	}
}

type ResultError struct {
	LastStatus Status
	error
}

func NewResultError(last Status, err error) *ResultError {
	return &ResultError{LastStatus: last, error: err}
}
