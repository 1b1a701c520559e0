// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package remote

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that every attempt against an endpoint ran past
// the per-attempt deadline. It is returned only after the retry budget
// is exhausted.
type TimeoutError struct {
	Endpoint string
	Timeout  time.Duration
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("remote: %s timed out after %d attempts of %s each", e.Endpoint, e.Attempts, e.Timeout)
}

// NetworkError reports a transport-level failure (connection refused,
// DNS, reset) that persisted across the retry budget.
type NetworkError struct {
	Endpoint string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("remote: %s unreachable after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response. 4xx statuses are returned on
// the first attempt; 5xx statuses only after the retry budget.
type HTTPError struct {
	Endpoint string
	Status   int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("remote: %s returned status %d", e.Endpoint, e.Status)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// HTTPStatus returns the status code carried by err, or 0 when err is
// not an HTTPError.
func HTTPStatus(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}
