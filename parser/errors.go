package parser

import (
	"context"
	"errors"
	"fmt"
	"net"
)

//*******************************************
// fetch errors
//*******************************************

type FetchReason byte

const (
	TIMEOUT           FetchReason = 1
	UNREACHABLE       FetchReason = 2
	EMPTY_RESPONSE    FetchReason = 3
	MALFORMED_PAYLOAD FetchReason = 4
	NOT_FOUND         FetchReason = 5
)

func (self FetchReason) String() string {
	switch self {
	case TIMEOUT:
		return "timeout"
	case UNREACHABLE:
		return "unreachable"
	case EMPTY_RESPONSE:
		return "empty-response"
	case MALFORMED_PAYLOAD:
		return "malformed-payload"
	case NOT_FOUND:
		return "not-found"
	}
	return ""
}

// FetchError is returned by every graph source when a mode graph could not be
// acquired.
type FetchError struct {
	Source string
	Reason FetchReason
	Err    error
}

func (self *FetchError) Error() string {
	if self.Err == nil {
		return fmt.Sprintf("%s: %s", self.Source, self.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", self.Source, self.Reason, self.Err)
}

func (self *FetchError) Unwrap() error {
	return self.Err
}

func _NewFetchError(source string, reason FetchReason, err error) *FetchError {
	return &FetchError{Source: source, Reason: reason, Err: err}
}

// Returns the reason of a fetch error or 0 if err is no fetch error.
func ReasonOf(err error) FetchReason {
	var fetch_err *FetchError
	if errors.As(err, &fetch_err) {
		return fetch_err.Reason
	}
	return 0
}

// Classifies transport level errors.
func _ClassifyError(source string, err error) *FetchError {
	var fetch_err *FetchError
	if errors.As(err, &fetch_err) {
		return fetch_err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return _NewFetchError(source, TIMEOUT, err)
	}
	var net_err net.Error
	if errors.As(err, &net_err) && net_err.Timeout() {
		return _NewFetchError(source, TIMEOUT, err)
	}
	return _NewFetchError(source, UNREACHABLE, err)
}
