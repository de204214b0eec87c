package ec2

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/chainguard-dev/imagetest-ec2/internal/wait"
)

var ErrImageNotFound = fmt.Errorf("image not found")

// ActionFailedError is the single failure signal surfaced by 'Create' and
// 'Destroy' for provider errors and exhausted readiness waits. Its message is
// the message of the error it carries.
type ActionFailedError struct {
	Err error
}

func (e *ActionFailedError) Error() string { return e.Err.Error() }

func (e *ActionFailedError) Unwrap() error { return e.Err }

// ProviderError is any transport or API failure returned by EC2. 'Op' names
// the API call; the message is left untouched.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

// ConfigError reports a configuration value the driver cannot work with. It
// is always returned before any provider call is attempted.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %q: %s", e.Key, e.Reason)
}

func configErrorf(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

func providerError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Op: op, Err: err}
}

// actionFailed converts provider and readiness failures to an
// 'ActionFailedError', leaving every other error as is.
func actionFailed(err error) error {
	if err == nil {
		return nil
	}
	var failed *ActionFailedError
	if errors.As(err, &failed) {
		return err
	}
	// Provider failures keep the provider's message, whatever step wrapped
	// them on the way up. Several joined failures keep all their messages.
	var perr *ProviderError
	if errors.As(err, &perr) {
		if countProviderErrors(err) > 1 {
			return &ActionFailedError{Err: err}
		}
		return &ActionFailedError{Err: perr}
	}
	if errors.Is(err, wait.ErrAttemptsExhausted) ||
		errors.Is(err, wait.ErrTimeout) {
		return &ActionFailedError{Err: err}
	}
	return err
}

// countProviderErrors counts the outermost '*ProviderError's in the tree of
// 'err'.
func countProviderErrors(err error) int {
	switch e := err.(type) {
	case nil:
		return 0
	case *ProviderError:
		return 1
	case interface{ Unwrap() []error }:
		n := 0
		for _, inner := range e.Unwrap() {
			n += countProviderErrors(inner)
		}
		return n
	default:
		return countProviderErrors(errors.Unwrap(err))
	}
}

// isAPIErrorCode reports whether 'err' is an EC2 API error with one of
// 'codes'.
func isAPIErrorCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}
