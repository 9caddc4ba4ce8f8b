package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors
	ErrInvalidConfig      = errors.New("invalid engine configuration")
	ErrInvalidWorkerCount = fmt.Errorf("%w: invalid number of streaming workers", ErrInvalidConfig)
	ErrInvalidMapping     = fmt.Errorf("%w: invalid rank in GPU mapping", ErrInvalidConfig)
	ErrMappingLength      = fmt.Errorf("%w: invalid length of GPU mapping", ErrInvalidConfig)
	ErrInvalidTuning      = fmt.Errorf("%w: inconsistent tuning", ErrInvalidConfig)
	ErrNoGPUSupport       = fmt.Errorf("%w: GPU workers requested without a device", ErrInvalidConfig)
	ErrEmptyGraph         = fmt.Errorf("%w: graph has no vertices", ErrInvalidConfig)

	// Resource errors
	ErrResourceExhausted = errors.New("device resources exhausted")
	ErrDeviceFailure     = errors.New("device operation failed")

	// Runtime errors
	ErrNegativeTheta      = errors.New("theta must be non-negative")
	ErrEngineClosed       = errors.New("engine is closed")
	ErrConcurrentGenerate = errors.New("generate is not reentrant")
	ErrGenerateRunning    = errors.New("engine is generating")
)

// NewMappingError reports an invalid token of a GPU mapping string.
func NewMappingError(token string, reason string) error {
	return fmt.Errorf("%w: %q %s", ErrInvalidMapping, token, reason)
}

// NewResourceError reports a failed device allocation.
func NewResourceError(resource string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrResourceExhausted, resource, err)
}

// Error checking helpers
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

func IsResourceError(err error) bool {
	return errors.Is(err, ErrResourceExhausted) ||
		errors.Is(err, ErrDeviceFailure)
}
