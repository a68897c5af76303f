package backend

import (
	"errors"
	"fmt"
)

// Kind classifies a backend failure.
type Kind int

const (
	// KindUnavailable is a network or connection failure, a timeout, or an
	// open circuit breaker.
	KindUnavailable Kind = iota + 1

	// KindBadResponse is a non-2xx status or a body that is not JSON.
	KindBadResponse
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindBadResponse:
		return "bad_response"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by ServiceError.Is.
var (
	ErrUnavailable = errors.New("backend unavailable")
	ErrBadResponse = errors.New("backend bad response")
)

// ServiceError describes a failed call to a backend service.
type ServiceError struct {
	// Service is the name of the backend that failed.
	Service string

	// Kind classifies the failure.
	Kind Kind

	// StatusCode is the HTTP status returned, zero when no response arrived.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s service returned status %d", e.Service, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s service %s: %v", e.Service, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s service %s", e.Service, e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is matches ErrUnavailable and ErrBadResponse by kind.
func (e *ServiceError) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	case ErrBadResponse:
		return e.Kind == KindBadResponse
	}
	return false
}

func unavailable(service string, err error) *ServiceError {
	return &ServiceError{Service: service, Kind: KindUnavailable, Err: err}
}

func badResponse(service string, status int, err error) *ServiceError {
	return &ServiceError{Service: service, Kind: KindBadResponse, StatusCode: status, Err: err}
}
