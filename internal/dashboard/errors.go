package dashboard

import (
	"errors"
	"strings"

	"github.com/vyrodovalexey/dashgw/internal/backend"
)

// ErrAggregationIncomplete is matched by every *AggregationError.
var ErrAggregationIncomplete = errors.New("aggregation incomplete")

// AggregationError reports the services that failed during one fan-out.
type AggregationError struct {
	Key      Key
	Failures []backend.Outcome
}

// Error implements the error interface.
func (e *AggregationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Err.Error())
	}
	return ErrAggregationIncomplete.Error() + ": " + strings.Join(msgs, "; ")
}

// Unwrap returns the individual service errors.
func (e *AggregationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Is matches ErrAggregationIncomplete.
func (e *AggregationError) Is(target error) bool {
	return target == ErrAggregationIncomplete
}

// Services returns the names of the failed services in fan-out order.
func (e *AggregationError) Services() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Service)
	}
	return names
}
