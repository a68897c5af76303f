// Package backend provides the HTTP clients for the services the
// dashboard is assembled from.
//
// Each Client issues a single GET against a base URL and path template
// and reports the result as an Outcome. A Client never returns a panic or
// an untyped error to its caller: every failure is a *ServiceError whose
// Kind tells a network failure (KindUnavailable) apart from a bad reply
// (KindBadResponse). Calls are bounded by a per-service timeout and are
// never retried here.
//
// # Path templates
//
// The placeholders {subject_id} and {period} are replaced with the
// path-escaped request parameters:
//
//	client, _ := backend.NewClient("attendance", config.BackendConfig{
//	    URL:  "http://localhost:3002",
//	    Path: "/attendance/{subject_id}/{period}",
//	})
//	out := client.Fetch(ctx, backend.Params{SubjectID: "123", Period: "01"})
//	if out.Err != nil {
//	    // *backend.ServiceError
//	}
//
// # Circuit breaking
//
// When enabled in configuration, each client wraps its calls in a
// sony/gobreaker circuit breaker. While the breaker is open, calls fail
// fast with KindUnavailable.
package backend
