package dashboard

import (
	"encoding/json"

	"github.com/vyrodovalexey/dashgw/internal/backend"
)

const keyPrefix = "dashboard:"

// Key identifies one dashboard: a subject and a period, taken verbatim
// from the request path.
type Key struct {
	SubjectID string
	Period    string
}

// NewKey creates a key.
func NewKey(subjectID, period string) Key {
	return Key{SubjectID: subjectID, Period: period}
}

// String renders the cache key, dashboard:<subject_id>:<period>.
func (k Key) String() string {
	return keyPrefix + k.SubjectID + ":" + k.Period
}

// Params returns the backend request parameters for the key.
func (k Key) Params() backend.Params {
	return backend.Params{SubjectID: k.SubjectID, Period: k.Period}
}

// Composite is the merged dashboard payload. Each section is the
// unmodified JSON body returned by its service.
type Composite struct {
	User       json.RawMessage `json:"user"`
	Attendance json.RawMessage `json:"attendance"`
	Leaves     json.RawMessage `json:"leaves"`
}

// Complete reports whether all three sections are present.
func (c Composite) Complete() bool {
	return present(c.User) && present(c.Attendance) && present(c.Leaves)
}

func present(m json.RawMessage) bool {
	return len(m) > 0
}
