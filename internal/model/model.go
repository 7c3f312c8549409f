// Package model defines the runtime data model shared by the store, the
// worker client, and the reconciliation engine.
//
// Persisted entities (Checklist, Snapshot) map 1:1 to database rows.
// Flow and Assertion are request-scoped projections: a Flow loaded for a run
// carries its stored snapshots as Assertions, and the engine annotates them
// with fresh values and results before the Flow is returned to the caller.
// The annotated copy is never written back as-is; the snapshots table stays
// the single source of truth.
package model

// Checklist identifies one test target: a worker endpoint owned by an API key.
type Checklist struct {
	ID           int64  `json:"id"`
	APIKeyID     int64  `json:"-"`
	WorkerOrigin string `json:"workerOrigin"`
}

// APIKey is an authentication credential. Keys own checklists and webhooks.
type APIKey struct {
	ID  int64
	Key string
}

// Snapshot is the persisted expected value for one (flow, assertion name)
// pair. (FlowID, Name) is unique; that constraint is what makes concurrent
// runs of the same checklist safe.
type Snapshot struct {
	ID     int64
	FlowID int64
	Name   string
	Value  string
}

// Assertion returns the runtime projection of a stored snapshot: the stored
// value becomes the assertion's current snapshot, with no result computed yet.
func (s Snapshot) Assertion() Assertion {
	return Assertion{Name: s.Name, Snapshot: s.Value}
}

// Result classifies one assertion after a run.
type Result string

const (
	// ResultNew means no prior snapshot existed for the assertion's name.
	ResultNew Result = "NEW"
	// ResultMatch means the observed value structurally equals the snapshot.
	ResultMatch Result = "MATCH"
	// ResultMiss means the observed value differs from the snapshot, or one
	// of the two could not be parsed for comparison.
	ResultMiss Result = "MISS"
)

// Assertion is one named check within a flow.
//
// Snapshot holds the freshly observed value after a run (or the stored value
// when the assertion was built from a persisted Snapshot). ExpectedSnapshot
// is only set on a MISS and carries the stored value so callers can diff.
type Assertion struct {
	Name             string `json:"name"`
	Snapshot         string `json:"snapshot"`
	Result           Result `json:"result,omitempty"`
	ExpectedSnapshot string `json:"expectedSnapshot,omitempty"`
}

// Summary tallies assertion results within one flow for one run.
type Summary struct {
	Match int `json:"match"`
	Miss  int `json:"miss"`
	New   int `json:"new"`
}

// Add increments the counter for the given result.
func (s *Summary) Add(r Result) {
	switch r {
	case ResultMatch:
		s.Match++
	case ResultMiss:
		s.Miss++
	case ResultNew:
		s.New++
	}
}

// Flow is a named, ordered group of assertions within a checklist.
// Name is the merge key between persisted state and worker output; it is
// unique within a checklist and compared with exact string equality.
type Flow struct {
	ID         int64       `json:"-"`
	Name       string      `json:"name"`
	Assertions []Assertion `json:"assertions"`
	Summary    Summary     `json:"summary"`
}

// Schedule triggers periodic runs of a checklist from a cron expression.
type Schedule struct {
	ID          int64  `json:"id"`
	ChecklistID int64  `json:"checklistId"`
	Cron        string `json:"cron"`
}

// Webhook receives a POST whenever an event of its type fires for its key.
type Webhook struct {
	ID        int64  `json:"id"`
	APIKeyID  int64  `json:"-"`
	EventType string `json:"eventType"`
	URL       string `json:"url"`
}

// EventChecklistRun is the webhook event type fired after a scheduled run.
const EventChecklistRun = "checklist.run"
