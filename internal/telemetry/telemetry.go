// Package telemetry provides a JSONL event stream for lineage runs. Every
// registration, referral decision, query and simulation is recorded as a
// structured JSON event tagged with the run's session id, making runs
// auditable and easy to analyse after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds identify the type of telemetry event.
const (
	KindSessionStart     = "session_start"
	KindSessionDone      = "session_done"
	KindRegister         = "register"
	KindReferral         = "referral"
	KindReferralRejected = "referral_rejected"
	KindQuery            = "query"
	KindPathQuery        = "path_query"
	KindSimulation       = "simulation"
	KindTargetSearch     = "target_search"
	KindBonusSearch      = "bonus_search"
	KindScenarioRun      = "scenario_run"
	KindAudit            = "audit"
)

// Event represents a single telemetry record. Each event carries a
// timestamp, a kind tag, the session it belongs to, an optional subject
// (usually an address) and arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Session   string    `json:"session,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for
// concurrent use by multiple goroutines. A nil *Emitter is a valid no-op
// emitter.
type Emitter struct {
	file    *os.File
	enc     *json.Encoder
	session string
	now     func() time.Time
	mu      sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it
// does. Each emitter gets a fresh session id.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file:    f,
		enc:     json.NewEncoder(f),
		session: uuid.NewString(),
		now:     time.Now,
	}, nil
}

// Session returns the session id stamped on events. Empty for a nil
// Emitter.
func (e *Emitter) Session() string {
	if e == nil {
		return ""
	}
	return e.session
}

// Emit writes a single event to the JSONL file. A zero Timestamp is set
// to the current time and an empty Session to the emitter's session.
// Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if evt.Session == "" {
		evt.Session = e.session
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record is shorthand for Emit with only kind, subject and data set.
func (e *Emitter) Record(kind, subject string, data any) error {
	return e.Emit(Event{Kind: kind, Subject: subject, Data: data})
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
