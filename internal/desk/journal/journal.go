// Package journal is the append-only record of every action an operator
// attempted at the desk, including rejected and failed ones.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Outcome of an attempted action.
type Outcome string

const (
	OutcomeApplied  Outcome = "applied"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

type Entry struct {
	ID       string    `json:"id"`
	RecordID string    `json:"recordId"`
	Source   string    `json:"source"`
	Action   string    `json:"action"`
	Operator string    `json:"operator"`
	Reason   string    `json:"reason,omitempty"`
	Outcome  Outcome   `json:"outcome"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Query narrows List. Zero values match everything; Limit 0 means 100.
type Query struct {
	Source   string
	RecordID string
	Limit    int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return 100
	}
	return q.Limit
}

// Store persists entries. List returns newest first.
type Store interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, q Query) ([]Entry, error)
}

// prepare fills the id and timestamp if the caller left them empty.
func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC().Truncate(time.Millisecond)
	return e
}
