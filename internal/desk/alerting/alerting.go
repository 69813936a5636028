// Package alerting decides which new records are overdue. Being overdue
// changes nothing about a record; it only makes the remove action available.
package alerting

import (
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

// OverdueAfter is how long past its tentative check-in a new record may
// wait before it counts as overdue.
const OverdueAfter = 24 * time.Hour

// IsOverdue reports now > tentativeInTime + 24h for a record still in new.
// A record without a tentative check-in is never overdue.
func IsOverdue(r models.VisitRecord, now time.Time) bool {
	if r.Status != models.StatusNew || r.TentativeInTime == nil {
		return false
	}
	return now.After(r.TentativeInTime.Add(OverdueAfter))
}

// Overdue returns the keys (source/id) of overdue records, sorted.
func Overdue(records []models.VisitRecord, now time.Time) []string {
	out := []string{}
	for _, r := range records {
		if IsOverdue(r, now) {
			out = append(out, r.Key())
		}
	}
	sort.Strings(out)
	return out
}

// Monitor remembers the previous evaluation so callers can tell which
// records just crossed the threshold.
type Monitor struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{seen: map[string]struct{}{}}
}

// Evaluate returns all overdue keys and the subset that were not overdue
// at the previous call.
func (m *Monitor) Evaluate(records []models.VisitRecord, now time.Time) (overdue, fresh []string) {
	overdue = Overdue(records, now)

	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]struct{}, len(overdue))
	fresh = []string{}
	for _, k := range overdue {
		next[k] = struct{}{}
		if _, ok := m.seen[k]; !ok {
			fresh = append(fresh, k)
		}
	}
	m.seen = next
	return overdue, fresh
}
