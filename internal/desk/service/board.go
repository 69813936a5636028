package service

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/desk/filter"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

// Snapshot is the read side of the record store.
type Snapshot interface {
	Records() []models.VisitRecord
}

// Board holds one operator's filter inputs and the views derived from
// them. The views are recomputed whenever the snapshot changes, a filter
// input changes or the alert tick fires.
type Board struct {
	snap Snapshot
	now  func() time.Time

	mu       sync.RWMutex
	criteria filter.Criteria
	view     View
}

func NewBoard(snap Snapshot, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	b := &Board{snap: snap, now: now, criteria: filter.Criteria{Status: filter.StatusAll, Quick: filter.QuickNone}}
	_ = b.Recompute()
	return b
}

// Recompute re-runs the pipeline against the current snapshot and clock.
func (b *Board) Recompute() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recomputeLocked()
}

func (b *Board) recomputeLocked() error {
	v, err := Compute(b.snap.Records(), b.criteria, b.now())
	if err != nil {
		return err
	}
	b.view = v
	return nil
}

// View returns the last computed view.
func (b *Board) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view
}

func (b *Board) Criteria() filter.Criteria {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.criteria
}

// update applies fn to a copy of the criteria and keeps it only if the
// pipeline accepts it.
func (b *Board) update(fn func(c *filter.Criteria)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.criteria
	fn(&b.criteria)
	if err := b.recomputeLocked(); err != nil {
		b.criteria = prev
		return err
	}
	return nil
}

// SetStatus selects one status or "all".
func (b *Board) SetStatus(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, filter.StatusAll) {
		return b.update(func(c *filter.Criteria) { c.Status = filter.StatusAll })
	}
	st, err := models.ParseStatus(s)
	if err != nil {
		return fmt.Errorf("%w: %q", common.ErrorInvalidStatus, s)
	}
	return b.update(func(c *filter.Criteria) { c.Status = string(st) })
}

func (b *Board) SetQuery(q string) error {
	return b.update(func(c *filter.Criteria) { c.Query = q })
}

// SetRange sets explicit dates (YYYY-MM-DD, either may be empty) and
// clears any preset.
func (b *Board) SetRange(from, to string) error {
	return b.update(func(c *filter.Criteria) {
		c.From, c.To = strings.TrimSpace(from), strings.TrimSpace(to)
		c.Quick = filter.QuickNone
	})
}

// ToggleQuick selects a preset. Selecting the active preset again clears
// it together with any dates.
func (b *Board) ToggleQuick(q filter.Quick) error {
	return b.update(func(c *filter.Criteria) {
		c.From, c.To = "", ""
		if c.Quick == q || q == filter.QuickNone {
			c.Quick = filter.QuickNone
			return
		}
		c.Quick = q
	})
}

// ResetRange clears dates and preset, as done after every export.
func (b *Board) ResetRange() {
	_ = b.update(func(c *filter.Criteria) {
		c.From, c.To = "", ""
		c.Quick = filter.QuickNone
	})
}

// Clear restores every filter input to its default.
func (b *Board) Clear() {
	_ = b.update(func(c *filter.Criteria) {
		*c = filter.Criteria{Status: filter.StatusAll, Quick: filter.QuickNone}
	})
}
