// Package clienttest provides an in-memory backend for tests of packages
// that depend on client.Client.
package clienttest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/client"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

// Call records one invocation.
type Call struct {
	Method string
	Source models.Source
	ID     string
	Patch  models.Patch
	Reason string
	Visits []models.NewVisit
}

// Backend is a concurrency-safe fake of the visitor-management API.
type Backend struct {
	mu      sync.Mutex
	data    map[models.Source][]models.RawRecord
	calls   []Call
	nextID  int
	listErr map[models.Source]error

	// UpdateErr, when set, is returned by Update, RemoveFromUI and Create.
	UpdateErr error
	// ListHook runs before List returns and may block or fail.
	ListHook func(ctx context.Context, src models.Source) error
}

var _ client.Client = (*Backend)(nil)

func New() *Backend {
	return &Backend{
		data:    map[models.Source][]models.RawRecord{},
		listErr: map[models.Source]error{},
	}
}

// Put stores raw records for src, replacing what was there.
func (b *Backend) Put(src models.Source, recs ...models.RawRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[src] = append([]models.RawRecord(nil), recs...)
}

// FailList makes List(src) return err; nil clears it.
func (b *Backend) FailList(src models.Source, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.listErr, src)
		return
	}
	b.listErr[src] = err
}

// Get returns the stored raw record.
func (b *Backend) Get(src models.Source, id string) (models.RawRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.data[src] {
		if r.ID == id {
			return r, true
		}
	}
	return models.RawRecord{}, false
}

// Calls returns a copy of the recorded mutating calls.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

func (b *Backend) List(ctx context.Context, src models.Source) ([]models.RawRecord, error) {
	if b.ListHook != nil {
		if err := b.ListHook(ctx, src); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.listErr[src]; err != nil {
		return nil, err
	}
	return append([]models.RawRecord{}, b.data[src]...), nil
}

func (b *Backend) Update(ctx context.Context, src models.Source, id string, patch models.Patch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Method: "Update", Source: src, ID: id, Patch: patch})
	if b.UpdateErr != nil {
		return b.UpdateErr
	}

	i, err := b.index(src, id)
	if err != nil {
		return err
	}
	r := &b.data[src][i]
	if patch.Status != nil {
		r.Status = string(*patch.Status)
	}
	if patch.ActualInTime != nil {
		r.ActualInTime = models.Timestamp{Time: *patch.ActualInTime, Valid: true}
	}
	if patch.ActualOutTime != nil {
		r.ActualOutTime = models.Timestamp{Time: *patch.ActualOutTime, Valid: true}
	}
	if patch.Signature != nil {
		r.Signature = *patch.Signature
	}
	if patch.CardNo != nil {
		r.CardNo = *patch.CardNo
	}
	if patch.BadgeSurrendered != nil {
		r.BadgeSurrendered = *patch.BadgeSurrendered
	}
	if patch.HostApproved != nil {
		r.HostApproved = *patch.HostApproved
	}
	return nil
}

func (b *Backend) RemoveFromUI(ctx context.Context, src models.Source, id string, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Method: "RemoveFromUI", Source: src, ID: id, Reason: reason})
	if b.UpdateErr != nil {
		return b.UpdateErr
	}

	i, err := b.index(src, id)
	if err != nil {
		return err
	}
	b.data[src][i].RemovedFromUI = true
	return nil
}

func (b *Backend) Create(ctx context.Context, src models.Source, visits []models.NewVisit) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, Call{Method: "Create", Source: src, Visits: visits})
	if b.UpdateErr != nil {
		return b.UpdateErr
	}

	for _, v := range visits {
		b.nextID++
		b.data[src] = append(b.data[src], models.RawRecord{
			ID:             fmt.Sprintf("%s-%d", src, b.nextID),
			FirstName:      v.FirstName,
			LastName:       v.LastName,
			Company:        v.Company,
			Category:       v.Category,
			Host:           v.Host,
			PurposeOfVisit: v.PurposeOfVisit,
			Email:          v.Email,
			Phone:          v.Phone,
			SubmittedBy:    v.SubmittedBy,
			InTime:         models.Timestamp{Time: v.InTime, Valid: !v.InTime.IsZero()},
			OutTime:        models.Timestamp{Time: v.OutTime, Valid: !v.OutTime.IsZero()},
			Status:         string(v.Status),
		})
	}
	return nil
}

func (b *Backend) index(src models.Source, id string) (int, error) {
	for i, r := range b.data[src] {
		if r.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s/%s", client.ErrNotFound, src, id)
}

// Raw is a shorthand for building raw fixtures.
func Raw(id, first, last, company, status string) models.RawRecord {
	return models.RawRecord{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Company:   company,
		Status:    status,
	}
}

// At wraps t as a valid backend timestamp.
func At(t time.Time) models.Timestamp {
	return models.Timestamp{Time: t, Valid: true}
}
