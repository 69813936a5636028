package snapshot

import (
	"sync"
	"testing"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recs(ids ...string) []models.VisitRecord {
	out := make([]models.VisitRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.VisitRecord{ID: id, Source: models.SourceVisitor, Status: models.StatusNew})
	}
	return out
}

func ids(rs []models.VisitRecord) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestStore_Empty(t *testing.T) {
	s := New()
	assert.False(t, s.Loaded())
	assert.Empty(t, s.Records())
	assert.Zero(t, s.Generation())
}

func TestStore_NewerWins(t *testing.T) {
	s := New()
	g1 := s.Begin()
	g2 := s.Begin()
	require.Less(t, g1, g2)

	// second fetch resolves first
	assert.True(t, s.Apply(g2, recs("second")))
	assert.False(t, s.Apply(g1, recs("first")), "stale generation must be dropped")

	assert.Equal(t, []string{"second"}, ids(s.Records()))
	assert.Equal(t, g2, s.Generation())
}

func TestStore_InOrderApplies(t *testing.T) {
	s := New()
	g1 := s.Begin()
	g2 := s.Begin()

	assert.True(t, s.Apply(g1, recs("a")))
	assert.True(t, s.Apply(g2, recs("b", "c")))
	assert.Equal(t, []string{"b", "c"}, ids(s.Records()))
}

func TestStore_SameGenerationTwice(t *testing.T) {
	s := New()
	g := s.Begin()
	assert.True(t, s.Apply(g, recs("a")))
	assert.False(t, s.Apply(g, recs("b")))
	assert.Equal(t, []string{"a"}, ids(s.Records()))
}

func TestStore_RecordsAreCopies(t *testing.T) {
	s := New()
	in := recs("a")
	s.Apply(s.Begin(), in)

	in[0].ID = "mutated"
	got := s.Records()
	got[0].Status = models.StatusCheckedOut

	again := s.Records()
	assert.Equal(t, "a", again[0].ID)
	assert.Equal(t, models.StatusNew, again[0].Status)
}

func TestStore_Find(t *testing.T) {
	s := New()
	s.Apply(s.Begin(), recs("a", "b"))

	r, ok := s.Find(models.SourceVisitor, "b")
	require.True(t, ok)
	assert.Equal(t, "b", r.ID)

	_, ok = s.Find(models.SourceGuest, "b")
	assert.False(t, ok)
}

func TestStore_Subscribe(t *testing.T) {
	s := New()
	var got []uint64
	s.Subscribe(func(gen uint64) { got = append(got, gen) })

	g1 := s.Begin()
	g2 := s.Begin()
	s.Apply(g2, nil)
	s.Apply(g1, nil)

	assert.Equal(t, []uint64{g2}, got)
	assert.NotNil(t, s.Records())
	assert.False(t, s.UpdatedAt().IsZero())
}

func TestStore_ConcurrentApplyKeepsHighest(t *testing.T) {
	s := New()
	const n = 64

	gens := make([]uint64, n)
	for i := range gens {
		gens[i] = s.Begin()
	}

	var wg sync.WaitGroup
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(g uint64) {
			defer wg.Done()
			s.Apply(g, recs("x"))
		}(gens[i])
	}
	wg.Wait()

	assert.Equal(t, gens[n-1], s.Generation())
}

func TestStore_SeedNeverBlocksLiveFetch(t *testing.T) {
	s := New()
	g := s.Begin() // live fetch in flight

	assert.True(t, s.Seed(recs("cached")))
	assert.True(t, s.Loaded())
	assert.Equal(t, []string{"cached"}, ids(s.Records()))
	assert.Zero(t, s.Generation())

	assert.True(t, s.Apply(g, recs("live")))
	assert.Equal(t, []string{"live"}, ids(s.Records()))

	assert.False(t, s.Seed(recs("late cache")))
	assert.Equal(t, []string{"live"}, ids(s.Records()))
}
