package merger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/client"
	"github.com/dmitrijs2005/visitdesk/internal/desk/client/clienttest"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/snapshot"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// prefixDecrypter "decrypts" values of the form "enc:<plain>".
type prefixDecrypter struct{}

func (prefixDecrypter) Decrypt(ct string) (string, error) {
	if !strings.HasPrefix(ct, "enc:") {
		return "", errors.New("bad ciphertext")
	}
	return strings.TrimPrefix(ct, "enc:"), nil
}

type fakeCache struct {
	mu      sync.Mutex
	saved   map[models.Source][]models.RawRecord
	loadErr error
	saveErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{saved: map[models.Source][]models.RawRecord{}}
}

func (c *fakeCache) Save(_ context.Context, src models.Source, raws []models.RawRecord, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saveErr != nil {
		return c.saveErr
	}
	c.saved[src] = raws
	return nil
}

func (c *fakeCache) LoadAll(context.Context) (map[models.Source][]models.RawRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	out := map[models.Source][]models.RawRecord{}
	for k, v := range c.saved {
		out[k] = v
	}
	return out, nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	fetches  map[string]int
	failures map[string]int
	applied  []bool
	decrypt  int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{fetches: map[string]int{}, failures: map[string]int{}}
}

func (m *fakeMetrics) ObserveFetch(src string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[src]++
	if err != nil {
		m.failures[src]++
	}
}

func (m *fakeMetrics) ObserveApply(applied bool, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, applied)
}

func (m *fakeMetrics) ObserveDecryptFailures(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decrypt += n
}

func seeded() *clienttest.Backend {
	b := clienttest.New()
	v := clienttest.Raw("v1", "Ada", "Lovelace", "Acme", "new")
	v.Signature = "enc:data:image/png;base64,AAA"
	hidden := clienttest.Raw("v2", "Hidden", "One", "Acme", "new")
	hidden.RemovedFromUI = true
	b.Put(models.SourceVisitor, v, hidden)

	g := clienttest.Raw("g1", "Grace", "Hopper", "", "checkedIn")
	g.Signature = "garbage"
	b.Put(models.SourceGuest, g)

	b.Put(models.SourceAdhoc, clienttest.Raw("a1", "Alan", "Turing", "", "checkedOut"))
	return b
}

func keys(rs []models.VisitRecord) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Key())
	}
	return out
}

func TestMerge_OrderTagsAndDecrypt(t *testing.T) {
	b := seeded()
	batches := map[models.Source][]models.RawRecord{}
	for _, src := range models.Sources {
		raws, err := b.List(context.Background(), src)
		require.NoError(t, err)
		batches[src] = raws
	}

	out, failed := Merge(batches, prefixDecrypter{})
	assert.Equal(t, []string{"visitor/v1", "guest/g1", "adhoc/a1"}, keys(out))
	assert.Equal(t, 1, failed)

	assert.Equal(t, "data:image/png;base64,AAA", out[0].DisplaySignature)
	assert.Empty(t, out[1].DisplaySignature, "undecryptable signature yields no display signature")
	assert.Equal(t, "garbage", out[1].Signature)
	assert.Equal(t, models.StatusCheckedOut, out[2].Status)
}

func TestMerge_Idempotent(t *testing.T) {
	b := seeded()
	batches := map[models.Source][]models.RawRecord{}
	for _, src := range models.Sources {
		batches[src], _ = b.List(context.Background(), src)
	}

	first, _ := Merge(batches, prefixDecrypter{})
	second, _ := Merge(batches, prefixDecrypter{})
	assert.Empty(t, cmp.Diff(first, second))
}

func TestMerge_NoDedupAcrossSources(t *testing.T) {
	batches := map[models.Source][]models.RawRecord{
		models.SourceVisitor: {clienttest.Raw("same", "A", "B", "", "new")},
		models.SourceAdhoc:   {clienttest.Raw("same", "C", "D", "", "new")},
	}
	out, _ := Merge(batches, nil)
	assert.Len(t, out, 2)
}

func TestRefresh_AppliesSnapshot(t *testing.T) {
	store := snapshot.New()
	mt := newFakeMetrics()
	m := New(seeded(), prefixDecrypter{}, store, logging.Discard(), WithMetrics(mt))

	res, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 3, res.Records)
	assert.Empty(t, res.Failed)
	assert.Equal(t, []string{"visitor/v1", "guest/g1", "adhoc/a1"}, keys(store.Records()))

	assert.Equal(t, 1, mt.fetches["visitor"])
	assert.Equal(t, 1, mt.fetches["guest"])
	assert.Equal(t, 1, mt.fetches["adhoc"])
	assert.Equal(t, []bool{true}, mt.applied)
	assert.Equal(t, 1, mt.decrypt)
}

func TestRefresh_SourceFailureIsIsolated(t *testing.T) {
	b := seeded()
	b.FailList(models.SourceGuest, errors.New("boom"))

	store := snapshot.New()
	mt := newFakeMetrics()
	m := New(b, prefixDecrypter{}, store, logging.Discard(), WithMetrics(mt))

	res, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, []models.Source{models.SourceGuest}, res.Failed)
	assert.Equal(t, []string{"visitor/v1", "adhoc/a1"}, keys(store.Records()))
	assert.Equal(t, 1, mt.failures["guest"])
}

func TestRefresh_MalformedDateKeepsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/api/visitors" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[
			{"_id":"a","firstName":"Ada","inTime":"2026-10-18T10:00:00.000Z","status":"new"},
			{"_id":"b","firstName":"Bob","inTime":"next tuesday","status":"new"}
		]`))
	}))
	t.Cleanup(srv.Close)

	c, err := client.NewHTTPClient(srv.URL, srv.Client(), time.Second)
	require.NoError(t, err)

	store := snapshot.New()
	res, err := New(c, prefixDecrypter{}, store, logging.Discard()).Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Failed)

	recs := store.Records()
	require.Equal(t, []string{"visitor/a", "visitor/b"}, keys(recs))
	require.NotNil(t, recs[0].TentativeInTime)
	assert.True(t, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC).Equal(*recs[0].TentativeInTime))
	assert.Nil(t, recs[1].TentativeInTime)
}

func TestRefresh_AllSourcesFailYieldsEmptySnapshot(t *testing.T) {
	b := seeded()
	for _, src := range models.Sources {
		b.FailList(src, errors.New("down"))
	}
	store := snapshot.New()
	m := New(b, prefixDecrypter{}, store, logging.Discard())

	res, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Failed, 3)
	assert.True(t, store.Loaded())
	assert.Empty(t, store.Records())
}

func TestRefresh_OverlappingPollsNewestWins(t *testing.T) {
	b := clienttest.New()
	b.Put(models.SourceVisitor, clienttest.Raw("old", "Old", "Data", "", "new"))

	release := make(chan struct{})
	firstStarted := make(chan struct{})
	var once sync.Once
	var callsMu sync.Mutex
	calls := 0

	b.ListHook = func(ctx context.Context, src models.Source) error {
		if src != models.SourceVisitor {
			return nil
		}
		callsMu.Lock()
		calls++
		n := calls
		callsMu.Unlock()
		if n == 1 {
			once.Do(func() { close(firstStarted) })
			<-release
		}
		return nil
	}

	store := snapshot.New()
	m := New(b, nil, store, logging.Discard())

	firstDone := make(chan Result, 1)
	go func() {
		res, _ := m.Refresh(context.Background())
		firstDone <- res
	}()
	<-firstStarted

	// data changes, second poll starts later but finishes first
	b.Put(models.SourceVisitor, clienttest.Raw("new", "New", "Data", "", "new"))
	second, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Applied)

	close(release)
	first := <-firstDone

	assert.Less(t, first.Generation, second.Generation)
	assert.False(t, first.Applied, "older fetch resolving last must be discarded")
	assert.Equal(t, []string{"visitor/new"}, keys(store.Records()))
}

func TestRefresh_ContextCanceled(t *testing.T) {
	store := snapshot.New()
	m := New(seeded(), nil, store, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.Loaded())
}

func TestRefresh_SavesCacheForHealthySources(t *testing.T) {
	b := seeded()
	b.FailList(models.SourceAdhoc, errors.New("down"))
	c := newFakeCache()
	c.saveErr = nil

	m := New(b, prefixDecrypter{}, snapshot.New(), logging.Discard(), WithCache(c))
	_, err := m.Refresh(context.Background())
	require.NoError(t, err)

	assert.Len(t, c.saved[models.SourceVisitor], 2, "raw batch is cached as fetched")
	assert.Len(t, c.saved[models.SourceGuest], 1)
	_, ok := c.saved[models.SourceAdhoc]
	assert.False(t, ok)
}

func TestRefresh_CacheSaveErrorIsNotFatal(t *testing.T) {
	c := newFakeCache()
	c.saveErr = errors.New("disk full")

	store := snapshot.New()
	m := New(seeded(), prefixDecrypter{}, store, logging.Discard(), WithCache(c))
	res, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Applied)
}

func TestWarm(t *testing.T) {
	c := newFakeCache()
	c.saved[models.SourceGuest] = []models.RawRecord{clienttest.Raw("g9", "Cached", "Guest", "", "new")}

	store := snapshot.New()
	m := New(seeded(), prefixDecrypter{}, store, logging.Discard(), WithCache(c))

	ok, err := m.Warm(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"guest/g9"}, keys(store.Records()))

	_, err = m.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"visitor/v1", "guest/g1", "adhoc/a1"}, keys(store.Records()))

	ok, err = m.Warm(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "warm after a live fetch is a no-op")
}

func TestWarm_NoCacheOrEmpty(t *testing.T) {
	m := New(seeded(), nil, snapshot.New(), logging.Discard())
	ok, err := m.Warm(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	m = New(seeded(), nil, snapshot.New(), logging.Discard(), WithCache(newFakeCache()))
	ok, err = m.Warm(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	bad := newFakeCache()
	bad.loadErr = errors.New("corrupt")
	m = New(seeded(), nil, snapshot.New(), logging.Discard(), WithCache(bad))
	_, err = m.Warm(context.Background())
	assert.Error(t, err)
}
