package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method string
	path   string
	body   []byte
}

type backend struct {
	mu    sync.Mutex
	calls []captured
	srv   *httptest.Server
}

func newBackend(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) *backend {
	t.Helper()
	b := &backend{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.calls = append(b.calls, captured{method: r.Method, path: r.URL.Path, body: body})
		b.mu.Unlock()
		h(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) last() captured {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

func newClient(t *testing.T, b *backend) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(b.srv.URL+"/", b.srv.Client(), time.Second)
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPClient("/api", nil, 0)
	assert.Error(t, err)
	_, err = NewHTTPClient("://", nil, 0)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"g1","firstName":"Ada","status":"new"}]`))
	})
	c := newClient(t, b)

	recs, err := c.List(context.Background(), models.SourceGuest)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "g1", recs[0].ID)
	assert.Equal(t, http.MethodGet, b.last().method)
	assert.Equal(t, "/api/guests", b.last().path)
}

func TestList_OddDatesDoNotDropCollection(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"a","inTime":"2026-10-18T10:00:00.000Z"},{"_id":"b","inTime":"2026-10-18"},{"_id":"c","inTime":"n/a"}]`))
	})
	got, err := newClient(t, b).List(context.Background(), models.SourceVisitor)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].InTime.Valid)
	assert.True(t, got[1].InTime.Valid)
	assert.False(t, got[2].InTime.Valid)
	assert.Equal(t, "n/a", got[2].InTime.Malformed)
}

func TestList_NullBodyIsEmpty(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	recs, err := newClient(t, b).List(context.Background(), models.SourceAdhoc)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestUpdate_RoutesBySource(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := newClient(t, b)

	card := "B-12"
	for src, path := range map[models.Source]string{
		models.SourceVisitor: "/api/visitors/id-1",
		models.SourceGuest:   "/api/guests/id-1",
		models.SourceAdhoc:   "/api/adhoc/id-1",
	} {
		require.NoError(t, c.Update(context.Background(), src, "id-1", models.Patch{CardNo: &card}))
		got := b.last()
		assert.Equal(t, http.MethodPut, got.method)
		assert.Equal(t, path, got.path)
		assert.JSONEq(t, `{"cardNo":"B-12"}`, string(got.body))
	}
}

func TestRemoveFromUI(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	c := newClient(t, b)

	require.NoError(t, c.RemoveFromUI(context.Background(), models.SourceAdhoc, "a9", "Overdue > 24h and not authorized"))
	got := b.last()
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/api/adhoc/a9/remove-ui", got.path)
	assert.JSONEq(t, `{"reason":"Overdue > 24h and not authorized"}`, string(got.body))
}

func TestCreate(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	c := newClient(t, b)

	require.NoError(t, c.Create(context.Background(), models.SourceAdhoc, nil))
	assert.Empty(t, b.calls, "empty batch is not sent")

	in := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	err := c.Create(context.Background(), models.SourceAdhoc, []models.NewVisit{{
		FirstName: "Ada", Category: "Adhoc", Phone: "+919876543210",
		InTime: in, OutTime: in.Add(time.Hour), Status: models.StatusNew,
	}})
	require.NoError(t, err)

	got := b.last()
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/adhoc", got.path)

	var sent []map[string]any
	require.NoError(t, json.Unmarshal(got.body, &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "Adhoc", sent[0]["category"])
	assert.Equal(t, "new", sent[0]["status"])
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusServiceUnavailable, ErrUnavailable},
	}
	for _, tc := range cases {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.code)
		})
		_, err := newClient(t, b).List(context.Background(), models.SourceVisitor)
		assert.ErrorIs(t, err, tc.want, "code %d", tc.code)
	}
}

func TestErrorMapping_StatusErrorKeepsMessage(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid status transition"}`))
	})
	err := newClient(t, b).Update(context.Background(), models.SourceVisitor, "x", models.Patch{})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Invalid status transition", Message(err))
}

func TestErrorMapping_SentinelsKeepBackendMessage(t *testing.T) {
	for code, want := range map[int]error{
		http.StatusForbidden: ErrUnauthorized,
		http.StatusNotFound:  ErrNotFound,
	} {
		b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"message":"Guest record archived"}`))
		})
		err := newClient(t, b).Update(context.Background(), models.SourceGuest, "g1", models.Patch{})

		assert.ErrorIs(t, err, want, "code %d", code)
		var se *StatusError
		require.True(t, errors.As(err, &se), "code %d", code)
		assert.Equal(t, code, se.Code)
		assert.Equal(t, "Guest record archived", Message(err))
	}
}

func TestErrorMapping_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewHTTPClient(srv.URL, nil, time.Second)
	require.NoError(t, err)

	_, err = c.List(context.Background(), models.SourceVisitor)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "Backend is unavailable, please retry", Message(err))
}

func TestErrorMapping_Timeout(t *testing.T) {
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c, err := NewHTTPClient(b.srv.URL, b.srv.Client(), 50*time.Millisecond)
	require.NoError(t, err)

	_, err = c.List(context.Background(), models.SourceVisitor)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMessage_Fallbacks(t *testing.T) {
	assert.Equal(t, "Update failed", Message(errors.New("x")))
	assert.Equal(t, "Not authorized", Message(ErrUnauthorized))
	assert.Equal(t, "Record no longer exists", Message(ErrNotFound))
}
