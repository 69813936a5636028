package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/desk/client/clienttest"
	"github.com/dmitrijs2005/visitdesk/internal/desk/export"
	"github.com/dmitrijs2005/visitdesk/internal/desk/journal"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/service"
	"github.com/dmitrijs2005/visitdesk/internal/desk/signature"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

type rot struct{}

func (rot) Encrypt(s string) (string, error) { return "x" + s, nil }

func (rot) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "x") {
		return "", errors.New("bad")
	}
	return s[1:], nil
}

type latencies struct{ routes []string }

func (l *latencies) ObserveEndpointLatency(route string, _ time.Duration) {
	l.routes = append(l.routes, route)
}

type env struct {
	backend *clienttest.Backend
	srv     *httptest.Server
	lat     *latencies
}

func newEnv(t *testing.T) *env {
	t.Helper()
	b := clienttest.New()

	v1 := clienttest.Raw("v1", "Ada", "Lovelace", "Acme", "new")
	v1.InTime = clienttest.At(now.Add(-time.Hour))
	v2 := clienttest.Raw("v2", "Bob", "Late", "", "new")
	v2.InTime = clienttest.At(now.Add(-30 * time.Hour))
	b.Put(models.SourceVisitor, v1, v2)
	g1 := clienttest.Raw("g1", "Grace", "Hopper", "", "checkedIn")
	g1.ActualInTime = clienttest.At(now.Add(-time.Hour))
	b.Put(models.SourceGuest, g1)

	clock := func() time.Time { return now }
	svc := service.New(service.Config{Operator: "web", Location: time.UTC}, service.Deps{
		Client:   b,
		Cipher:   rot{},
		Journal:  journal.NewMemoryStore(),
		Exporter: export.New(export.Format{Location: time.UTC}, logging.Discard(), export.WithClock(clock)),
		Logger:   logging.Discard(),
		Clock:    clock,
	})
	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	lat := &latencies{}
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	r := NewRouter(NewHandler(svc, logging.Discard()), RouterConfig{Logger: logging.Discard(), Latency: lat, Metrics: metrics})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &env{backend: b, srv: srv, lat: lat}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func signatureURL(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	img.Set(0, 0, color.NRGBA{G: 200, A: 255})
	s, err := signature.Encode(img)
	require.NoError(t, err)
	return s
}

type listBody struct {
	Records []struct {
		ID      string   `json:"id"`
		Source  string   `json:"source"`
		Status  string   `json:"status"`
		Overdue bool     `json:"overdue"`
		Actions []string `json:"actions"`
	} `json:"records"`
	Counts struct {
		All       int `json:"all"`
		CheckedIn int `json:"checkedIn"`
	} `json:"counts"`
	Overdue []string `json:"overdue"`
	Loaded  bool     `json:"loaded"`
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(common.RequestIDHeaderName))
	h := decode[HealthResponse](t, resp)
	assert.True(t, h.Loaded)

	resp = e.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestID_Propagated(t *testing.T) {
	e := newEnv(t)

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/health", nil)
	req.Header.Set(common.RequestIDHeaderName, "desk-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "desk-42", resp.Header.Get(common.RequestIDHeaderName))

	req.Header.Set(common.RequestIDHeaderName, "bad id")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Len(t, resp2.Header.Get(common.RequestIDHeaderName), 36)
}

func TestList(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/api/desk/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[listBody](t, resp)

	require.Len(t, body.Records, 3)
	assert.Equal(t, 3, body.Counts.All)
	assert.Equal(t, []string{"visitor/v2"}, body.Overdue)
	assert.True(t, body.Records[1].Overdue)
	assert.Equal(t, []string{"authorize", "remove"}, body.Records[1].Actions)
	assert.True(t, body.Loaded)

	resp = e.do(t, http.MethodGet, "/api/desk/records?status=checkedIn&quick=today", nil)
	body = decode[listBody](t, resp)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "g1", body.Records[0].ID)

	assert.Contains(t, e.lat.routes, "/api/desk/records")
}

func TestList_BadInput(t *testing.T) {
	e := newEnv(t)

	for _, q := range []string{"?quick=tomorrow", "?status=gone", "?from=2025-13-01", "?view=pdf"} {
		resp := e.do(t, http.MethodGet, "/api/desk/records"+q, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		er := decode[ErrorResponse](t, resp)
		assert.Equal(t, "bad_request", er.Code, q)
	}
}

func TestList_ExportView(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/api/desk/records?view=export", nil)
	body := decode[ExportListResponse](t, resp)
	assert.Equal(t, 3, body.Count)
}

func TestAuthorize(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/desk/records/visitor/v1/authorize", AuthorizeRequest{Consent: false, Signature: signatureURL(t)})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	er := decode[ErrorResponse](t, resp)
	assert.Equal(t, "validation", er.Code)
	assert.Equal(t, "please check the consent checkbox to proceed", er.Message)

	resp = e.do(t, http.MethodPost, "/api/desk/records/visitor/v1/authorize", AuthorizeRequest{Consent: true, Signature: signatureURL(t)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[models.VisitRecord](t, resp)
	assert.Equal(t, models.StatusCheckedIn, rec.Status)

	resp = e.do(t, http.MethodPost, "/api/desk/records/visitor/v1/authorize", AuthorizeRequest{Consent: true, Signature: signatureURL(t)})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestActions_Errors(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/desk/records/planet/v1/badge", BadgeRequest{CardNo: "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/desk/records/guest/zzz/badge", BadgeRequest{CardNo: "1"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/api/desk/records/guest/g1/badge", strings.NewReader("{"))
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)

	e.backend.UpdateErr = errors.New("boom")
	resp = e.do(t, http.MethodPost, "/api/desk/records/guest/g1/checkout", CheckoutRequest{BadgeSurrendered: true, HostApproved: true})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	er := decode[ErrorResponse](t, resp)
	assert.Equal(t, "backend", er.Code)
	assert.Equal(t, "Update failed", er.Message)
}

func TestBadgeCheckoutRemove(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/desk/records/guest/g1/badge", BadgeRequest{CardNo: "B7"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "B7", decode[models.VisitRecord](t, resp).CardNo)

	resp = e.do(t, http.MethodPost, "/api/desk/records/guest/g1/checkout", CheckoutRequest{BadgeSurrendered: true})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/desk/records/guest/g1/checkout", CheckoutRequest{BadgeSurrendered: true, HostApproved: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.StatusCheckedOut, decode[models.VisitRecord](t, resp).Status)

	resp = e.do(t, http.MethodPost, "/api/desk/records/visitor/v1/remove", RemoveRequest{Confirm: true})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "not overdue")

	resp = e.do(t, http.MethodPost, "/api/desk/records/visitors/v2/remove", RemoveRequest{Confirm: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/desk/journal?record=v2", nil)
	entries := decode[[]journal.Entry](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, common.DefaultRemovalReason, entries[0].Reason)
}

func TestPassAndConsent(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/api/desk/records/guest/g1/pass", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = e.do(t, http.MethodGet, "/api/desk/records/visitor/v1/pass", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/desk/records/guest/g1/consent", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sb strings.Builder
	_, _ = sb.ReadFrom(resp.Body)
	assert.True(t, strings.HasPrefix(sb.String(), "Dear Guest,"))
}

func TestExport(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/api/desk/export?status=new", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", resp.Header.Get(common.ExportCountHeaderName))
	assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Visitors_2025-06-15.xlsx")
}

func TestAdhoc(t *testing.T) {
	e := newEnv(t)

	bad := []service.AdhocVisitor{{FirstName: "A", Phone: "1", InTime: now, OutTime: now}}
	resp := e.do(t, http.MethodPost, "/api/desk/adhoc", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	ok := []service.AdhocVisitor{{FirstName: "A", CountryCode: "+65", Phone: "81234567", InTime: now, OutTime: now.Add(time.Hour)}}
	resp = e.do(t, http.MethodPost, "/api/desk/adhoc", ok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, decode[AdhocResponse](t, resp).Created)
}

func TestRefresh(t *testing.T) {
	e := newEnv(t)
	e.backend.FailList(models.SourceGuest, errors.New("down"))

	resp := e.do(t, http.MethodPost, "/api/desk/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[RefreshResponse](t, resp)
	assert.True(t, body.Applied)
	assert.Equal(t, 2, body.Records)
	assert.Equal(t, []models.Source{models.SourceGuest}, body.Failed)
}
