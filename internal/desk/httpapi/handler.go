// Package httpapi exposes the security desk over HTTP for browser clients.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/desk/export"
	"github.com/dmitrijs2005/visitdesk/internal/desk/filter"
	"github.com/dmitrijs2005/visitdesk/internal/desk/journal"
	"github.com/dmitrijs2005/visitdesk/internal/desk/merger"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/pass"
	"github.com/dmitrijs2005/visitdesk/internal/desk/service"
	"github.com/dmitrijs2005/visitdesk/internal/desk/workflow"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
	"github.com/go-chi/chi/v5"
)

// Desk is the service behind the handlers.
type Desk interface {
	Query(c filter.Criteria) (service.View, error)
	Refresh(ctx context.Context) (merger.Result, error)
	Authorize(ctx context.Context, src models.Source, id string, consent bool, signature string) (workflow.Result, error)
	EditBadge(ctx context.Context, src models.Source, id, cardNo string) (workflow.Result, error)
	Checkout(ctx context.Context, src models.Source, id string, badgeSurrendered, hostApproved bool) (workflow.Result, error)
	Remove(ctx context.Context, src models.Source, id string, confirmed bool, reason string) (workflow.Result, error)
	PassHTML(ctx context.Context, src models.Source, id string) ([]byte, error)
	Consent(src models.Source, id string) (pass.Consent, error)
	Export(ctx context.Context, c filter.Criteria) (export.Report, error)
	RegisterAdhoc(ctx context.Context, visitors []service.AdhocVisitor) (int, error)
	Journal(ctx context.Context, q journal.Query) ([]journal.Entry, error)
	Loaded() bool
	UpdatedAt() time.Time
}

type Handler struct {
	desk   Desk
	logger logging.Logger
}

func NewHandler(desk Desk, logger logging.Logger) *Handler {
	return &Handler{desk: desk, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/desk/records", h.HandleList)
	r.Post("/api/desk/refresh", h.HandleRefresh)
	r.Get("/api/desk/export", h.HandleExport)
	r.Get("/api/desk/journal", h.HandleJournal)
	r.Post("/api/desk/adhoc", h.HandleAdhoc)

	r.Route("/api/desk/records/{source}/{id}", func(r chi.Router) {
		r.Post("/authorize", h.HandleAuthorize)
		r.Post("/badge", h.HandleBadge)
		r.Post("/checkout", h.HandleCheckout)
		r.Post("/remove", h.HandleRemove)
		r.Get("/pass", h.HandlePass)
		r.Get("/consent", h.HandleConsent)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	code, _, _ := status(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), msg, "error", err, "request_id", RequestIDFrom(r.Context()))
	} else {
		h.logger.Info(r.Context(), msg, "error", err, "request_id", RequestIDFrom(r.Context()))
	}
	writeError(w, err)
}

func criteriaFrom(r *http.Request) (filter.Criteria, error) {
	q := r.URL.Query()
	quick, err := filter.ParseQuick(q.Get("quick"))
	if err != nil {
		return filter.Criteria{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	c := filter.Criteria{
		Status: q.Get("status"),
		Query:  q.Get("q"),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Quick:  quick,
	}
	if c.Status == "" {
		c.Status = filter.StatusAll
	}
	return c, nil
}

func recordRef(r *http.Request) (models.Source, string, error) {
	src, err := models.ParseSource(chi.URLParam(r, "source"))
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", common.ErrorInvalidSource, chi.URLParam(r, "source"))
	}
	return src, chi.URLParam(r, "id"), nil
}

type ListResponse struct {
	service.View
	Loaded    bool      `json:"loaded"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ExportListResponse struct {
	Records []models.VisitRecord `json:"records"`
	Count   int                  `json:"count"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFrom(r)
	if err != nil {
		h.fail(w, r, "list records", err)
		return
	}

	v, err := h.desk.Query(c)
	if err != nil {
		h.fail(w, r, "list records", err)
		return
	}

	switch r.URL.Query().Get("view") {
	case "", "display":
		writeJSON(w, http.StatusOK, ListResponse{View: v, Loaded: h.desk.Loaded(), UpdatedAt: h.desk.UpdatedAt()})
	case "export":
		writeJSON(w, http.StatusOK, ExportListResponse{Records: v.Export, Count: len(v.Export)})
	default:
		h.fail(w, r, "list records", fmt.Errorf("%w: unknown view", errBadRequest))
	}
}

type RefreshResponse struct {
	Generation uint64          `json:"generation"`
	Applied    bool            `json:"applied"`
	Records    int             `json:"records"`
	Failed     []models.Source `json:"failed"`
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.desk.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, "refresh", err)
		return
	}
	failed := res.Failed
	if failed == nil {
		failed = []models.Source{}
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Generation: res.Generation, Applied: res.Applied, Records: res.Records, Failed: failed})
}

type AuthorizeRequest struct {
	Consent   bool   `json:"consent"`
	Signature string `json:"signature"`
}

type BadgeRequest struct {
	CardNo string `json:"cardNo"`
}

type CheckoutRequest struct {
	BadgeSurrendered bool `json:"badgeSurrendered"`
	HostApproved     bool `json:"hostApproved"`
}

type RemoveRequest struct {
	Confirm bool   `json:"confirm"`
	Reason  string `json:"reason"`
}

// action decodes the body into req and runs fn against the addressed record.
func action[T any](h *Handler, w http.ResponseWriter, r *http.Request, name string,
	fn func(ctx context.Context, src models.Source, id string, req T) (workflow.Result, error)) {
	src, id, err := recordRef(r)
	if err != nil {
		h.fail(w, r, name, err)
		return
	}

	var req T
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, name, err)
		return
	}

	res, err := fn(r.Context(), src, id, req)
	if err != nil {
		h.fail(w, r, name, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Record)
}

func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	action(h, w, r, "authorize", func(ctx context.Context, src models.Source, id string, req AuthorizeRequest) (workflow.Result, error) {
		return h.desk.Authorize(ctx, src, id, req.Consent, req.Signature)
	})
}

func (h *Handler) HandleBadge(w http.ResponseWriter, r *http.Request) {
	action(h, w, r, "edit badge", func(ctx context.Context, src models.Source, id string, req BadgeRequest) (workflow.Result, error) {
		return h.desk.EditBadge(ctx, src, id, req.CardNo)
	})
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	action(h, w, r, "checkout", func(ctx context.Context, src models.Source, id string, req CheckoutRequest) (workflow.Result, error) {
		return h.desk.Checkout(ctx, src, id, req.BadgeSurrendered, req.HostApproved)
	})
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	action(h, w, r, "remove", func(ctx context.Context, src models.Source, id string, req RemoveRequest) (workflow.Result, error) {
		return h.desk.Remove(ctx, src, id, req.Confirm, req.Reason)
	})
}

func (h *Handler) HandlePass(w http.ResponseWriter, r *http.Request) {
	src, id, err := recordRef(r)
	if err != nil {
		h.fail(w, r, "print pass", err)
		return
	}
	body, err := h.desk.PassHTML(r.Context(), src, id)
	if err != nil {
		h.fail(w, r, "print pass", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

func (h *Handler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	src, id, err := recordRef(r)
	if err != nil {
		h.fail(w, r, "consent", err)
		return
	}
	c, err := h.desk.Consent(src, id)
	if err != nil {
		h.fail(w, r, "consent", err)
		return
	}
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, c)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(c.Text()))
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFrom(r)
	if err != nil {
		h.fail(w, r, "export", err)
		return
	}
	rep, err := h.desk.Export(r.Context(), c)
	if err != nil {
		h.fail(w, r, "export", err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.FileName))
	w.Header().Set(common.ExportCountHeaderName, strconv.Itoa(rep.Count))
	_, _ = w.Write(rep.Data)
}

func (h *Handler) HandleJournal(w http.ResponseWriter, r *http.Request) {
	q := journal.Query{
		Source:   r.URL.Query().Get("source"),
		RecordID: r.URL.Query().Get("record"),
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.fail(w, r, "journal", fmt.Errorf("%w: limit", errBadRequest))
			return
		}
		q.Limit = n
	}

	entries, err := h.desk.Journal(r.Context(), q)
	if err != nil {
		h.fail(w, r, "journal", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type AdhocResponse struct {
	Created int `json:"created"`
}

func (h *Handler) HandleAdhoc(w http.ResponseWriter, r *http.Request) {
	var visitors []service.AdhocVisitor
	if err := decodeJSON(r, &visitors); err != nil {
		h.fail(w, r, "adhoc", err)
		return
	}
	n, err := h.desk.RegisterAdhoc(r.Context(), visitors)
	if err != nil {
		h.fail(w, r, "adhoc", err)
		return
	}
	writeJSON(w, http.StatusCreated, AdhocResponse{Created: n})
}
