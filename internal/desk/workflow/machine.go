// Package workflow is the per-record status state machine:
// new -> checkedIn -> checkedOut, plus the side actions allowed in each
// state. Preconditions are checked as one unit before any backend call,
// every accepted action is persisted and then followed by a refresh.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/desk/alerting"
	"github.com/dmitrijs2005/visitdesk/internal/desk/journal"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/signature"
	"github.com/dmitrijs2005/visitdesk/internal/logging"
)

type Action string

const (
	ActionAuthorize Action = "authorize"
	ActionRemove    Action = "remove"
	ActionEditBadge Action = "badge"
	ActionPrintPass Action = "pass"
	ActionCheckout  Action = "checkout"
)

// ParseAction accepts the action names used in URLs and console commands.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rules[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

type rule struct {
	from models.Status
	to   models.Status
}

var rules = map[Action]rule{
	ActionAuthorize: {from: models.StatusNew, to: models.StatusCheckedIn},
	ActionRemove:    {from: models.StatusNew, to: models.StatusNew},
	ActionEditBadge: {from: models.StatusCheckedIn, to: models.StatusCheckedIn},
	ActionPrintPass: {from: models.StatusCheckedIn, to: models.StatusCheckedIn},
	ActionCheckout:  {from: models.StatusCheckedIn, to: models.StatusCheckedOut},
}

// actionOrder fixes the order Allowed reports actions in.
var actionOrder = []Action{ActionAuthorize, ActionRemove, ActionEditBadge, ActionPrintPass, ActionCheckout}

// Persister writes changes to the backend.
type Persister interface {
	Update(ctx context.Context, src models.Source, id string, patch models.Patch) error
	RemoveFromUI(ctx context.Context, src models.Source, id string, reason string) error
}

// Encrypter seals the signature image before it leaves the desk.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// Metrics receives one observation per attempted action.
type Metrics interface {
	ObserveTransition(action string, outcome string)
}

// RefreshFunc is called after every persisted action.
type RefreshFunc func(ctx context.Context)

// Preconditions are the operator's inputs gating an action. Only the
// fields relevant to the action are looked at.
type Preconditions struct {
	ConsentChecked   bool
	Signature        string
	CardNo           string
	BadgeSurrendered bool
	HostApproved     bool
	Confirmed        bool
	Reason           string
}

// Check evaluates every precondition of a for rec at now.
func (p Preconditions) Check(a Action, rec models.VisitRecord, now time.Time) error {
	fail := func(err error) error { return &ValidationError{Action: a, Err: err} }

	switch a {
	case ActionAuthorize:
		if !p.ConsentChecked {
			return fail(ErrConsentRequired)
		}
		blank, err := signature.IsBlank(p.Signature)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", ErrSignatureInvalid, err))
		}
		if blank {
			return fail(ErrSignatureRequired)
		}
	case ActionRemove:
		if !alerting.IsOverdue(rec, now) {
			return fail(ErrNotOverdue)
		}
		if !p.Confirmed {
			return fail(ErrConfirmationRequired)
		}
	case ActionEditBadge:
		if strings.TrimSpace(p.CardNo) == "" {
			return fail(ErrBadgeRequired)
		}
	case ActionCheckout:
		if !p.BadgeSurrendered || !p.HostApproved {
			return fail(ErrCheckoutApprovalsRequired)
		}
	}
	return nil
}

// Request is one attempted action on one record.
type Request struct {
	Action Action
	Record models.VisitRecord
	Pre    Preconditions
}

// Result is the record as the backend now holds it.
type Result struct {
	Record models.VisitRecord
	Patch  models.Patch
}

type Machine struct {
	persist  Persister
	enc      Encrypter
	journal  journal.Store
	refresh  RefreshFunc
	metrics  Metrics
	logger   logging.Logger
	operator string
	now      func() time.Time
}

type Option func(*Machine)

func WithJournal(j journal.Store) Option { return func(m *Machine) { m.journal = j } }

func WithRefresh(f RefreshFunc) Option { return func(m *Machine) { m.refresh = f } }

func WithMetrics(mt Metrics) Option { return func(m *Machine) { m.metrics = mt } }

func WithOperator(name string) Option { return func(m *Machine) { m.operator = name } }

func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

func New(p Persister, enc Encrypter, logger logging.Logger, opts ...Option) *Machine {
	m := &Machine{
		persist:  p,
		enc:      enc,
		logger:   logger,
		operator: "security-desk",
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Allowed lists the actions available for rec at now.
func Allowed(rec models.VisitRecord, now time.Time) []Action {
	out := []Action{}
	for _, a := range actionOrder {
		if rules[a].from != rec.Status {
			continue
		}
		if a == ActionRemove && !alerting.IsOverdue(rec, now) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Execute runs req through transition check, preconditions, persistence,
// journal and refresh, in that order. On any error nothing was written to
// the backend and the caller's state should stay as it was.
func (m *Machine) Execute(ctx context.Context, req Request) (Result, error) {
	rec := req.Record
	log := m.logger.With("record_id", rec.ID, "source", string(rec.Source), "action", string(req.Action))
	now := m.now()

	r, ok := rules[req.Action]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if rec.Status != r.from {
		err := fmt.Errorf("%w: %s from %s", ErrInvalidTransition, req.Action, rec.Status)
		m.record(ctx, req, journal.OutcomeRejected, err)
		log.Warn(ctx, "transition rejected", "status", string(rec.Status))
		return Result{}, err
	}

	if err := req.Pre.Check(req.Action, rec, now); err != nil {
		m.record(ctx, req, journal.OutcomeRejected, err)
		log.Info(ctx, "precondition failed", "error", err)
		return Result{}, err
	}

	if req.Action == ActionPrintPass {
		m.record(ctx, req, journal.OutcomeApplied, nil)
		return Result{Record: rec}, nil
	}

	if req.Action == ActionRemove {
		return m.remove(ctx, req, log)
	}

	patch, err := m.buildPatch(req, r.to, now)
	if err != nil {
		m.record(ctx, req, journal.OutcomeFailed, err)
		log.Error(ctx, "signature encryption failed", "error", err)
		return Result{}, err
	}

	if err := m.persist.Update(ctx, rec.Source, rec.ID, patch); err != nil {
		err = fmt.Errorf("%w: %w", ErrPersist, err)
		m.record(ctx, req, journal.OutcomeFailed, err)
		log.Error(ctx, "persist failed", "error", err)
		return Result{}, err
	}

	m.record(ctx, req, journal.OutcomeApplied, nil)
	log.Info(ctx, "transition applied", "from", string(rec.Status), "to", string(r.to))
	m.afterPersist(ctx)

	return Result{Record: patch.Apply(rec), Patch: patch}, nil
}

func (m *Machine) remove(ctx context.Context, req Request, log logging.Logger) (Result, error) {
	rec := req.Record
	reason := strings.TrimSpace(req.Pre.Reason)
	if reason == "" {
		reason = common.DefaultRemovalReason
	}
	req.Pre.Reason = reason

	if err := m.persist.RemoveFromUI(ctx, rec.Source, rec.ID, reason); err != nil {
		err = fmt.Errorf("%w: %w", ErrPersist, err)
		m.record(ctx, req, journal.OutcomeFailed, err)
		log.Error(ctx, "remove failed", "error", err)
		return Result{}, err
	}

	m.record(ctx, req, journal.OutcomeApplied, nil)
	log.Info(ctx, "record removed from desk", "reason", reason)
	m.afterPersist(ctx)

	out := rec.Clone()
	out.RemovedFromUI = true
	return Result{Record: out}, nil
}

func (m *Machine) buildPatch(req Request, to models.Status, now time.Time) (models.Patch, error) {
	var p models.Patch

	switch req.Action {
	case ActionAuthorize:
		ct, err := m.enc.Encrypt(req.Pre.Signature)
		if err != nil {
			return models.Patch{}, fmt.Errorf("%w: %w", ErrEncryption, err)
		}
		if ct == "" {
			return models.Patch{}, ErrEncryption
		}
		p.Status = &to
		p.ActualInTime = &now
		p.Signature = &ct
	case ActionEditBadge:
		card := strings.TrimSpace(req.Pre.CardNo)
		p.CardNo = &card
	case ActionCheckout:
		yes := true
		p.Status = &to
		p.ActualOutTime = &now
		p.BadgeSurrendered = &yes
		p.HostApproved = &yes
	}
	return p, nil
}

func (m *Machine) afterPersist(ctx context.Context) {
	if m.refresh != nil {
		m.refresh(ctx)
	}
}

func (m *Machine) record(ctx context.Context, req Request, outcome journal.Outcome, err error) {
	if m.metrics != nil {
		m.metrics.ObserveTransition(string(req.Action), string(outcome))
	}
	if m.journal == nil {
		return
	}

	e := journal.Entry{
		RecordID: req.Record.ID,
		Source:   string(req.Record.Source),
		Action:   string(req.Action),
		Operator: m.operator,
		Reason:   req.Pre.Reason,
		Outcome:  outcome,
		At:       m.now(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	if jerr := m.journal.Append(ctx, e); jerr != nil {
		m.logger.Warn(ctx, "journal append failed", "error", jerr)
	}
}

// Authorize checks the visitor in after consent and signature.
func (m *Machine) Authorize(ctx context.Context, rec models.VisitRecord, consent bool, signatureDataURL string) (Result, error) {
	return m.Execute(ctx, Request{Action: ActionAuthorize, Record: rec, Pre: Preconditions{ConsentChecked: consent, Signature: signatureDataURL}})
}

// Checkout closes the visit once the badge is back and the host approved.
func (m *Machine) Checkout(ctx context.Context, rec models.VisitRecord, badgeSurrendered, hostApproved bool) (Result, error) {
	return m.Execute(ctx, Request{Action: ActionCheckout, Record: rec, Pre: Preconditions{BadgeSurrendered: badgeSurrendered, HostApproved: hostApproved}})
}

// EditBadge assigns a badge number to a checked-in visitor.
func (m *Machine) EditBadge(ctx context.Context, rec models.VisitRecord, cardNo string) (Result, error) {
	return m.Execute(ctx, Request{Action: ActionEditBadge, Record: rec, Pre: Preconditions{CardNo: cardNo}})
}

// Remove hides an overdue, never authorized record from every desk.
func (m *Machine) Remove(ctx context.Context, rec models.VisitRecord, confirmed bool, reason string) (Result, error) {
	return m.Execute(ctx, Request{Action: ActionRemove, Record: rec, Pre: Preconditions{Confirmed: confirmed, Reason: reason}})
}

// PrintPass checks that a pass may be printed for rec.
func (m *Machine) PrintPass(ctx context.Context, rec models.VisitRecord) error {
	_, err := m.Execute(ctx, Request{Action: ActionPrintPass, Record: rec})
	return err
}

// Kind classifies err for presentation layers.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return "validation"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, ErrEncryption):
		return "encryption"
	case errors.Is(err, ErrPersist):
		return "persist"
	}
	return "internal"
}
