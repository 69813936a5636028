package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/phone"
)

// AdhocCategory is the category every walk-in visitor is filed under.
const AdhocCategory = "Adhoc"

// AdhocVisitor is one walk-in registered at the desk.
type AdhocVisitor struct {
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Company        string    `json:"company"`
	Host           string    `json:"host"`
	PurposeOfVisit string    `json:"purposeOfVisit"`
	CountryCode    string    `json:"countryCode"`
	Phone          string    `json:"phone"`
	InTime         time.Time `json:"inTime"`
	OutTime        time.Time `json:"outTime"`
}

// Validate returns the form problems of v, empty when there are none.
func (v AdhocVisitor) Validate() []string {
	var problems []string
	if strings.TrimSpace(v.FirstName) == "" {
		problems = append(problems, "First name is required")
	}
	code := v.CountryCode
	if code == "" {
		code = phone.DefaultCode
	}
	if r := phone.Validate(code, v.Phone); !r.Valid {
		problems = append(problems, r.Message)
	}
	if v.InTime.IsZero() {
		problems = append(problems, "In Date and Time are required")
	}
	if v.OutTime.IsZero() {
		problems = append(problems, "Out Date and Time are required")
	}
	if !v.InTime.IsZero() && !v.OutTime.IsZero() && v.OutTime.Before(v.InTime) {
		problems = append(problems, "Out time must not be before in time")
	}
	return problems
}

func (v AdhocVisitor) newVisit(submittedBy string) models.NewVisit {
	code := v.CountryCode
	if code == "" {
		code = phone.DefaultCode
	}
	return models.NewVisit{
		FirstName:      strings.TrimSpace(v.FirstName),
		LastName:       strings.TrimSpace(v.LastName),
		Email:          strings.TrimSpace(v.Email),
		Company:        strings.TrimSpace(v.Company),
		Category:       AdhocCategory,
		Host:           strings.TrimSpace(v.Host),
		PurposeOfVisit: strings.TrimSpace(v.PurposeOfVisit),
		Phone:          phone.Join(code, v.Phone),
		InTime:         v.InTime,
		OutTime:        v.OutTime,
		SubmittedBy:    submittedBy,
		Status:         models.StatusNew,
	}
}

// RegisterAdhoc validates every visitor and then creates them in one
// backend call. A single invalid visitor rejects the whole batch.
func (s *DeskService) RegisterAdhoc(ctx context.Context, visitors []AdhocVisitor) (int, error) {
	if len(visitors) == 0 {
		return 0, fmt.Errorf("%w: no visitors", ErrInvalidRegistration)
	}

	batch := make([]models.NewVisit, 0, len(visitors))
	for i, v := range visitors {
		if p := v.Validate(); len(p) > 0 {
			return 0, fmt.Errorf("%w: visitor %d: %s", ErrInvalidRegistration, i+1, strings.Join(p, ", "))
		}
		batch = append(batch, v.newVisit(s.cfg.Operator))
	}

	if err := s.client.Create(ctx, models.SourceAdhoc, batch); err != nil {
		s.logger.Error(ctx, "adhoc registration failed", "count", len(batch), "error", err)
		return 0, err
	}

	s.logger.Info(ctx, "adhoc visitors registered", "count", len(batch))
	s.refreshAfterAction(ctx)
	return len(batch), nil
}
