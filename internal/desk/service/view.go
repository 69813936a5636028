package service

import (
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/alerting"
	"github.com/dmitrijs2005/visitdesk/internal/desk/filter"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/dmitrijs2005/visitdesk/internal/desk/workflow"
)

// Row is a displayed record with the affordances computed for it.
type Row struct {
	models.VisitRecord
	Overdue bool              `json:"overdue"`
	Actions []workflow.Action `json:"actions"`
}

// View is one evaluation of the filter pipeline.
type View struct {
	Criteria   filter.Criteria      `json:"criteria"`
	Display    []Row                `json:"records"`
	Export     []models.VisitRecord `json:"-"`
	Counts     filter.Counts        `json:"counts"`
	Overdue    []string             `json:"overdue"`
	ComputedAt time.Time            `json:"computedAt"`
}

// Compute runs the pipeline over records at now. Counts cover the whole
// snapshot, not the filtered view.
func Compute(records []models.VisitRecord, c filter.Criteria, now time.Time) (View, error) {
	views, err := filter.Apply(records, c, now)
	if err != nil {
		return View{}, err
	}

	rows := make([]Row, 0, len(views.Display))
	for _, r := range views.Display {
		rows = append(rows, Row{
			VisitRecord: r,
			Overdue:     alerting.IsOverdue(r, now),
			Actions:     workflow.Allowed(r, now),
		})
	}

	return View{
		Criteria:   c,
		Display:    rows,
		Export:     views.Export,
		Counts:     filter.CountByStatus(records),
		Overdue:    alerting.Overdue(records, now),
		ComputedAt: now,
	}, nil
}
