// Package filter computes the desk's display and export views from the
// record snapshot. Stages run in a fixed order: status, text search, date
// range, and finally the display-only checkout retention cutoff.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

// Retention hides records whose checkout is older than this from the
// display view only.
const Retention = 7 * 24 * time.Hour

const dateLayout = "2006-01-02"

// StatusAll disables the status stage.
const StatusAll = "all"

// Quick is a date-range preset.
type Quick string

const (
	QuickNone      Quick = "none"
	QuickToday     Quick = "today"
	QuickYesterday Quick = "yesterday"
	QuickLast7     Quick = "last7"
)

// ParseQuick maps "" to QuickNone.
func ParseQuick(s string) (Quick, error) {
	switch q := Quick(strings.ToLower(strings.TrimSpace(s))); q {
	case "", QuickNone:
		return QuickNone, nil
	case QuickToday, QuickYesterday, QuickLast7:
		return q, nil
	}
	return "", fmt.Errorf("unknown quick filter %q", s)
}

// Criteria are the operator's filter inputs. From and To are YYYY-MM-DD
// and ignored when Quick is set.
type Criteria struct {
	Status string `json:"status"`
	Query  string `json:"q"`
	From   string `json:"from"`
	To     string `json:"to"`
	Quick  Quick  `json:"quick"`
}

// Views holds both derived lists.
type Views struct {
	Display []models.VisitRecord
	Export  []models.VisitRecord
}

// Range is an inclusive time window; a nil bound is open.
type Range struct {
	From *time.Time
	To   *time.Time
}

// Active reports whether either bound is set.
func (r Range) Active() bool { return r.From != nil || r.To != nil }

// Contains applies the window to t.
func (r Range) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// ResolveRange turns the criteria into concrete bounds in now's location.
// A preset wins over explicit dates.
func (c Criteria) ResolveRange(now time.Time) (Range, error) {
	from, to := c.From, c.To

	today := startOfDay(now)
	switch c.Quick {
	case QuickToday:
		from, to = today.Format(dateLayout), today.Format(dateLayout)
	case QuickYesterday:
		y := today.AddDate(0, 0, -1)
		from, to = y.Format(dateLayout), y.Format(dateLayout)
	case QuickLast7:
		from, to = today.AddDate(0, 0, -6).Format(dateLayout), today.Format(dateLayout)
	}

	var r Range
	loc := now.Location()

	if from != "" {
		d, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: from %q", common.ErrorInvalidDate, from)
		}
		r.From = &d
	}
	if to != "" {
		d, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return Range{}, fmt.Errorf("%w: to %q", common.ErrorInvalidDate, to)
		}
		end := d.AddDate(0, 0, 1).Add(-time.Millisecond)
		r.To = &end
	}
	return r, nil
}

// Validate checks the status and dates without filtering anything.
func (c Criteria) Validate() error {
	if c.Status != "" && c.Status != StatusAll {
		if _, err := models.ParseStatus(c.Status); err != nil {
			return fmt.Errorf("%w: %q", common.ErrorInvalidStatus, c.Status)
		}
	}
	_, err := c.ResolveRange(time.Now())
	return err
}

// Apply runs the pipeline over records. The input is not modified.
func Apply(records []models.VisitRecord, c Criteria, now time.Time) (Views, error) {
	var status models.Status
	if c.Status != "" && c.Status != StatusAll {
		st, err := models.ParseStatus(c.Status)
		if err != nil {
			return Views{}, fmt.Errorf("%w: %q", common.ErrorInvalidStatus, c.Status)
		}
		status = st
	}

	rng, err := c.ResolveRange(now)
	if err != nil {
		return Views{}, err
	}

	query := strings.ToLower(strings.TrimSpace(c.Query))

	export := make([]models.VisitRecord, 0, len(records))
	for _, r := range records {
		if status != "" && r.Status != status {
			continue
		}
		if query != "" && !MatchesQuery(r, query) {
			continue
		}
		if rng.Active() {
			ref := r.CheckInRef()
			if ref == nil || !rng.Contains(*ref) {
				continue
			}
		}
		export = append(export, r)
	}

	display := make([]models.VisitRecord, 0, len(export))
	for _, r := range export {
		if CheckoutExpired(r, now) {
			continue
		}
		display = append(display, r)
	}

	return Views{Display: display, Export: export}, nil
}

// MatchesQuery is a case-insensitive substring match on "first last" and
// company. q must already be lower-cased.
func MatchesQuery(r models.VisitRecord, q string) bool {
	name := strings.ToLower(r.FirstName + " " + r.LastName)
	return strings.Contains(name, q) || strings.Contains(strings.ToLower(r.Company), q)
}

// CheckoutExpired reports whether the record's checkout reference is older
// than Retention. Records without any checkout time never expire.
func CheckoutExpired(r models.VisitRecord, now time.Time) bool {
	ref := r.CheckOutRef()
	if ref == nil {
		return false
	}
	return now.Sub(*ref) > Retention
}

// Counts are per-status totals over a record set.
type Counts struct {
	All        int `json:"all"`
	New        int `json:"new"`
	CheckedIn  int `json:"checkedIn"`
	CheckedOut int `json:"checkedOut"`
}

func CountByStatus(records []models.VisitRecord) Counts {
	c := Counts{All: len(records)}
	for _, r := range records {
		switch r.Status {
		case models.StatusNew:
			c.New++
		case models.StatusCheckedIn:
			c.CheckedIn++
		case models.StatusCheckedOut:
			c.CheckedOut++
		}
	}
	return c
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
