package pass

import (
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	in := time.Date(2025, 6, 15, 14, 5, 0, 0, time.UTC)
	rec := models.VisitRecord{
		Source:         models.SourceGuest,
		Person:         models.Person{FirstName: "Ada", LastName: "Lovelace", Category: "Vendor"},
		Host:           "r. sharma",
		PurposeOfVisit: "audit",
		CardNo:         "b-12",
		ActualInTime:   &in,
	}

	c := NewCard(rec, time.UTC)
	assert.Equal(t, "GUEST PASS", c.Title)
	assert.Equal(t, "ADA LOVELACE", c.Name)
	assert.Equal(t, "R. SHARMA", c.Host)
	assert.Equal(t, "-", c.Company)
	assert.Equal(t, "B-12", c.BadgeNo)
	assert.Equal(t, "15 JUN 2025, 02:05 PM", c.CheckIn)
	assert.Equal(t, "GUEST PASS - Ada", c.Page)

	rec.Source = models.SourceAdhoc
	rec.ActualInTime = nil
	rec.FirstName = ""
	c = NewCard(rec, time.UTC)
	assert.Equal(t, "VISITOR PASS", c.Title)
	assert.Equal(t, "-", c.CheckIn)
	assert.Equal(t, "VISITOR PASS - GUEST", c.Page)
}

func TestRender(t *testing.T) {
	rec := models.VisitRecord{
		Source: models.SourceVisitor,
		Person: models.Person{FirstName: "<b>Eve</b>", Company: "Acme"},
	}

	out, err := Render(rec, time.UTC)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "size: 8.7cm 5.5cm")
	assert.Contains(t, html, "VISITOR PASS")
	assert.Contains(t, html, "WELCOME TO UD TRUCKS INDIA")
	assert.Contains(t, html, "ACME")
	assert.NotContains(t, html, "<B>EVE</B>", "names are escaped")
}

func TestConsent(t *testing.T) {
	today := time.Date(2025, 12, 23, 9, 0, 0, 0, time.UTC)

	g := NewConsent(models.SourceGuest, today)
	assert.Equal(t, "Dear Guest,", g.Salutation)
	assert.Equal(t, "Guest's Consent:", g.Label)
	assert.Equal(t, "23 December 2026", g.Expiry)

	v := NewConsent(models.SourceAdhoc, today)
	assert.Equal(t, "Dear Visitor,", v.Salutation)
	assert.Equal(t, "Visitor's Consent:", v.Label)

	text := v.Text()
	assert.True(t, strings.HasPrefix(text, "Dear Visitor,\n"))
	assert.Contains(t, text, "upto 23 December 2026.")
	assert.Contains(t, text, "[ ] I confirm")
}

func TestExpiry_LeapDay(t *testing.T) {
	assert.Equal(t, "1 March 2025", Expiry(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
}
