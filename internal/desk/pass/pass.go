// Package pass renders the printable visitor pass and the consent text
// shown before authorization.
package pass

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

const checkInLayout = "02 Jan 2006, 03:04 PM"

//go:embed pass.html.tmpl
var passSource string

var passTemplate = template.Must(template.New("pass").Parse(passSource))

// Card is the data printed on a pass. All fields are upper-cased.
type Card struct {
	Title    string
	Name     string
	Category string
	Host     string
	Purpose  string
	Company  string
	BadgeNo  string
	CheckIn  string
	Page     string
}

func upperOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return strings.ToUpper(s)
}

// Title is GUEST PASS for guest-source records and VISITOR PASS otherwise.
func Title(src models.Source) string {
	if src.IsGuest() {
		return "GUEST PASS"
	}
	return "VISITOR PASS"
}

// NewCard projects rec for printing. The check-in time is rendered in loc.
func NewCard(rec models.VisitRecord, loc *time.Location) Card {
	if loc == nil {
		loc = time.Local
	}
	checkIn := "-"
	if rec.ActualInTime != nil {
		checkIn = strings.ToUpper(rec.ActualInTime.In(loc).Format(checkInLayout))
	}

	first := rec.FirstName
	if first == "" {
		first = "GUEST"
	}

	return Card{
		Title:    Title(rec.Source),
		Name:     strings.ToUpper(strings.TrimSpace(rec.FirstName + " " + rec.LastName)),
		Category: upperOr(rec.Category),
		Host:     upperOr(rec.Host),
		Purpose:  upperOr(rec.PurposeOfVisit),
		Company:  upperOr(rec.Company),
		BadgeNo:  upperOr(rec.CardNo),
		CheckIn:  checkIn,
		Page:     fmt.Sprintf("%s - %s", Title(rec.Source), first),
	}
}

// Render writes the pass document for rec.
func Render(rec models.VisitRecord, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	if err := passTemplate.Execute(&buf, NewCard(rec, loc)); err != nil {
		return nil, fmt.Errorf("render pass: %w", err)
	}
	return buf.Bytes(), nil
}
