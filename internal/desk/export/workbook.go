// Package export turns the export view into the desk spreadsheet.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Visitors"
	columnWidth = 15
	headerFill  = "4472C4"
	headerFont  = "FFFFFF"
	missing     = "-"
)

const (
	ColFirstName        = "First Name"
	ColLastName         = "Last Name"
	ColCompany          = "Company"
	ColCategory         = "Category"
	ColPurpose          = "Purpose"
	ColVisitorID        = "Visitor ID"
	ColTentativeIn      = "Tentative In"
	ColActualCheckIn    = "Actual Check-In"
	ColActualCheckOut   = "Actual Check-Out"
	ColStatus           = "Status"
	ColBadgeSurrendered = "Badge Surrendered"
	ColHostApproved     = "Host Approved"
	ColSigned           = "Signed"
)

// FileName is Visitors_<yyyy-mm-dd>.xlsx for the UTC date of now.
func FileName(now time.Time) string {
	return "Visitors_" + now.UTC().Format("2006-01-02") + ".xlsx"
}

// Format controls how timestamps are rendered into cells.
type Format struct {
	Layout   string
	Location *time.Location
}

func (f Format) time(t *time.Time) string {
	if t == nil {
		return missing
	}
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	layout := f.Layout
	if layout == "" {
		layout = "02/01/2006, 15:04:05"
	}
	return t.In(loc).Format(layout)
}

// HasCompany reports whether the Company column is present: it is when
// any record came from the visitor source.
func HasCompany(records []models.VisitRecord) bool {
	for _, r := range records {
		if r.Source == models.SourceVisitor {
			return true
		}
	}
	return false
}

// Columns returns the header row for records.
func Columns(records []models.VisitRecord) []string {
	cols := []string{ColFirstName, ColLastName}
	if HasCompany(records) {
		cols = append(cols, ColCompany)
	}
	return append(cols,
		ColCategory, ColPurpose, ColVisitorID,
		ColTentativeIn, ColActualCheckIn, ColActualCheckOut,
		ColStatus, ColBadgeSurrendered, ColHostApproved, ColSigned,
	)
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Row projects one record. Non-visitor records leave the Company cell
// empty when the column is present.
func Row(r models.VisitRecord, withCompany bool, f Format) []string {
	row := []string{r.FirstName, r.LastName}
	if withCompany {
		company := ""
		if r.Source == models.SourceVisitor {
			company = orMissing(r.Company)
		}
		row = append(row, company)
	}

	status := strings.ToUpper(string(r.Status))
	return append(row,
		orMissing(r.Category),
		orMissing(r.PurposeOfVisit),
		orMissing(r.CardNo),
		f.time(r.TentativeInTime),
		f.time(r.ActualInTime),
		f.time(r.ActualOutTime),
		orMissing(status),
		yesNo(r.BadgeSurrendered),
		yesNo(r.HostApproved),
		yesNo(r.Signed()),
	)
}

// Build renders records into a new workbook with a styled header row.
// The caller owns the returned file and must Close it.
func Build(records []models.VisitRecord, f Format) (*excelize.File, error) {
	wb := excelize.NewFile()
	if err := wb.SetSheetName(wb.GetSheetName(0), SheetName); err != nil {
		_ = wb.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := fill(wb, records, f); err != nil {
		_ = wb.Close()
		return nil, err
	}
	return wb, nil
}

func fill(wb *excelize.File, records []models.VisitRecord, f Format) error {
	cols := Columns(records)
	last, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return err
	}

	if err := wb.SetColWidth(SheetName, "A", last, columnWidth); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	style, err := wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: headerFont},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := wb.SetSheetRow(SheetName, "A1", &cols); err != nil {
		return fmt.Errorf("header row: %w", err)
	}
	if err := wb.SetCellStyle(SheetName, "A1", last+"1", style); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	withCompany := HasCompany(records)
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := Row(r, withCompany, f)
		if err := wb.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return nil
}

// Render returns the serialized workbook.
func Render(records []models.VisitRecord, f Format) ([]byte, error) {
	wb, err := Build(records, f)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
