package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Timestamp decodes the backend's date fields, which may be null, an empty
// string, an RFC 3339 string, a date, a browser datetime-local value or epoch
// milliseconds. A value that matches none of these leaves Valid false and
// keeps the original text in Malformed; it never fails the enclosing decode.
type Timestamp struct {
	time.Time
	Valid     bool
	Malformed string
}

// Zone-less layouts are read in the desk's local zone, dates in UTC.
var (
	zonedLayouts = []string{time.RFC3339Nano}
	localLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	dateLayout = "2006-01-02"
)

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	*t = Timestamp{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	if b[0] != '"' {
		var ms float64
		if err := json.Unmarshal(b, &ms); err != nil {
			t.Malformed = string(b)
			return nil
		}
		t.Time, t.Valid = time.UnixMilli(int64(ms)), true
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		t.Malformed = string(b)
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if v, ok := parseTimestamp(s); ok {
		t.Time, t.Valid = v, true
		return nil
	}
	t.Malformed = s
	return nil
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			return v, true
		}
	}
	for _, layout := range localLayouts {
		if v, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return v, true
		}
	}
	if v, err := time.Parse(dateLayout, s); err == nil {
		return v, true
	}
	return time.Time{}, false
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Ptr returns nil for an absent timestamp.
func (t Timestamp) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// MalformedTimes counts the date fields whose value could not be parsed.
func (r RawRecord) MalformedTimes() int {
	n := 0
	for _, ts := range []Timestamp{r.InTime, r.OutTime, r.ActualInTime, r.ActualOutTime} {
		if ts.Malformed != "" {
			n++
		}
	}
	return n
}

// RawRecord is one element of GET /api/{visitors|guests|adhoc}.
type RawRecord struct {
	ID               string    `json:"_id"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Company          string    `json:"company"`
	Category         string    `json:"category"`
	Host             string    `json:"host"`
	PurposeOfVisit   string    `json:"purposeOfVisit"`
	CardNo           string    `json:"cardNo"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	SubmittedBy      string    `json:"submittedBy"`
	MeetingRoom      string    `json:"meetingRoom"`
	InTime           Timestamp `json:"inTime"`
	OutTime          Timestamp `json:"outTime"`
	ActualInTime     Timestamp `json:"actualInTime"`
	ActualOutTime    Timestamp `json:"actualOutTime"`
	Status           string    `json:"status"`
	Signature        string    `json:"signature"`
	BadgeSurrendered bool      `json:"badgeSurrendered"`
	HostApproved     bool      `json:"hostApproved"`
	RemovedFromUI    bool      `json:"removedFromUI"`
}

// Normalize converts a raw backend record into the unified shape. An empty
// or unknown status is treated as new. DisplaySignature is left empty; it
// is filled by the merger.
func (r RawRecord) Normalize(src Source) VisitRecord {
	st, err := ParseStatus(r.Status)
	if err != nil {
		st = StatusNew
	}

	return VisitRecord{
		ID:     r.ID,
		Source: src,
		Status: st,
		Person: Person{
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Company:   r.Company,
			Category:  r.Category,
		},
		Host:             r.Host,
		PurposeOfVisit:   r.PurposeOfVisit,
		CardNo:           r.CardNo,
		Email:            r.Email,
		Phone:            r.Phone,
		SubmittedBy:      r.SubmittedBy,
		MeetingRoom:      r.MeetingRoom,
		TentativeInTime:  r.InTime.Ptr(),
		TentativeOutTime: r.OutTime.Ptr(),
		ActualInTime:     r.ActualInTime.Ptr(),
		ActualOutTime:    r.ActualOutTime.Ptr(),
		Signature:        r.Signature,
		BadgeSurrendered: r.BadgeSurrendered,
		HostApproved:     r.HostApproved,
		RemovedFromUI:    r.RemovedFromUI,
	}
}

// Patch is the body of PUT /api/{collection}/:id. Only set fields are sent.
type Patch struct {
	Status           *Status    `json:"status,omitempty"`
	ActualInTime     *time.Time `json:"actualInTime,omitempty"`
	ActualOutTime    *time.Time `json:"actualOutTime,omitempty"`
	Signature        *string    `json:"signature,omitempty"`
	CardNo           *string    `json:"cardNo,omitempty"`
	BadgeSurrendered *bool      `json:"badgeSurrendered,omitempty"`
	HostApproved     *bool      `json:"hostApproved,omitempty"`
}

// Apply merges the patch into rec the way the backend does.
func (p Patch) Apply(rec VisitRecord) VisitRecord {
	out := rec.Clone()
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.ActualInTime != nil {
		out.ActualInTime = cloneTime(p.ActualInTime)
	}
	if p.ActualOutTime != nil {
		out.ActualOutTime = cloneTime(p.ActualOutTime)
	}
	if p.Signature != nil {
		out.Signature = *p.Signature
	}
	if p.CardNo != nil {
		out.CardNo = *p.CardNo
	}
	if p.BadgeSurrendered != nil {
		out.BadgeSurrendered = *p.BadgeSurrendered
	}
	if p.HostApproved != nil {
		out.HostApproved = *p.HostApproved
	}
	return out
}

// RemoveRequest is the body of PUT /api/{collection}/:id/remove-ui.
type RemoveRequest struct {
	Reason string `json:"reason"`
}

// NewVisit is one element of a bulk-create POST body.
type NewVisit struct {
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email,omitempty"`
	Company        string    `json:"company,omitempty"`
	Category       string    `json:"category"`
	Host           string    `json:"host,omitempty"`
	PurposeOfVisit string    `json:"purposeOfVisit,omitempty"`
	CountryCode    string    `json:"countryCode,omitempty"`
	Phone          string    `json:"phone"`
	InTime         time.Time `json:"inTime"`
	OutTime        time.Time `json:"outTime"`
	SubmittedBy    string    `json:"submittedBy,omitempty"`
	Status         Status    `json:"status"`
}
