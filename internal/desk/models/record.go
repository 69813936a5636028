// Package models defines the normalized visit record the desk works on and
// the wire shapes exchanged with the visitor-management backend.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source tags which backend collection a record belongs to.
type Source string

const (
	SourceVisitor Source = "visitor"
	SourceGuest   Source = "guest"
	SourceAdhoc   Source = "adhoc"
)

// Sources lists every source in merge order.
var Sources = []Source{SourceVisitor, SourceGuest, SourceAdhoc}

var ErrUnknownSource = errors.New("unknown record source")

// ParseSource accepts the singular tag or the collection name
// ("guests", "visitors").
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "visitor", "visitors":
		return SourceVisitor, nil
	case "guest", "guests":
		return SourceGuest, nil
	case "adhoc":
		return SourceAdhoc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Collection is the backend path segment owning records of this source.
func (s Source) Collection() string {
	switch s {
	case SourceGuest:
		return "guests"
	case SourceAdhoc:
		return "adhoc"
	default:
		return "visitors"
	}
}

// IsGuest reports whether labels should read "Guest" rather than "Visitor".
func (s Source) IsGuest() bool { return s == SourceGuest }

// Status is the lifecycle state of a visit.
type Status string

const (
	StatusNew        Status = "new"
	StatusCheckedIn  Status = "checkedIn"
	StatusCheckedOut Status = "checkedOut"
)

var ErrUnknownStatus = errors.New("unknown status")

// ParseStatus is case-insensitive and also accepts "checked-in"/"checked_in".
func ParseStatus(s string) (Status, error) {
	k := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	switch k {
	case "new":
		return StatusNew, nil
	case "checkedin":
		return StatusCheckedIn, nil
	case "checkedout":
		return StatusCheckedOut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s Status) Rank() int {
	switch s {
	case StatusNew:
		return 0
	case StatusCheckedIn:
		return 1
	case StatusCheckedOut:
		return 2
	}
	return -1
}

// Person is who is visiting.
type Person struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
	Category  string `json:"category"`
}

// FullName is "first last" without surrounding blanks.
func (p Person) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// VisitRecord is the single normalized shape for all three sources.
type VisitRecord struct {
	ID     string `json:"id"`
	Source Source `json:"source"`
	Status Status `json:"status"`

	Person

	Host           string `json:"host"`
	PurposeOfVisit string `json:"purposeOfVisit"`
	CardNo         string `json:"cardNo"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	SubmittedBy    string `json:"submittedBy,omitempty"`
	MeetingRoom    string `json:"meetingRoom,omitempty"`

	TentativeInTime  *time.Time `json:"tentativeInTime"`
	TentativeOutTime *time.Time `json:"tentativeOutTime"`
	ActualInTime     *time.Time `json:"actualInTime"`
	ActualOutTime    *time.Time `json:"actualOutTime"`

	// Signature is the ciphertext as stored by the backend.
	Signature string `json:"-"`
	// DisplaySignature is the decrypted image data URL, "" when absent or
	// undecryptable. It only lives in memory.
	DisplaySignature string `json:"displaySignature,omitempty"`

	BadgeSurrendered bool `json:"badgeSurrendered"`
	HostApproved     bool `json:"hostApproved"`
	RemovedFromUI    bool `json:"-"`
}

// Key identifies a record across sources.
func (r VisitRecord) Key() string { return string(r.Source) + "/" + r.ID }

// CheckInRef is the actual check-in time if present, else the tentative one.
func (r VisitRecord) CheckInRef() *time.Time {
	if r.ActualInTime != nil {
		return r.ActualInTime
	}
	return r.TentativeInTime
}

// CheckOutRef is the actual check-out time if present, else the tentative one.
func (r VisitRecord) CheckOutRef() *time.Time {
	if r.ActualOutTime != nil {
		return r.ActualOutTime
	}
	return r.TentativeOutTime
}

// Signed reports whether a displayable signature is attached.
func (r VisitRecord) Signed() bool { return r.DisplaySignature != "" }

// Clone returns a deep copy so callers may mutate it freely.
func (r VisitRecord) Clone() VisitRecord {
	c := r
	c.TentativeInTime = cloneTime(r.TentativeInTime)
	c.TentativeOutTime = cloneTime(r.TentativeOutTime)
	c.ActualInTime = cloneTime(r.ActualInTime)
	c.ActualOutTime = cloneTime(r.ActualOutTime)
	return c
}

// CloneAll deep-copies a slice of records.
func CloneAll(in []VisitRecord) []VisitRecord {
	if in == nil {
		return nil
	}
	out := make([]VisitRecord, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr is a convenience for building records.
func TimePtr(t time.Time) *time.Time { return &t }
