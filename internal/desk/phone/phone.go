// Package phone validates local phone numbers against the length rules of
// the country codes offered on the registration forms.
package phone

import (
	"fmt"
	"strings"
)

// Rule is the accepted digit count of a local number.
type Rule struct {
	Country string
	Min     int
	Max     int
}

// DefaultCode is preselected on every form.
const DefaultCode = "+91"

var rules = map[string]Rule{
	"+91":  {Country: "India", Min: 10, Max: 10},
	"+81":  {Country: "Japan", Min: 10, Max: 10},
	"+971": {Country: "UAE", Min: 9, Max: 9},
	"+65":  {Country: "Singapore", Min: 8, Max: 8},
	"+66":  {Country: "Thailand", Min: 9, Max: 9},
	"+86":  {Country: "China", Min: 11, Max: 11},
	"+27":  {Country: "South Africa", Min: 9, Max: 9},
	"+1":   {Country: "USA/Canada", Min: 10, Max: 10},
	"+44":  {Country: "UK", Min: 10, Max: 10},
	"+49":  {Country: "Germany", Min: 10, Max: 11},
	"+33":  {Country: "France", Min: 9, Max: 9},
	"+61":  {Country: "Australia", Min: 9, Max: 9},
}

// Codes lists the supported country codes in form order.
var Codes = []string{"+91", "+81", "+971", "+65", "+66", "+86", "+27", "+1", "+44", "+49", "+33", "+61"}

// Lookup returns the rule for code.
func Lookup(code string) (Rule, bool) {
	r, ok := rules[strings.TrimSpace(code)]
	return r, ok
}

// Result is the outcome of Validate. Message is empty when Valid.
type Result struct {
	Valid   bool
	Message string
}

// Validate checks local against the rule for code. Spaces and dashes in
// local are ignored.
func Validate(code, local string) Result {
	r, ok := Lookup(code)
	if !ok {
		return Result{Message: fmt.Sprintf("Unsupported country code %q", code)}
	}

	digits := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(local))
	if digits == "" {
		return Result{Message: "Phone number is required"}
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Result{Message: "Phone number must contain digits only"}
		}
	}

	n := len(digits)
	if n >= r.Min && n <= r.Max {
		return Result{Valid: true}
	}
	if r.Min == r.Max {
		return Result{Message: fmt.Sprintf("Phone number for %s (%s) must be %d digits", r.Country, code, r.Min)}
	}
	return Result{Message: fmt.Sprintf("Phone number for %s (%s) must be %d-%d digits", r.Country, code, r.Min, r.Max)}
}

// Join returns the number as stored by the backend: code followed by the
// local digits.
func Join(code, local string) string {
	return strings.TrimSpace(code) + strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(local))
}
