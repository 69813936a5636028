package pass

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/desk/models"
)

const expiryLayout = "2 January 2006"

// Consent is the text the visitor agrees to before signing.
type Consent struct {
	Salutation string
	Body       []string
	Expiry     string
	Label      string
	Affirm     string
}

// Salutation is "Dear Guest," for guest records and "Dear Visitor," otherwise.
func Salutation(src models.Source) string {
	if src.IsGuest() {
		return "Dear Guest,"
	}
	return "Dear Visitor,"
}

// Label heads the consent checkbox.
func Label(src models.Source) string {
	if src.IsGuest() {
		return "Guest's Consent:"
	}
	return "Visitor's Consent:"
}

// Expiry is one calendar year after today.
func Expiry(today time.Time) string {
	return today.AddDate(1, 0, 0).Format(expiryLayout)
}

func NewConsent(src models.Source, today time.Time) Consent {
	exp := Expiry(today)
	return Consent{
		Salutation: Salutation(src),
		Body: []string{
			"UD Trucks India Private Limited ('We'), will be collecting, processing, storing and utilizing " +
				"your personal data (as detailed below) solely for the purpose of security, risk management and compliance.",
			"- Name, address, mobile number, email id., purpose of visit, signature",
			"We acknowledge that your data will be securely stored, accessed only by authorized personnel, " +
				"and managed in accordance with applicable data protection laws and our privacy policy.",
			"Your consent to collect, process, store and utilize your personal data will remain valid for " +
				"one calendar year from today upto " + exp + ". You understand that you may withdraw your consent " +
				"at any time by notifying UDVMSSupport@udtrucks.onmicrosoft.com.",
			"Please sign below to indicate your understanding and acceptance of the above terms.",
		},
		Expiry: exp,
		Label:  Label(src),
		Affirm: "I confirm that my consent is given voluntarily and that I have had the opportunity " +
			"to ask questions regarding this authorization.",
	}
}

// Text is the consent rendered as plain paragraphs.
func (c Consent) Text() string {
	var b strings.Builder
	b.WriteString(c.Salutation)
	b.WriteString("\n\n")
	for _, p := range c.Body {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	b.WriteString(c.Label)
	b.WriteString("\n[ ] ")
	b.WriteString(c.Affirm)
	b.WriteString("\n")
	return b.String()
}
