package workflow

import "errors"

// Validation failures. They never reach the backend.
var (
	ErrConsentRequired           = errors.New("please check the consent checkbox to proceed")
	ErrSignatureRequired         = errors.New("please provide your signature before submitting")
	ErrSignatureInvalid          = errors.New("signature is not a valid PNG image")
	ErrBadgeRequired             = errors.New("please enter a valid badge number before saving")
	ErrCheckoutApprovalsRequired = errors.New("both 'Badge Surrendered' and 'Host Approved' must be checked before checkout")
	ErrNotOverdue                = errors.New("record is not overdue")
	ErrConfirmationRequired      = errors.New("removal must be confirmed")
)

var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrInvalidTransition = errors.New("action not allowed in current status")
	ErrEncryption        = errors.New("unable to secure signature data")
	ErrPersist           = errors.New("update failed")
)

// ValidationError is a failed precondition for Action.
type ValidationError struct {
	Action Action
	Err    error
}

func (e *ValidationError) Error() string {
	return string(e.Action) + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a precondition failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
