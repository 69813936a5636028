package service

import "errors"

// ErrInvalidRegistration is returned for ad-hoc visitors that fail form
// validation. Nothing is sent to the backend.
var ErrInvalidRegistration = errors.New("invalid registration")
