// Package common contains shared constants and sentinel errors used across
// visitdesk components.
package common

// RequestIDHeaderName is the HTTP header used to carry the request
// identifier on inbound desk requests and outbound backend calls.
const RequestIDHeaderName = "X-Request-ID"

// ExportCountHeaderName reports how many records an export contains.
const ExportCountHeaderName = "X-Export-Count"

// DefaultRemovalReason is sent to the backend when an overdue, never
// authorized record is hidden from the desk.
const DefaultRemovalReason = "Overdue > 24h and not authorized"
