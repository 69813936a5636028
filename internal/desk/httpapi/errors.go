package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/visitdesk/internal/common"
	"github.com/dmitrijs2005/visitdesk/internal/desk/client"
	"github.com/dmitrijs2005/visitdesk/internal/desk/service"
	"github.com/dmitrijs2005/visitdesk/internal/desk/workflow"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errBadRequest = errors.New("invalid request body")

// status maps a service error to an HTTP status and a stable code. A failed
// backend write is always a 502, even when the backend itself answered 404.
func status(err error) (int, string, string) {
	var ve *workflow.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, "validation", ve.Err.Error()
	case errors.Is(err, service.ErrInvalidRegistration):
		return http.StatusUnprocessableEntity, "validation", err.Error()
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", err.Error()
	case errors.Is(err, workflow.ErrPersist), errors.Is(err, client.ErrUnavailable), errors.Is(err, client.ErrUnauthorized):
		return http.StatusBadGateway, "backend", client.Message(err)
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, errBadRequest),
		errors.Is(err, workflow.ErrUnknownAction),
		errors.Is(err, common.ErrorInvalidSource),
		errors.Is(err, common.ErrorInvalidStatus),
		errors.Is(err, common.ErrorInvalidDate):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, workflow.ErrEncryption):
		return http.StatusInternalServerError, "encryption", workflow.ErrEncryption.Error()
	}
	return http.StatusInternalServerError, "internal", "internal error"
}

func writeError(w http.ResponseWriter, err error) {
	code, kind, msg := status(err)
	writeJSON(w, code, ErrorResponse{Code: kind, Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}
