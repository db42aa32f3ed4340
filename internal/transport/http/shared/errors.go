// Package shared holds transport helpers used by every handler group.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "beacon/pkg/domain-errors"
)

// errorResponse is the JSON error envelope every endpoint returns.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	// The absence of an active blackout is the absence of the resource, not a
	// state-machine violation.
	case dErrors.CodeNotFound, dErrors.CodeNoActiveBlackout:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeAlreadySealed, dErrors.CodeAlreadyApplied:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeInvalidTransition, dErrors.CodeLegalHold:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteError translates a domain error into the JSON error envelope. Internal
// error messages are not echoed to the client.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := dErrors.CodeInternal
	message := ""

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		status = ToHTTPStatus(domainErr.Code)
		code = domainErr.Code
		if status < http.StatusInternalServerError {
			message = domainErr.Message
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: string(code), Message: message})
}

// WriteJSON writes a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
