// ABOUTME: JSON error responses for the console's machine-facing endpoints.
// ABOUTME: Maps platform API errors onto console status codes and machine codes.

package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/forms"
)

// ErrorResponse is the JSON body of every console error response.
//
// Usage:
//
//	WriteError(w, http.StatusBadRequest, ErrInvalidRequest, "unsupported export format")
type ErrorResponse struct {
	Code    string `json:"code"`              // Machine-readable error code
	Message string `json:"message"`           // Human-readable error message
	Status  int    `json:"status"`            // HTTP status code
	Field   string `json:"field,omitempty"`   // Field that caused a validation error
	Details string `json:"details,omitempty"` // Extra context, e.g. the platform's message
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
	})
}

// WriteErrorWithField writes a validation error naming the offending field.
func WriteErrorWithField(w http.ResponseWriter, status int, code, message, field string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Field:   field,
	})
}

// WriteErrorWithDetails writes an error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeErrorResponse(w, ErrorResponse{
		Code:    code,
		Message: message,
		Status:  status,
		Details: details,
	})
}

// FromAPIError classifies err for a console response. Platform 4xx statuses
// pass through; anything the platform failed on, or never answered, becomes
// a 502.
func FromAPIError(err error) ErrorResponse {
	var fe forms.FieldErrors
	if stderrors.As(err, &fe) && len(fe) > 0 {
		return ErrorResponse{
			Code:    ErrValidationFailed,
			Message: fe[0].Message,
			Status:  http.StatusUnprocessableEntity,
			Field:   fe[0].Field,
			Details: fe.Error(),
		}
	}

	var apiErr *dfapi.Error
	if !stderrors.As(err, &apiErr) {
		return ErrorResponse{
			Code:    ErrUpstreamUnavailable,
			Message: "The platform could not be reached",
			Status:  http.StatusBadGateway,
			Details: err.Error(),
		}
	}

	resp := ErrorResponse{Message: apiErr.Message, Status: apiErr.Status}
	if fields := apiErr.FieldErrors(); len(fields) > 0 {
		resp.Details = dfapi.FormatFieldErrors(fields)
	}
	switch {
	case apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
		resp.Code = ErrValidationFailed
	case apiErr.Status == http.StatusUnauthorized:
		resp.Code = ErrUnauthorized
	case apiErr.Status == http.StatusForbidden:
		resp.Code = ErrForbidden
	case apiErr.Status == http.StatusNotFound:
		resp.Code = ErrNotFound
	case apiErr.Status == http.StatusConflict:
		resp.Code = ErrConflict
	case apiErr.Status >= 400 && apiErr.Status < 500:
		resp.Code = ErrInvalidRequest
	default:
		resp.Code = ErrUpstream
		resp.Status = http.StatusBadGateway
	}
	return resp
}

// WriteAPIError writes err as classified by FromAPIError.
func WriteAPIError(w http.ResponseWriter, err error) {
	writeErrorResponse(w, FromAPIError(err))
}

func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}

// Error codes
const (
	// Client errors (4xx)
	ErrInvalidRequest   = "invalid_request"
	ErrValidationFailed = "validation_failed"
	ErrNotFound         = "not_found"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrConflict         = "conflict"
	ErrLicenseRequired  = "license_required"

	// Server errors (5xx)
	ErrInternal            = "internal_error"
	ErrUpstream            = "upstream_error"
	ErrUpstreamUnavailable = "upstream_unavailable"
)
