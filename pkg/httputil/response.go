// Package httputil provides the JSON response envelope and request
// parsing helpers shared by all HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/query"
)

// Envelope is the uniform response shape. Success responses carry Data
// and optionally Meta; error responses carry Error.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Meta carries response metadata
type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes one page of a list response
type Pagination struct {
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

// WriteJSON writes an arbitrary JSON body with the given status
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding the envelope cannot fail for the types handlers pass in;
	// a broken connection surfaces on the next request anyway.
	_ = json.NewEncoder(w).Encode(body)
}

// WriteData writes a 200 success envelope
func WriteData(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// WriteCreated writes a 201 success envelope
func WriteCreated(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// WritePage writes a 200 success envelope with pagination metadata
func WritePage[T any](w http.ResponseWriter, page query.Page[T]) {
	WriteJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    page.Items,
		Meta: &Meta{Pagination: &Pagination{
			Page:     page.Number,
			PerPage:  page.PerPage,
			Total:    page.Total,
			LastPage: page.LastPage(),
		}},
	})
}

// WriteError writes an error envelope with an explicit status and code
func WriteError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	WriteJSON(w, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// WriteAppError maps a service error to its HTTP status and envelope.
// Internal causes are never exposed to the client.
func WriteAppError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	message := "internal error"
	if code != errs.CodeInternal {
		var e *errs.Error
		if errors.As(err, &e) {
			message = e.Message
		}
	}

	WriteError(w, statusFor(code), string(code), message, errs.DetailsOf(err))
}

// WriteBadRequest writes a 400 for malformed request bodies or params
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "BAD_REQUEST", message, nil)
}

// WriteUnauthorized writes a 401 for missing or invalid credentials
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// WriteRateLimited writes a 429 envelope
func WriteRateLimited(w http.ResponseWriter) {
	WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
}

func statusFor(code errs.Code) int {
	switch code {
	case errs.CodeValidation:
		return http.StatusUnprocessableEntity
	case errs.CodeAccessDenied:
		return http.StatusForbidden
	case errs.CodeNotFound:
		return http.StatusNotFound
	case errs.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
