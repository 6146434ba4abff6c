package rest

import (
	"net/http"

	"github.com/tablerest/tablerest/pkg/httputil"
)

// Meta carries pagination metadata for collection responses. Total is the
// number of rows actually returned, not the full count of matching rows;
// when limit truncates the result the two differ.
type Meta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
	Page   int `json:"page,omitempty"`
}

// Envelope is the uniform response wrapper for every generated endpoint.
// Failures never carry Data; collection successes always carry Data as an
// array, possibly empty.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// apiError is an operation failure carrying its HTTP status. Validation
// failures are produced before the executor is touched; execution failures
// pass the storage error message through verbatim.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string { return e.Message }

func validationError(message string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: message}
}

func notFoundError(message string) *apiError {
	return &apiError{Status: http.StatusNotFound, Message: message}
}

func executionError(err error) *apiError {
	return &apiError{Status: http.StatusInternalServerError, Message: err.Error()}
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	httputil.JSON(w, status, env)
}

func writeFailure(w http.ResponseWriter, err *apiError) {
	writeEnvelope(w, err.Status, Envelope{Success: false, Error: err.Message})
}
