package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents an error response from the control plane.
//
// Header validation failures come back as plain-text 400s; deploy failures as
// JSON bodies with an "error" field. Both end up here.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsBadRequest returns true if the server rejected the request parameters.
func (e *APIError) IsBadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}

// IsDeployFailure returns true if the deploy itself failed on the server.
func (e *APIError) IsDeployFailure() bool {
	return e.StatusCode == http.StatusInternalServerError
}

// parseAPIError builds an APIError from a non-2xx response body.
func parseAPIError(statusCode int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return &APIError{StatusCode: statusCode, Message: payload.Error}
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
