package monarch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx response from the Monarch API. Error() keeps the
// status code and the vendor message text in the string because the
// application layer classifies failures by substring matching; the API
// exposes no structured error codes.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("monarch API: status %d: %s", e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a response body. Monarch error bodies
// are usually {"detail": "..."} or {"error_code": "..."}; anything else is
// passed through raw.
func newAPIError(status int, body []byte) *APIError {
	msg := strings.TrimSpace(string(body))

	var payload struct {
		Detail    string `json:"detail"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Detail != "":
			msg = payload.Detail
		case payload.ErrorCode != "":
			msg = payload.ErrorCode
		}
	}

	if msg == "" {
		msg = http.StatusText(status)
	}

	return &APIError{StatusCode: status, Message: msg}
}
