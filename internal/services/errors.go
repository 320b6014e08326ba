package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/musegen/internal/shared"
)

// OperationError is a non-2xx response from the backend.
type OperationError struct {
	Status int
	Detail string // Human-readable reason from the JSON "detail" field, if any
}

func (e *OperationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Detail)
}

// Unwrap lets callers match on [shared.ErrAPIRequest].
func (e *OperationError) Unwrap() error {
	return shared.ErrAPIRequest
}

// IsNotFound reports whether err is an [OperationError] with status 404.
func IsNotFound(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Status == http.StatusNotFound
}

// newOperationError builds an [OperationError] from a failed response.
//
// FastAPI sends {"detail": "..."} for HTTPException and {"detail": [...]} for validation errors;
// non-string details are kept in their JSON form.
func newOperationError(resp *APIResponse) *OperationError {
	opErr := &OperationError{Status: resp.StatusCode}

	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil || len(body.Detail) == 0 {
		return opErr
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		opErr.Detail = detail
	} else if string(body.Detail) != "null" {
		opErr.Detail = string(body.Detail)
	}
	return opErr
}
