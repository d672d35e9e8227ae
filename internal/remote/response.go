package remote

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-github/v75/github"
)

// Response is a raw answer from the release API. Status handling is left
// to the caller; only transport failures are reported as errors.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Link returns the pagination link header, or "" for a single-page result.
func (r *Response) Link() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Link")
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ErrorMessage extracts the "message" field of an API error body.
func ErrorMessage(r *Response) string {
	if r == nil || len(r.Body) == 0 {
		return ""
	}
	var errResp github.ErrorResponse
	if err := json.Unmarshal(r.Body, &errResp); err != nil {
		return ""
	}
	return errResp.Message
}

// RemoteError represents a failed exchange with the remote that is worth
// classifying for retries.
type RemoteError struct {
	Code    string
	Message string
	Status  int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (%d): %s: %s", e.Status, e.Code, e.Message)
}

// ListingError is returned when a listing or lookup call answers with a
// status other than the ones documented for it.
type ListingError struct {
	Operation string
	Status    int
	Message   string
}

func (e *ListingError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Operation, e.Status, e.Message)
}

// NewListingError builds a ListingError from the offending response.
func NewListingError(operation string, r *Response) *ListingError {
	return &ListingError{
		Operation: operation,
		Status:    r.StatusCode,
		Message:   ErrorMessage(r),
	}
}
