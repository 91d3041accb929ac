package registrysdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the registry.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("registry: %d %s (field %s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("registry: %d %s", e.StatusCode, e.Message)
}

// IsConflict reports a duplicate email or namespace.
func (e *APIError) IsConflict() bool { return e.StatusCode == http.StatusConflict }

// IsValidation reports a rejected request body.
func (e *APIError) IsValidation() bool { return e.StatusCode == http.StatusBadRequest }

// IsUnavailable reports that the registry could not reach its database.
func (e *APIError) IsUnavailable() bool { return e.StatusCode == http.StatusServiceUnavailable }

// parseErrorResponse builds an *APIError from a failed response body.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		apiErr.Message = er.Error
		apiErr.Field = er.Field
		return apiErr
	}

	apiErr.Message = http.StatusText(resp.StatusCode)
	return apiErr
}
