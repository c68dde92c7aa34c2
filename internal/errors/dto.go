package errors

import (
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

const safeDetailsPrefix = "__json__:"

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Display string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds a response body for errors raised outside the ErrorHandler chain
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Display: message,
		},
	}
}

// ResponseFromErr classifies err and collects its hint and reportable details
func ResponseFromErr(err error) ErrorResponse {
	resp := NewErrorResponse(CodeFromErr(err), DisplayMessage(err))
	if details := SafeDetails(err); len(details) > 0 {
		resp.Error.Details = details
	}
	return resp
}

// DisplayMessage returns the first non empty hint of err
func DisplayMessage(err error) string {
	// GetAllHints is a post-order traversal
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}

// SafeDetails merges every detail map attached with WithReportableDetails
func SafeDetails(err error) map[string]any {
	details := make(map[string]any)

	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if !strings.HasPrefix(payload, safeDetailsPrefix) {
				continue
			}
			var decoded map[string]any
			if err := jsoniter.UnmarshalFromString(payload[len(safeDetailsPrefix):], &decoded); err != nil {
				continue
			}
			for k, v := range decoded {
				details[k] = v
			}
		}
	}

	return details
}
