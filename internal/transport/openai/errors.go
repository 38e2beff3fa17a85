package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/domain"
)

// parseAPIError extracts a human-readable error from the API response and wraps it with
// the given provider sentinel. HTTP 429 additionally matches domain.ErrRateLimited.
func parseAPIError(kind string, err error, wrap error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return statusError(kind, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(kind, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %w: %w", kind, err, wrap)
}

func statusError(kind string, status int, detail string, wrap error) error {
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s API error %d: %s: %w: %w", kind, status, detail, domain.ErrRateLimited, wrap)
	}
	return fmt.Errorf("%s API error %d: %s: %w", kind, status, detail, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
