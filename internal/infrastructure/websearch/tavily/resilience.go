package tavily

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

type httpStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *httpStatusError) Error() string {
	if e == nil {
		return "tavily status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("status %s", e.Status)
	}
	return fmt.Sprintf("status %s: %s", e.Status, e.Body)
}

// classifyTavilyError retries transport failures and transient server
// statuses. Rejected credentials (401/403) stay unavailable for the workflow
// but are not worth a second attempt; they still count against the breaker.
func classifyTavilyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		retryable := statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: true}
	}

	if domain.IsKind(err, domain.ErrUnavailable) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
