package remoteapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/infrastructure/resilience"
)

// HTTPStatusError is returned for any response outside the 2xx range.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "remote api status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("remote api %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("remote api %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// errMalformedResponse marks a 2xx response whose body could not be decoded.
var errMalformedResponse = errors.New("malformed response")

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       detailMessage(body),
	}
}

// detailMessage unwraps the {"detail": "..."} envelope used by the backend.
func detailMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	const prefix = `{"detail":"`
	if strings.HasPrefix(text, prefix) && strings.HasSuffix(text, `"}`) {
		return text[len(prefix) : len(text)-2]
	}
	return text
}

// classifyRemoteError feeds the circuit breaker. Client errors are the caller's
// fault and never trip it.
func classifyRemoteError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		transient := isTransientStatus(statusErr.StatusCode)
		return resilience.ErrorClassification{Retryable: transient, RecordFailure: transient}
	}
	if errors.Is(err, errMalformedResponse) {
		return resilience.ErrorClassification{RecordFailure: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// toDomainError maps a failed call onto the domain error kinds.
func toDomainError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	if errors.Is(err, errMalformedResponse) {
		return domain.WrapError(domain.ErrServer, operation, err)
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return domain.WrapError(statusKind(statusErr.StatusCode), operation, err)
	}
	return domain.WrapError(domain.ErrTransport, operation, err)
}

func statusKind(code int) error {
	switch {
	case code == http.StatusNotFound:
		return domain.ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.ErrForbidden
	case code == http.StatusTooManyRequests || code == http.StatusRequestTimeout:
		return domain.ErrTemporary
	case code >= 500:
		return domain.ErrServer
	default:
		return domain.ErrInvalidInput
	}
}

func isTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return code >= 500
	}
}
