package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout marks a backend call that exceeded its deadline. Callers may
// retry; the query resolver treats it as non-fatal for best-effort steps.
var ErrTimeout = errors.New("backend call timed out")

// CallError is returned when the backend responds with a non-2xx status.
type CallError struct {
	Status int
	Body   string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// classifyErr maps transport-level failures onto the package sentinels so
// callers can distinguish retryable timeouts from hard failures.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
