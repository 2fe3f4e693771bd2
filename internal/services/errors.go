package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuth          = errors.New("authentication error")
	ErrRemoteService = errors.New("remote service error")
	ErrMissingMaster = errors.New("missing master asset")
	ErrNormalization = errors.New("normalization error")
	ErrStorage       = errors.New("storage error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrPhaseActive   = errors.New("phase already active")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StatusError records a non-success HTTP response from a remote dependency.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 256 {
		body = body[:256] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: http %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.StatusCode, body)
}

// Unwrap maps credential rejections to ErrAuth and everything else to ErrRemoteService.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return ErrAuth
	}
	return ErrRemoteService
}

// Classify returns a short label describing the failure category.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrMissingMaster):
		return "missing_master"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrRemoteService):
		return "remote_service"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrPhaseActive):
		return "phase_active"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "transient"
	}
}

// Hint returns an operator-facing next step for the failure category.
func Hint(err error) string {
	switch Classify(err) {
	case "auth":
		return "refresh credentials and retry the phase"
	case "missing_master":
		return "categorize one audio asset as interview to act as the master"
	case "storage":
		return "check the registry database path and permissions"
	case "timeout":
		return "check service availability or raise remote.timeout_seconds"
	case "remote_service":
		return "inspect the remote service logs; the asset can be retried by rerunning the phase"
	case "configuration":
		return "fix the configuration file and rerun"
	case "phase_active":
		return "wait for the running phase to finish"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
