// pkg/aovpn_err/classification.go
//
// Error classification with exit codes for the aovpn CLI.

package aovpn_err

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for appropriate handling
type ErrorCategory int

const (
	// CategorySystem - OS/service control issues (exit 1)
	CategorySystem ErrorCategory = iota
	// CategoryValidation - Input validation failures (exit 2)
	CategoryValidation
	// CategoryInternal - Bugs in aovpn itself (exit 3)
	CategoryInternal
	// CategoryEscalation - Retries exhausted, host reboot issued (exit 4)
	CategoryEscalation
	// CategoryDependency - Missing dependencies (exit 1)
	CategoryDependency
	// CategoryPermission - Permission denied (exit 1)
	CategoryPermission
)

func (c ErrorCategory) String() string {
	switch c {
	case CategorySystem:
		return "system"
	case CategoryValidation:
		return "validation"
	case CategoryInternal:
		return "internal"
	case CategoryEscalation:
		return "escalation"
	case CategoryDependency:
		return "dependency"
	case CategoryPermission:
		return "permission"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with category and remediation info
type ClassifiedError struct {
	Category    ErrorCategory
	Message     string
	Cause       error
	Remediation []string
}

// Error implements the error interface
func (e *ClassifiedError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Message)

	if e.Cause != nil && e.Cause.Error() != e.Message {
		sb.WriteString(fmt.Sprintf("\n\nCause: %v", e.Cause))
	}

	if len(e.Remediation) > 0 {
		sb.WriteString("\n\nHow to fix:")
		for i, step := range e.Remediation {
			sb.WriteString(fmt.Sprintf("\n  %d. %s", i+1, step))
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error category
func (e *ClassifiedError) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryInternal:
		return 3
	case CategoryEscalation:
		return 4
	default:
		return 1
	}
}

// GetExitCode extracts exit code from any error.
// Returns 0 for nil and for expected user errors, the category code for
// classified errors and 1 for everything else.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.ExitCode()
	}

	if IsExpectedUserError(err) {
		return 0
	}

	return 1
}

// NewValidationError creates an error for input validation failures
func NewValidationError(message string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategoryValidation,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewSystemError creates an error for service control or OS failures
func NewSystemError(message string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category:    CategorySystem,
		Message:     message,
		Cause:       cause,
		Remediation: remediation,
	}
}

// NewDependencyError creates an error for missing dependencies
func NewDependencyError(dependency, operation string, remediation ...string) error {
	return &ClassifiedError{
		Category: CategoryDependency,
		Message: fmt.Sprintf("%s is required for %s but not found",
			dependency, operation),
		Remediation: remediation,
	}
}

// NewPermissionError reports that the service manager refused operation on
// resource for the current account.
func NewPermissionError(resource, operation string, cause error, remediation ...string) error {
	return &ClassifiedError{
		Category: CategoryPermission,
		Message: fmt.Sprintf("Permission denied: cannot %s %s",
			operation, resource),
		Cause:       cause,
		Remediation: remediation,
	}
}

// IsPermission reports whether err carries CategoryPermission.
func IsPermission(err error) bool {
	var classified *ClassifiedError
	return errors.As(err, &classified) && classified.Category == CategoryPermission
}

// NewInternalError creates an error for aovpn bugs
func NewInternalError(message string, cause error) error {
	return &ClassifiedError{
		Category: CategoryInternal,
		Message:  message,
		Cause:    cause,
		Remediation: []string{
			"This is likely a bug in aovpn",
			"Include this error message and the run report when reporting it",
		},
	}
}

// NewEscalationError reports that the restart budget was exhausted. skipped
// is set when the reboot was only logged.
func NewEscalationError(service string, attempts int, skipped bool, cause error) error {
	action := "host reboot issued"
	if skipped {
		action = "host reboot skipped (--skip-reboot)"
	}
	return &ClassifiedError{
		Category: CategoryEscalation,
		Message: fmt.Sprintf("%s did not recover after %d restart attempts; %s",
			service, attempts, action),
		Cause: cause,
		Remediation: []string{
			"Check the service event log once the host is back online",
			"Verify the TLS certificate bound to the listener is valid",
		},
	}
}

// IsEscalation reports whether err carries CategoryEscalation.
func IsEscalation(err error) bool {
	var classified *ClassifiedError
	return errors.As(err, &classified) && classified.Category == CategoryEscalation
}
