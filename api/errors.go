package api

import (
	"fmt"
	"net/http"
)

// StatusCoder is implemented by errors that have an associated HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// Coder is implemented by errors that carry a stable machine-readable code.
type Coder interface {
	Code() string
}

// Stable error codes returned in ErrorResponse.Code.
const (
	CodeInvalidBody     = "invalid_body"
	CodeInvalidUsername = "invalid_username"
	CodeForkNotVerified = "fork_not_verified"
	CodeInvalidSession  = "invalid_session"
	CodeDeployFailed    = "deployment_failed"
	CodeRateLimited     = "rate_limited"
	CodeReclaimList     = "reclaim_list_failed"
	CodeReclaimDelete   = "reclaim_delete_failed"
)

// InputFormatError indicates the request body or account handle is malformed.
type InputFormatError struct {
	Field   string
	Message string
}

func (e *InputFormatError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *InputFormatError) StatusCode() int { return http.StatusBadRequest }

func (e *InputFormatError) Code() string {
	if e.Field == "body" {
		return CodeInvalidBody
	}
	return CodeInvalidUsername
}

// ForkNotVerifiedError indicates the account has no acceptable fork of the
// upstream repository.
type ForkNotVerifiedError struct {
	Handle string
	Reason string
}

func (e *ForkNotVerifiedError) Error() string {
	return fmt.Sprintf("fork not verified for %s: %s", e.Handle, e.Reason)
}

func (e *ForkNotVerifiedError) StatusCode() int { return http.StatusForbidden }
func (e *ForkNotVerifiedError) Code() string    { return CodeForkNotVerified }

// InvalidSessionError indicates the session credential has the wrong shape.
type InvalidSessionError struct{}

func (e *InvalidSessionError) Error() string   { return "invalid session credential" }
func (e *InvalidSessionError) StatusCode() int { return http.StatusBadRequest }
func (e *InvalidSessionError) Code() string    { return CodeInvalidSession }

// ProvisioningError indicates one of the platform calls failed. App is empty
// when the failure happened before the app was created.
type ProvisioningError struct {
	Step string
	App  string
	Err  error
}

func (e *ProvisioningError) Error() string {
	if e.App == "" {
		return fmt.Sprintf("provision %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("provision %s %s: %v", e.Step, e.App, e.Err)
}

func (e *ProvisioningError) Unwrap() error   { return e.Err }
func (e *ProvisioningError) StatusCode() int { return http.StatusInternalServerError }
func (e *ProvisioningError) Code() string    { return CodeDeployFailed }

// ReclamationCycleError aborts a whole reclamation cycle (listing failed).
type ReclamationCycleError struct {
	Err error
}

func (e *ReclamationCycleError) Error() string { return fmt.Sprintf("reclaim: list instances: %v", e.Err) }
func (e *ReclamationCycleError) Unwrap() error { return e.Err }
func (e *ReclamationCycleError) Code() string  { return CodeReclaimList }

// InstanceDeletionError records a failed deletion of one instance; the
// cycle continues with the others.
type InstanceDeletionError struct {
	App string
	Err error
}

func (e *InstanceDeletionError) Error() string {
	return fmt.Sprintf("reclaim: delete %s: %v", e.App, e.Err)
}
func (e *InstanceDeletionError) Unwrap() error { return e.Err }
func (e *InstanceDeletionError) Code() string  { return CodeReclaimDelete }
