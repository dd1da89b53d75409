package core

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sockerless/forkgate/api"
	"github.com/sockerless/forkgate/heroku"
)

const sessionExample = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."

// Remediation holds the user-facing guidance attached to pipeline failures.
type Remediation struct {
	Upstream string
	Session  SessionFormat
}

// ForkURL is where users create the fork.
func (rm Remediation) ForkURL() string {
	return fmt.Sprintf("https://github.com/%s/fork", rm.Upstream)
}

// Response maps a pipeline error onto its status and body. Only the
// platform's own message text is passed through; every other cause is
// summarized.
func (rm Remediation) Response(err error) (int, api.ErrorResponse) {
	var (
		inputErr   *api.InputFormatError
		forkErr    *api.ForkNotVerifiedError
		sessionErr *api.InvalidSessionError
		provErr    *api.ProvisioningError
	)
	switch {
	case errors.As(err, &inputErr) && inputErr.Code() == api.CodeInvalidBody:
		return inputErr.StatusCode(), api.ErrorResponse{
			Error:    "Invalid request body",
			Code:     api.CodeInvalidBody,
			Solution: "Send a JSON object with github_username and session_id",
		}
	case errors.As(err, &inputErr):
		return inputErr.StatusCode(), api.ErrorResponse{
			Error:    "Invalid GitHub username format",
			Code:     inputErr.Code(),
			Solution: "Use only letters, numbers, hyphens or underscores",
		}
	case errors.As(err, &forkErr):
		return forkErr.StatusCode(), api.ErrorResponse{
			Error:  "Valid fork not found",
			Code:   forkErr.Code(),
			Reason: forkErr.Reason,
			Steps: []string{
				"1. Fork https://github.com/" + rm.Upstream,
				"2. Wait 2 minutes for GitHub to sync",
				"3. Ensure your fork is public",
			},
			ForkURL: rm.ForkURL(),
		}
	case errors.As(err, &sessionErr):
		return sessionErr.StatusCode(), api.ErrorResponse{
			Error:          "Invalid SESSION_ID",
			Code:           sessionErr.Code(),
			RequiredFormat: rm.Session.RequiredFormat(),
			Example:        rm.Session.Prefixes()[0] + sessionExample,
		}
	case errors.As(err, &provErr):
		return provErr.StatusCode(), api.ErrorResponse{
			Error:   "Deployment failed",
			Code:    provErr.Code(),
			Details: platformMessage(provErr.Err),
			Tip:     "Check your Heroku API key and quota",
		}
	default:
		status := http.StatusInternalServerError
		var sc api.StatusCoder
		if errors.As(err, &sc) {
			status = sc.StatusCode()
		}
		return status, api.ErrorResponse{
			Error:   "Deployment failed",
			Code:    api.CodeDeployFailed,
			Details: "internal error",
		}
	}
}

func platformMessage(err error) string {
	var apiErr *heroku.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return "platform request failed"
}
