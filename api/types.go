// Package api holds the wire types and error taxonomy shared by the forkgate
// server, its clients and the simulators.
package api

import "time"

// DeployRequest is the body of POST /deploy.
type DeployRequest struct {
	GitHubUsername string `json:"github_username"`
	SessionID      string `json:"session_id"`
}

// DeployResponse is returned when a deployment reaches DONE.
type DeployResponse struct {
	Success        bool   `json:"success"`
	URL            string `json:"url"`
	AppName        string `json:"appName"`
	DeploymentTime string `json:"deployment_time"`
}

// ErrorResponse is the JSON body of every non-2xx response from /deploy.
// Only the fields relevant to the failing stage are populated.
type ErrorResponse struct {
	Error          string   `json:"error"`
	Code           string   `json:"code"`
	Solution       string   `json:"solution,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	Steps          []string `json:"steps,omitempty"`
	ForkURL        string   `json:"fork_url,omitempty"`
	RequiredFormat string   `json:"required_format,omitempty"`
	Example        string   `json:"example,omitempty"`
	Details        string   `json:"details,omitempty"`
	Tip            string   `json:"tip,omitempty"`
}

// Instance is an application instance created by the provisioner.
type Instance struct {
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	CreatedAt     time.Time `json:"created_at"`
	SourceAccount string    `json:"source_account"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
