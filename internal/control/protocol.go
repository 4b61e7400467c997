package control

import (
	"github.com/google/uuid"

	"gatewayfleet/internal/config"
)

// Op names the operation a Request asks the control plane to perform. Six
// map 1:1 onto the six fleet directives; the other two are the Status
// query and the Reload op.
type Op string

const (
	OpStageService             Op = "stage_service"
	OpUpdateDeployedWithStaged Op = "update_deployed_with_staged"
	OpDeployNewFromStaged      Op = "deploy_new_from_staged"
	OpCreateAndDeploy          Op = "create_and_deploy"
	OpAbortStaging             Op = "abort_staging"
	OpRemoveService            Op = "remove_service"
	OpStatus                   Op = "status"
	OpReload                   Op = "reload"
)

// Request is one newline-delimited JSON request read off the control
// socket. RequestID correlates a request with its Response in server logs;
// it is assigned by the client, one per call.
type Request struct {
	Op        Op                     `json:"op"`
	RequestID string                 `json:"requestId"`
	Site      string                 `json:"site,omitempty"`
	Listener  *config.ListenerConfig `json:"listener,omitempty"`
	Service   *config.ServiceConfig  `json:"service,omitempty"`
}

// Response is the newline-delimited JSON reply to a Request. RequestID
// echoes the request it answers.
type Response struct {
	OK        bool           `json:"ok"`
	RequestID string         `json:"requestId,omitempty"`
	Error     string         `json:"error,omitempty"`
	Status    []WorkerStatus `json:"status,omitempty"`
}

// newRequestID generates a fresh correlation ID for an outgoing Request.
func newRequestID() string {
	return uuid.New().String()
}

// WorkerStatus mirrors fleet's per-worker status snapshot for the status
// query's wire shape, decoupling the control protocol's JSON encoding from
// the orchestrator's internal (unexported) snapshot type.
type WorkerStatus struct {
	WorkerID int          `json:"workerId"`
	Sites    []SiteStatus `json:"sites"`
}

// SiteStatus describes one site's deploy state.
type SiteStatus struct {
	Name     string `json:"name"`
	Deployed bool   `json:"deployed"`
	Staged   bool   `json:"staged"`
}
