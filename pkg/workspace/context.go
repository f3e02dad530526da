package workspace

import "github.com/google/uuid"

// ExecutionContext carries the trusted identity and correlation metadata of
// one request through the whole operation chain.
//
// It is established exactly once per request by the caller's authenticated
// session and then passed by reference; no component in the chain ever
// reconstructs it. The RequesterID here is the only trusted source of
// "who is asking" - requester ids appearing inside operation arguments are
// untrusted claims that the identity gate checks against this context.
type ExecutionContext struct {
	// RequesterID is the session-established identity of the caller
	RequesterID string

	// OrganizationID identifies the organization the request runs in
	OrganizationID string

	// CorrelationID ties together all log and audit records of one request
	CorrelationID string
}

// NewExecutionContext builds an execution context for an authenticated
// requester with a fresh random correlation id.
func NewExecutionContext(requesterID, organizationID string) *ExecutionContext {
	return &ExecutionContext{
		RequesterID:    requesterID,
		OrganizationID: organizationID,
		CorrelationID:  uuid.NewString(),
	}
}
