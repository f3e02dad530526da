// Package identity implements the gate that every operation request must
// clear before anything else happens: the requester identity claimed in the
// request arguments must match the identity of the authenticated execution
// context, byte for byte.
//
// The gate runs before operation lookup, before path validation and before
// permission checks. A request that fails here learns nothing about the
// system - not even whether the operation it asked for exists.
package identity

import (
	"github.com/atelierhq/wardenfs/internal/logger"
	"github.com/atelierhq/wardenfs/pkg/workspace"
)

// SecurityLogFunc receives security-relevant events. The default forwards
// to the process security log stream.
type SecurityLogFunc func(format string, v ...any)

// Gate verifies claimed identities against authenticated execution
// contexts.
type Gate struct {
	securityLog SecurityLogFunc
}

// NewGate builds an identity gate. A nil securityLog falls back to the
// default security stream.
func NewGate(securityLog SecurityLogFunc) *Gate {
	if securityLog == nil {
		securityLog = logger.Security
	}
	return &Gate{securityLog: securityLog}
}

// Verify checks that the claimed requester identity is exactly the
// authenticated one. The comparison is plain byte equality: no trimming,
// no case folding, no normalization. Any divergence, including an empty
// claim, is a spoofing attempt and is logged to the security stream with
// full detail; the returned error carries none of it.
func (g *Gate) Verify(claimedID string, ectx *workspace.ExecutionContext, operation string) error {
	if claimedID == ectx.RequesterID {
		return nil
	}

	g.securityLog(
		"identity mismatch: claimed=%q actual=%q operation=%q correlation=%s",
		claimedID, ectx.RequesterID, operation, ectx.CorrelationID,
	)

	return &workspace.IdentityMismatchError{
		ClaimedID:     claimedID,
		ActualID:      ectx.RequesterID,
		Operation:     operation,
		CorrelationID: ectx.CorrelationID,
	}
}
