package dibs

// OutcomeStatus is the closed classification of a gateway response.
type OutcomeStatus string

const (
	OutcomeAccepted OutcomeStatus = "accepted"
	// OutcomePending means the gateway accepted the request for batch
	// processing; the final result shows up in DIBS admin. Non-error.
	OutcomePending  OutcomeStatus = "pending"
	OutcomeDeclined OutcomeStatus = "declined"
	OutcomeError    OutcomeStatus = "error"
)

// Reason carries a decline or error cause: the raw gateway code plus a
// human-readable description resolved from the static tables, or the
// gateway's own message when it supplied one.
type Reason struct {
	Code        string
	Description string
}

// Outcome is the classified result of one gateway operation.
type Outcome struct {
	Status OutcomeStatus
	Reason Reason
	// Transact is the gateway-assigned transaction reference when the
	// response echoed one. The gateway owns its validity; no expiry is
	// enforced here.
	Transact string
	// Fields holds the raw, parsed response for callers that need more
	// than the classification.
	Fields *Fields
}

// OK reports whether the outcome is a non-error terminal state. Accepted and
// Pending both qualify; callers that care about the difference check Status.
func (o *Outcome) OK() bool {
	return o.Status == OutcomeAccepted || o.Status == OutcomePending
}
