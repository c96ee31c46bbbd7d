package paywin

import (
	"fmt"

	"github.com/inteleon/dibs-go/dibs"
)

// Classify interprets a JSON API response. ACCEPT and PENDING are both
// non-error terminal states; PENDING means the operation was queued for batch
// processing and its final result lives in DIBS admin. DECLINE and ERROR carry
// a declineReason resolved through the operation family's reason table.
func Classify(op string, result *dibs.Fields) (*dibs.Outcome, error) {
	status, ok := result.Lookup("status")
	if !ok {
		return nil, dibs.NewProtocolError(op, "response carries no status")
	}

	switch status {
	case "ACCEPT":
		return &dibs.Outcome{
			Status:   dibs.OutcomeAccepted,
			Transact: transactRef(result),
			Fields:   result,
		}, nil
	case "PENDING":
		return &dibs.Outcome{
			Status:   dibs.OutcomePending,
			Transact: transactRef(result),
			Fields:   result,
		}, nil
	case "DECLINE":
		return &dibs.Outcome{
			Status: dibs.OutcomeDeclined,
			Reason: declineReason(op, result),
			Fields: result,
		}, nil
	case "ERROR":
		return &dibs.Outcome{
			Status: dibs.OutcomeError,
			Reason: declineReason(op, result),
			Fields: result,
		}, nil
	default:
		return nil, dibs.NewProtocolError(op, fmt.Sprintf("unrecognized status %q", status))
	}
}

// transactRef picks the reference a later operation needs: the transaction id
// for payment operations, the ticket id for ticket creation.
func transactRef(result *dibs.Fields) string {
	if id, ok := result.Lookup("transactionId"); ok {
		return id
	}
	return result.Get("ticketId")
}

// declineReason resolves the gateway's declineReason field. The gateway is
// inconsistent here: the field may be empty, a bare numeric code, or a
// human-readable string. Empty collapses to the "-" placeholder, an
// all-digit value is looked up in the static table for the operation family,
// and anything else passes through verbatim.
func declineReason(op string, result *dibs.Fields) dibs.Reason {
	raw := result.Get("declineReason")
	switch {
	case raw == "":
		return dibs.Reason{Description: "-"}
	case allDigits(raw):
		return dibs.Reason{Code: raw, Description: reasonLookup(op)(raw)}
	default:
		return dibs.Reason{Description: raw}
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func reasonLookup(op string) func(string) string {
	switch op {
	case opAuthorizeTicket, opCreateTicket:
		return dibs.AuthorizationReason
	default:
		return dibs.HandlingReason
	}
}
