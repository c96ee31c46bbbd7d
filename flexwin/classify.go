package flexwin

import (
	"fmt"

	"github.com/inteleon/dibs-go/dibs"
)

// Classify interprets a form-encoded FlexWin response into the outcome
// taxonomy. The operation selects the reason table: ticket and authorization
// operations decline with authorization codes, handling operations (capture,
// refund, cancel, delete) with handling codes. Responses without a status
// fall back to the legacy numeric result contract. Anything else is a
// protocol violation, never a silent success.
func Classify(op string, result *dibs.Fields) (*dibs.Outcome, error) {
	status, ok := result.Lookup("status")
	if !ok {
		return classifyNumericResult(op, result)
	}

	switch status {
	case "ACCEPTED":
		return &dibs.Outcome{
			Status:   dibs.OutcomeAccepted,
			Transact: result.Get("transact"),
			Fields:   result,
		}, nil
	case "DECLINED":
		return &dibs.Outcome{
			Status: dibs.OutcomeDeclined,
			Reason: declineReason(op, result),
			Fields: result,
		}, nil
	default:
		return nil, dibs.NewProtocolError(op, fmt.Sprintf("unrecognized status %q", status))
	}
}

// classifyNumericResult handles legacy replies that only carry a numeric
// result field, as refund.cgi does without textreply. 0 and 1000 are the
// accepted results.
func classifyNumericResult(op string, result *dibs.Fields) (*dibs.Outcome, error) {
	res, ok := result.Lookup("result")
	if !ok {
		return nil, dibs.NewProtocolError(op, "response carries neither status nor result")
	}
	if res == "0" || res == "1000" {
		return &dibs.Outcome{
			Status:   dibs.OutcomeAccepted,
			Transact: result.Get("transact"),
			Fields:   result,
		}, nil
	}
	return &dibs.Outcome{
		Status: dibs.OutcomeDeclined,
		Reason: declineReason(op, result),
		Fields: result,
	}, nil
}

// declineReason extracts the decline cause: the gateway's message field when
// present, otherwise the reason (or result) code resolved against the static
// table for the operation family. Codes missing from the table pass through
// verbatim.
func declineReason(op string, result *dibs.Fields) dibs.Reason {
	code := result.Get("reason")
	if code == "" {
		code = result.Get("result")
	}
	if msg := result.Get("message"); msg != "" {
		return dibs.Reason{Code: code, Description: msg}
	}
	return dibs.Reason{Code: code, Description: reasonLookup(op)(code)}
}

func reasonLookup(op string) func(string) string {
	switch op {
	case opAuth, op3DSecure, opTicketAuth:
		return dibs.AuthorizationReason
	default:
		return dibs.HandlingReason
	}
}
