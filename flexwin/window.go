package flexwin

import (
	"github.com/inteleon/dibs-go/dibs"
)

// WindowURL is the hosted FlexWin entry point the browser form posts to.
const WindowURL = "https://" + gatewayHost + "/paymentweb/start.action"

// PaymentParams assembles the browser-POST form for the hosted window:
// merchant defaults, the fixed return/callback fields, caller custom fields
// (which win on conflict), the preauth pair when requested, and finally the
// request digest. Ticket-creation forms (maketicket) are deliberately left
// undigested; that gateway quirk must be preserved, not fixed.
func (c *Client) PaymentParams(amount int64, orderID string, preauth bool, custom *dibs.Fields) *dibs.Fields {
	params := c.defaultParams(dibs.NewFields().
		Set("accepturl", c.cfg.AcceptReturnURL).
		SetInt("amount", amount).
		Set("callbackurl", c.cfg.CallbackURL).
		Set("cancelurl", c.cfg.CancelReturnURL).
		Set("currency", c.cfg.Currency).
		Set("lang", c.cfg.Language).
		Set("orderid", orderID).
		Merge(custom))

	if preauth {
		params.Set("preauth", "true")
		params.Set("zero_auth", "true")
	}

	if !params.Has("maketicket") {
		recipe := dibs.NewFields().
			Set("merchant", params.Get("merchant")).
			Set("orderid", params.Get("orderid")).
			Set("currency", params.Get("currency")).
			Set("amount", params.Get("amount"))
		params.Set("md5key", computeDigest(recipe, c.cfg.MD5Key1, c.cfg.MD5Key2))
	}

	return params
}

// VerifyResultParams authenticates a browser redirect or callback POST from
// the hosted window. The response originates from an untrusted channel, so
// the digest is checked before any field is trusted; mismatch is a hard
// failure. Preauth responses use a recipe without the amount.
func (c *Client) VerifyResultParams(params *dibs.Fields) error {
	recipe := dibs.NewFields()
	if params.Get("preauth") == "true" {
		recipe.Set("transact", params.Get("transact")).
			Set("preauth", "true").
			Set("currency", params.Get("currency"))
	} else {
		recipe.Set("transact", params.Get("transact")).
			Set("amount", params.Get("amount")).
			Set("currency", params.Get("currency"))
	}

	expected := computeDigest(recipe, c.cfg.MD5Key1, c.cfg.MD5Key2)
	if !digestsEqual(params.Get("authkey"), expected) {
		return dibs.NewDigestMismatchError("flexwin result")
	}
	return nil
}

// ResultParams verifies and classifies a hosted-window response in one step.
// Responses that carry a numeric statuscode instead of a status string are
// classified through the transaction status table.
func (c *Client) ResultParams(params *dibs.Fields) (*dibs.Outcome, error) {
	if err := c.VerifyResultParams(params); err != nil {
		return nil, err
	}
	if !params.Has("status") && params.Has("statuscode") {
		return classifyStatusCode(params), nil
	}
	return Classify(opTicketAuth, params)
}

// classifyStatusCode maps the callback's numeric transaction status. The
// declined states (1, 4, 10, 17) classify as declines with the table
// description; everything else reported on a digest-verified callback is a
// processed transaction state.
func classifyStatusCode(params *dibs.Fields) *dibs.Outcome {
	code := params.Get("statuscode")
	reason := dibs.Reason{Code: code, Description: dibs.TransactionStatus(code)}

	switch code {
	case "1", "4", "10", "17":
		return &dibs.Outcome{
			Status: dibs.OutcomeDeclined,
			Reason: reason,
			Fields: params,
		}
	default:
		return &dibs.Outcome{
			Status:   dibs.OutcomeAccepted,
			Reason:   reason,
			Transact: params.Get("transact"),
			Fields:   params,
		}
	}
}
