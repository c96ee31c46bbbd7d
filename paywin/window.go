package paywin

import (
	"fmt"

	"github.com/inteleon/dibs-go/dibs"
)

// WindowURL is the hosted Payment Window entry point the browser form posts
// to.
const WindowURL = "https://sat1.dibspayment.com/dibspaymentwindow/entrypoint"

// PaymentParams assembles the browser-POST form for the hosted window. Unlike
// the API calls, the test and createTicket flags go in before the MAC is
// computed, so the MAC covers them. Custom fields (gateway convention: keys
// prefixed s_) win on conflict.
func (c *Client) PaymentParams(amount int64, orderID string, createTicket bool, custom *dibs.Fields) (*dibs.Fields, error) {
	params := dibs.NewFields().
		Set("acceptReturnUrl", c.cfg.AcceptReturnURL).
		SetInt("amount", amount).
		Set("callbackUrl", c.cfg.CallbackURL).
		Set("cancelReturnUrl", c.cfg.CancelReturnURL).
		Set("currency", c.cfg.Currency).
		Set("language", c.cfg.Language).
		Set("merchant", c.cfg.MerchantID).
		Set("orderId", orderID)

	if c.cfg.Test {
		params.Set("test", "1")
	}
	if createTicket {
		params.Set("createTicket", "1")
	}
	params.Merge(custom)

	mac, err := ComputeMAC(params, c.cfg.HMACKey)
	if err != nil {
		return nil, err
	}
	params.Set("MAC", mac)
	return params, nil
}

// VerifyResultParams authenticates a redirect or callback POST from the
// hosted window. The MAC is checked before any field is trusted.
func (c *Client) VerifyResultParams(params *dibs.Fields) error {
	return VerifyMAC(params, c.cfg.HMACKey)
}

// ResultParams verifies and classifies a hosted-window response in one step.
func (c *Client) ResultParams(params *dibs.Fields) (*dibs.Outcome, error) {
	if err := c.VerifyResultParams(params); err != nil {
		return nil, err
	}
	return ClassifyResult(params)
}

// ClassifyResult interprets a hosted-window response. A ticket field marks a
// ticket registration governed by ticketStatus; everything else is a payment
// governed by status. CANCELLED means the customer abandoned the window and
// classifies as a decline. Field validation errors reported by the window are
// folded into the reason text.
func ClassifyResult(params *dibs.Fields) (*dibs.Outcome, error) {
	if params.Has("ticket") {
		return classifyTicketResult(params)
	}

	status := params.Get("status")
	switch status {
	case "ACCEPTED":
		return &dibs.Outcome{
			Status:   dibs.OutcomeAccepted,
			Transact: windowTransact(params),
			Fields:   params,
		}, nil
	case "PENDING":
		return &dibs.Outcome{
			Status:   dibs.OutcomePending,
			Transact: windowTransact(params),
			Fields:   params,
		}, nil
	case "DECLINED":
		return &dibs.Outcome{
			Status: dibs.OutcomeDeclined,
			Reason: dibs.Reason{Code: "DECLINED", Description: withValidationErrors("Transaction declined.", params)},
			Fields: params,
		}, nil
	case "CANCELLED":
		return &dibs.Outcome{
			Status: dibs.OutcomeDeclined,
			Reason: dibs.Reason{Code: "CANCELLED", Description: withValidationErrors("Payment cancelled by user.", params)},
			Fields: params,
		}, nil
	default:
		return nil, dibs.NewProtocolError("paywin result", fmt.Sprintf("unrecognized status %q", status))
	}
}

func classifyTicketResult(params *dibs.Fields) (*dibs.Outcome, error) {
	status := params.Get("ticketStatus")
	switch status {
	case "ACCEPTED":
		return &dibs.Outcome{
			Status:   dibs.OutcomeAccepted,
			Transact: params.Get("ticket"),
			Fields:   params,
		}, nil
	case "DECLINED":
		return &dibs.Outcome{
			Status: dibs.OutcomeDeclined,
			Reason: dibs.Reason{Code: "DECLINED", Description: withValidationErrors("Ticket creation was declined by DIBS or the acquirer.", params)},
			Fields: params,
		}, nil
	case "ERROR":
		return &dibs.Outcome{
			Status: dibs.OutcomeError,
			Reason: dibs.Reason{Code: "ERROR", Description: withValidationErrors("An error happened. More information is available in DIBS Admin.", params)},
			Fields: params,
		}, nil
	default:
		return nil, dibs.NewProtocolError("paywin result", fmt.Sprintf("unrecognized ticketStatus %q", status))
	}
}

// windowTransact reads the transaction reference. The window documents the
// field as transaction but some callback variants still send transact.
func windowTransact(params *dibs.Fields) string {
	if id, ok := params.Lookup("transaction"); ok {
		return id
	}
	return params.Get("transact")
}

func withValidationErrors(desc string, params *dibs.Fields) string {
	if v := params.Get("validationErrors"); v != "" {
		return desc + " (Validation errors: " + v + ")"
	}
	return desc
}
