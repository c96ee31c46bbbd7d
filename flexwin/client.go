// Package flexwin implements the legacy DIBS FlexWin form protocol: the
// two-key MD5 request digests, the cgi operation endpoints and the
// ACCEPTED/DECLINED response contract.
package flexwin

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/inteleon/dibs-go/dibs"
)

// Operation names double as the gateway function names.
const (
	opAuth       = "auth.cgi"
	op3DSecure   = "3dsecure.cgi"
	opCancel     = "cancel.cgi"
	opSupplAuth  = "suppl_auth.cgi"
	opTicketAuth = "ticket_auth.cgi"
	opCapture    = "capture.cgi"
	opRefund     = "refund.cgi"
	opDelTicket  = "delticket.cgi"
)

const gatewayHost = "payment.architrade.com"

// Config carries the merchant's FlexWin credentials and shared settings.
// Immutable for the lifetime of a client.
type Config struct {
	MerchantID string
	// MD5Key1 and MD5Key2 are the two digest secrets from DIBS admin.
	MD5Key1 string
	MD5Key2 string
	// LoginUser and LoginPassword authenticate the two cgi-adm endpoints
	// (delticket.cgi, refund.cgi); the credentials are embedded in the
	// endpoint URL.
	LoginUser     string
	LoginPassword string

	AcceptReturnURL string
	CancelReturnURL string
	CallbackURL     string
	Currency        string
	Language        string
	Test            bool

	// SkipResponseVerification disables digest verification of
	// server-to-server responses. Those arrive over an authenticated TLS
	// channel, so skipping is defensible; verification stays on by
	// default. Redirect/callback verification is never skippable.
	SkipResponseVerification bool
}

// Client issues FlexWin operations against the fixed gateway endpoints
// through an injected transport. All per-call state is local to the call, so
// a client is safe for concurrent use when its transport is.
type Client struct {
	cfg       Config
	transport dibs.Transport
	logger    *slog.Logger
}

// NewClient builds a FlexWin client. A nil transport gets the default HTTP
// transport with gateway defaults; a nil logger gets slog.Default().
func NewClient(cfg Config, transport dibs.Transport, logger *slog.Logger) *Client {
	if transport == nil {
		transport = dibs.NewHTTPTransport(dibs.TransportOptions{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, transport: transport, logger: logger}
}

// endpoint resolves an operation to its absolute, TLS-pinned URL. The
// cgi-adm operations require the merchant login embedded as basic-auth
// userinfo.
func (c *Client) endpoint(op string) (string, error) {
	switch op {
	case opTicketAuth:
		return "https://" + gatewayHost + "/cgi-ssl/ticket_auth.cgi", nil
	case opCapture:
		return "https://" + gatewayHost + "/cgi-bin/capture.cgi", nil
	case opDelTicket, opRefund:
		u := url.URL{
			Scheme: "https",
			User:   url.UserPassword(c.cfg.LoginUser, c.cfg.LoginPassword),
			Host:   gatewayHost,
			Path:   "/cgi-adm/" + op,
		}
		return u.String(), nil
	default:
		return "", dibs.NewProtocolError(op, "unknown operation")
	}
}

// defaultParams seeds every request with the merchant id, the test flag when
// test mode is on, and then the operation fields, which may override both.
func (c *Client) defaultParams(extra *dibs.Fields) *dibs.Fields {
	params := dibs.NewFields()
	params.Set("merchant", c.cfg.MerchantID)
	if c.cfg.Test {
		params.Set("test", "1")
	}
	return params.Merge(extra)
}

// post dispatches one operation: resolve the endpoint, attach the request
// digest when the operation's recipe calls for one, issue the POST and parse
// the form-encoded reply. Transport faults propagate as KindTransport;
// unparseable bodies are a protocol violation.
func (c *Client) post(ctx context.Context, op string, params *dibs.Fields) (*dibs.Fields, error) {
	recipe, digested, err := requestRecipe(op, params)
	if err != nil {
		return nil, err
	}
	if digested {
		params.Set("md5key", computeDigest(recipe, c.cfg.MD5Key1, c.cfg.MD5Key2))
	}

	endpoint, err := c.endpoint(op)
	if err != nil {
		return nil, err
	}

	body, err := c.transport.Post(ctx, endpoint, params.Values())
	if err != nil {
		return nil, dibs.NewTransportError(op, err)
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, dibs.NewProtocolError(op, "malformed response")
	}
	result := dibs.FieldsFromValues(values)

	c.logger.Debug("gateway response",
		"op", op,
		"status", result.Get("status"),
	)
	return result, nil
}

// AuthorizeTicket reserves amount (integer minor units) against a stored-card
// ticket. On ACCEPTED the outcome carries the new transaction reference for
// later capture.
func (c *Client) AuthorizeTicket(ctx context.Context, amount int64, orderID, ticket string) (*dibs.Outcome, error) {
	params := c.defaultParams(dibs.NewFields().
		SetInt("amount", amount).
		Set("currency", c.cfg.Currency).
		Set("orderid", orderID).
		Set("ticket", ticket).
		Set("textreply", "1"))

	result, err := c.post(ctx, opTicketAuth, params)
	if err != nil {
		return nil, err
	}
	if err := c.verifyResponse(opTicketAuth, params, result); err != nil {
		return nil, err
	}
	return c.classified(opTicketAuth, result)
}

// CaptureTransaction transfers previously authorized funds.
func (c *Client) CaptureTransaction(ctx context.Context, amount int64, orderID, transact string) (*dibs.Outcome, error) {
	params := c.defaultParams(dibs.NewFields().
		SetInt("amount", amount).
		Set("orderid", orderID).
		Set("transact", transact).
		Set("textreply", "1"))

	result, err := c.post(ctx, opCapture, params)
	if err != nil {
		return nil, err
	}
	return c.classified(opCapture, result)
}

// RefundTransaction refunds a captured transaction.
func (c *Client) RefundTransaction(ctx context.Context, amount int64, orderID, transact string) (*dibs.Outcome, error) {
	params := c.defaultParams(dibs.NewFields().
		SetInt("amount", amount).
		Set("currency", c.cfg.Currency).
		Set("orderid", orderID).
		Set("transact", transact).
		Set("textreply", "1"))

	result, err := c.post(ctx, opRefund, params)
	if err != nil {
		return nil, err
	}
	return c.classified(opRefund, result)
}

// RefundCard refunds and additionally enforces the legacy numeric result
// contract: any result other than 0 or 1000 is a decline even when no status
// field says so.
func (c *Client) RefundCard(ctx context.Context, amount int64, orderID, transact string) (*dibs.Outcome, error) {
	outcome, err := c.RefundTransaction(ctx, amount, orderID, transact)
	if err != nil {
		return outcome, err
	}
	res := outcome.Fields.Get("result")
	if res != "" && res != "0" && res != "1000" {
		reason := outcome.Fields.Get("message")
		if reason == "" {
			reason = dibs.HandlingReason(res)
		}
		return outcome, dibs.NewDeclinedError(opRefund, res, reason)
	}
	return outcome, nil
}

// DeleteTicket removes a stored-card ticket. The request is deliberately
// undigested; the endpoint authenticates via the embedded login instead.
func (c *Client) DeleteTicket(ctx context.Context, ticket string) (*dibs.Outcome, error) {
	params := c.defaultParams(dibs.NewFields().Set("ticket", ticket))

	result, err := c.post(ctx, opDelTicket, params)
	if err != nil {
		return nil, err
	}
	return c.classified(opDelTicket, result)
}

// DeleteCard is an alias for DeleteTicket.
func (c *Client) DeleteCard(ctx context.Context, ticket string) (*dibs.Outcome, error) {
	return c.DeleteTicket(ctx, ticket)
}

// ChargeCard authorizes amount against a ticket and immediately captures it.
// The two steps are not atomic: a capture failure surfaces the capture's
// outcome and leaves the authorization open for the merchant to resolve in
// DIBS admin. No compensating cancel is issued.
func (c *Client) ChargeCard(ctx context.Context, amount int64, orderID, ticket string) (*dibs.Outcome, error) {
	auth, err := c.AuthorizeTicket(ctx, amount, orderID, ticket)
	if err != nil {
		return auth, err
	}
	return c.CaptureTransaction(ctx, amount, orderID, auth.Transact)
}

// verifyResponse checks the digest on a server-to-server response when the
// operation has a response recipe. The channel is already authenticated by
// TLS, so absence of an authkey is tolerated and the whole check can be
// switched off in Config.
func (c *Client) verifyResponse(op string, params, result *dibs.Fields) error {
	if c.cfg.SkipResponseVerification || !result.Has("authkey") {
		return nil
	}
	recipe, err := responseRecipe(op, params, result)
	if err != nil {
		return err
	}
	expected := computeDigest(recipe, c.cfg.MD5Key1, c.cfg.MD5Key2)
	if !digestsEqual(result.Get("authkey"), expected) {
		return dibs.NewDigestMismatchError(op)
	}
	return nil
}

// classified converts a classification into the operation result: accepted
// and pending outcomes return cleanly, declines and gateway errors come back
// as structured errors alongside the outcome.
func (c *Client) classified(op string, result *dibs.Fields) (*dibs.Outcome, error) {
	outcome, err := Classify(op, result)
	if err != nil {
		return nil, err
	}
	switch outcome.Status {
	case dibs.OutcomeDeclined:
		return outcome, dibs.NewDeclinedError(op, outcome.Reason.Code, outcome.Reason.Description)
	case dibs.OutcomeError:
		return outcome, dibs.NewGatewayError(op, outcome.Reason.Code, outcome.Reason.Description)
	default:
		return outcome, nil
	}
}
