// Package paywin implements the DIBS Payment Window JSON protocol: form posts
// carrying a JSON request document, authenticated by an HMAC-SHA256 MAC over
// the sorted parameter set, with ACCEPT/PENDING/DECLINE/ERROR responses.
package paywin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sort"
	"strconv"

	"github.com/inteleon/dibs-go/dibs"
)

const (
	opAuthorizeTicket    = "AuthorizeTicket"
	opCancelTransaction  = "CancelTransaction"
	opCaptureTransaction = "CaptureTransaction"
	opCreateTicket       = "CreateTicket"
	opRefundTransaction  = "RefundTransaction"
	opPing               = "Ping"
)

const apiBaseURL = "https://api.dibspayment.com/merchant/v1/JSON/Transaction/"

// Config carries the merchant's Payment Window credentials and shared
// settings. HMACKey is the hex-encoded secret from DIBS admin.
type Config struct {
	MerchantID string
	HMACKey    string

	AcceptReturnURL string
	CancelReturnURL string
	CallbackURL     string
	Currency        string
	Language        string
	Test            bool
}

// Client issues Payment Window JSON operations through an injected transport.
// Safe for concurrent use when its transport is.
type Client struct {
	cfg       Config
	transport dibs.Transport
	logger    *slog.Logger
}

// NewClient builds a Payment Window client. A nil transport gets the default
// HTTP transport; a nil logger gets slog.Default().
func NewClient(cfg Config, transport dibs.Transport, logger *slog.Logger) *Client {
	if transport == nil {
		transport = dibs.NewHTTPTransport(dibs.TransportOptions{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, transport: transport, logger: logger}
}

// post dispatches one JSON operation: sign the parameters, append the test
// flag, marshal the document and POST it as the request form field, then
// flatten the JSON reply back into fields. The MAC is computed before the
// test flag is appended; the gateway verifies it that way and reordering the
// two steps breaks every test-mode call.
func (c *Client) post(ctx context.Context, op string, params *dibs.Fields) (*dibs.Fields, error) {
	mac, err := ComputeMAC(params, c.cfg.HMACKey)
	if err != nil {
		return nil, err
	}
	params.Set("MAC", mac)
	if c.cfg.Test {
		params.Set("test", "1")
	}

	doc, err := json.Marshal(params)
	if err != nil {
		return nil, dibs.NewProtocolError(op, "encode request")
	}

	form := url.Values{}
	form.Set("request", string(doc))

	body, err := c.transport.Post(ctx, apiBaseURL+op, form)
	if err != nil {
		return nil, dibs.NewTransportError(op, err)
	}

	result, err := decodeResponse(op, body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("gateway response",
		"op", op,
		"status", result.Get("status"),
	)
	return result, nil
}

// decodeResponse flattens the gateway's JSON object into string fields.
// Numeric values are rendered without an exponent so transaction ids and
// amounts survive the trip intact.
func decodeResponse(op string, body []byte) (*dibs.Fields, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, dibs.NewProtocolError(op, "malformed response")
	}

	result := dibs.NewFields()
	for _, k := range sortedKeys(raw) {
		switch v := raw[k].(type) {
		case string:
			result.Set(k, v)
		case float64:
			result.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
		case bool:
			result.Set(k, strconv.FormatBool(v))
		case nil:
			result.Set(k, "")
		default:
			nested, err := json.Marshal(v)
			if err != nil {
				return nil, dibs.NewProtocolError(op, "malformed response")
			}
			result.Set(k, string(nested))
		}
	}
	return result, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AuthorizeTicket reserves amount (integer minor units) against a stored-card
// ticket.
func (c *Client) AuthorizeTicket(ctx context.Context, amount int64, orderID, ticketID string) (*dibs.Outcome, error) {
	params := dibs.NewFields().
		SetInt("amount", amount).
		Set("currency", c.cfg.Currency).
		Set("merchantId", c.cfg.MerchantID).
		Set("orderId", orderID).
		Set("ticketId", ticketID)

	return c.run(ctx, opAuthorizeTicket, params)
}

// CaptureTransaction transfers previously authorized funds. A PENDING outcome
// means the capture was queued for batch processing.
func (c *Client) CaptureTransaction(ctx context.Context, amount int64, transactionID string) (*dibs.Outcome, error) {
	params := dibs.NewFields().
		SetInt("amount", amount).
		Set("merchantId", c.cfg.MerchantID).
		Set("transactionId", transactionID)

	return c.run(ctx, opCaptureTransaction, params)
}

// RefundTransaction refunds a captured transaction.
func (c *Client) RefundTransaction(ctx context.Context, amount int64, transactionID string) (*dibs.Outcome, error) {
	params := dibs.NewFields().
		SetInt("amount", amount).
		Set("merchantId", c.cfg.MerchantID).
		Set("transactionId", transactionID)

	return c.run(ctx, opRefundTransaction, params)
}

// CancelTransaction voids an authorization that has not been captured.
func (c *Client) CancelTransaction(ctx context.Context, transactionID string) (*dibs.Outcome, error) {
	params := dibs.NewFields().
		Set("merchantId", c.cfg.MerchantID).
		Set("transactionId", transactionID)

	return c.run(ctx, opCancelTransaction, params)
}

// CreateTicket registers a card for later recurring charges. Card data
// travels in custom; the client only contributes the merchant identity and
// currency.
func (c *Client) CreateTicket(ctx context.Context, orderID string, custom *dibs.Fields) (*dibs.Outcome, error) {
	params := dibs.NewFields().
		Set("currency", c.cfg.Currency).
		Set("merchantId", c.cfg.MerchantID).
		Set("orderId", orderID).
		Merge(custom)

	return c.run(ctx, opCreateTicket, params)
}

// Ping checks connectivity and credentials against the JSON service.
func (c *Client) Ping(ctx context.Context) (*dibs.Outcome, error) {
	params := dibs.NewFields().
		Set("merchantId", c.cfg.MerchantID)

	return c.run(ctx, opPing, params)
}

// ChargeCard authorizes amount against a ticket and immediately captures it.
// The two steps are not atomic: a capture failure surfaces the capture's
// outcome and leaves the authorization open for the merchant to resolve in
// DIBS admin. No compensating cancel is issued.
func (c *Client) ChargeCard(ctx context.Context, amount int64, orderID, ticketID string) (*dibs.Outcome, error) {
	auth, err := c.AuthorizeTicket(ctx, amount, orderID, ticketID)
	if err != nil {
		return auth, err
	}
	return c.CaptureTransaction(ctx, amount, auth.Transact)
}

func (c *Client) run(ctx context.Context, op string, params *dibs.Fields) (*dibs.Outcome, error) {
	result, err := c.post(ctx, op, params)
	if err != nil {
		return nil, err
	}
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
