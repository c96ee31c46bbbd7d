package flexwin_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteleon/dibs-go/dibs"
	"github.com/inteleon/dibs-go/flexwin"
)

type postCall struct {
	endpoint string
	form     url.Values
}

// mockTransport records every POST and answers from a scripted response list.
type mockTransport struct {
	calls     []postCall
	responses []string
	err       error
}

func (m *mockTransport) Post(_ context.Context, endpoint string, form url.Values) ([]byte, error) {
	m.calls = append(m.calls, postCall{endpoint: endpoint, form: form})
	if m.err != nil {
		return nil, m.err
	}
	resp := m.responses[len(m.calls)-1]
	return []byte(resp), nil
}

func testConfig() flexwin.Config {
	return flexwin.Config{
		MerchantID:    "90089898",
		MD5Key1:       "flexkey-one",
		MD5Key2:       "flexkey-two",
		LoginUser:     "apiuser",
		LoginPassword: "apipass",
		Currency:      "752",
	}
}

func TestAuthorizeTicket_Accepted(t *testing.T) {
	transport := &mockTransport{responses: []string{
		"status=ACCEPTED&transact=123456&authkey=ca1f50a671a5ff991e417765e66920db",
	}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	outcome, err := client.AuthorizeTicket(context.Background(), 2500, "ORDER-1001", "555000")
	require.NoError(t, err)

	assert.Equal(t, dibs.OutcomeAccepted, outcome.Status)
	assert.Equal(t, "123456", outcome.Transact)
	assert.True(t, outcome.OK())

	require.Len(t, transport.calls, 1)
	call := transport.calls[0]
	assert.Equal(t, "https://payment.architrade.com/cgi-ssl/ticket_auth.cgi", call.endpoint)
	assert.Equal(t, "90089898", call.form.Get("merchant"))
	assert.Equal(t, "555000", call.form.Get("ticket"))
	assert.Equal(t, "1", call.form.Get("textreply"))
	assert.Equal(t, "b2844203f2930568eb181befa984c200", call.form.Get("md5key"))
	assert.Empty(t, call.form.Get("test"))
}

func TestAuthorizeTicket_TestModeFlag(t *testing.T) {
	cfg := testConfig()
	cfg.Test = true
	transport := &mockTransport{responses: []string{"status=ACCEPTED&transact=123456"}}
	client := flexwin.NewClient(cfg, transport, nil)

	_, err := client.AuthorizeTicket(context.Background(), 2500, "ORDER-1001", "555000")
	require.NoError(t, err)

	assert.Equal(t, "1", transport.calls[0].form.Get("test"))
}

func TestAuthorizeTicket_ResponseDigestMismatch(t *testing.T) {
	transport := &mockTransport{responses: []string{
		"status=ACCEPTED&transact=123456&authkey=0000000000000000000000000000dead",
	}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	_, err := client.AuthorizeTicket(context.Background(), 2500, "ORDER-1001", "555000")
	assert.True(t, dibs.IsKind(err, dibs.KindDigestMismatch))
}

func TestAuthorizeTicket_SkipResponseVerification(t *testing.T) {
	cfg := testConfig()
	cfg.SkipResponseVerification = true
	transport := &mockTransport{responses: []string{
		"status=ACCEPTED&transact=123456&authkey=0000000000000000000000000000dead",
	}}
	client := flexwin.NewClient(cfg, transport, nil)

	outcome, err := client.AuthorizeTicket(context.Background(), 2500, "ORDER-1001", "555000")
	require.NoError(t, err)
	assert.Equal(t, dibs.OutcomeAccepted, outcome.Status)
}

func TestAuthorizeTicket_MissingAuthkeyTolerated(t *testing.T) {
	// Server-to-server replies travel an authenticated TLS channel; a reply
	// without a digest still classifies.
	transport := &mockTransport{responses: []string{"status=ACCEPTED&transact=123456"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	outcome, err := client.AuthorizeTicket(context.Background(), 2500, "ORDER-1001", "555000")
	require.NoError(t, err)
	assert.Equal(t, "123456", outcome.Transact)
}

func TestCaptureTransaction_Accepted(t *testing.T) {
	transport := &mockTransport{responses: []string{"status=ACCEPTED&transact=123456"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	outcome, err := client.CaptureTransaction(context.Background(), 2500, "ORDER-1001", "123456")
	require.NoError(t, err)

	assert.Equal(t, dibs.OutcomeAccepted, outcome.Status)
	assert.Equal(t, "123456", outcome.Transact)
}

func TestCaptureTransaction_DeclinedExpiredCard(t *testing.T) {
	transport := &mockTransport{responses: []string{"status=DECLINED&reason=3"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	outcome, err := client.CaptureTransaction(context.Background(), 2500, "ORDER-1001", "123456")
	require.Error(t, err)

	e, ok := dibs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, dibs.KindDeclined, e.Kind)
	assert.Equal(t, "3", e.Code)
	assert.Equal(t, "Credit card expired.", e.Reason)

	require.NotNil(t, outcome)
	assert.Equal(t, dibs.OutcomeDeclined, outcome.Status)
	assert.Equal(t, "Credit card expired.", outcome.Reason.Description)

	call := transport.calls[0]
	assert.Equal(t, "https://payment.architrade.com/cgi-bin/capture.cgi", call.endpoint)
	assert.Equal(t, "39d9acbf224fa29d39a7da6dc55a3042", call.form.Get("md5key"))
}

func TestCaptureTransaction_DeclinedMessageWins(t *testing.T) {
	transport := &mockTransport{responses: []string{
		"status=DECLINED&reason=8&message=" + url.QueryEscape("field amount missing"),
	}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	_, err := client.CaptureTransaction(context.Background(), 2500, "ORDER-1001", "123456")
	e, ok := dibs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "field amount missing", e.Reason)
}

func TestChargeCard_CaptureDeclineSurfacesWithoutCompensation(t *testing.T) {
	transport := &mockTransport{responses: []string{
		"status=ACCEPTED&transact=123456&authkey=ca1f50a671a5ff991e417765e66920db",
		"status=DECLINED&reason=7",
	}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	outcome, err := client.ChargeCard(context.Background(), 2500, "ORDER-1001", "555000")
	require.Error(t, err)

	e, ok := dibs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, dibs.KindDeclined, e.Kind)
	assert.Equal(t, "7", e.Code)
	assert.Equal(t, "Amount too high.", e.Reason)
	assert.Equal(t, dibs.OutcomeDeclined, outcome.Status)

	// Authorize then capture, nothing else: no compensating cancel is
	// issued, the open authorization is the merchant's to resolve.
	require.Len(t, transport.calls, 2)
	assert.Contains(t, transport.calls[0].endpoint, "ticket_auth.cgi")
	assert.Contains(t, transport.calls[1].endpoint, "capture.cgi")
	assert.Equal(t, "123456", transport.calls[1].form.Get("transact"))
}

func TestChargeCard_AuthDeclineStopsEarly(t *testing.T) {
	transport := &mockTransport{responses: []string{"status=DECLINED&reason=4"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	_, err := client.ChargeCard(context.Background(), 2500, "ORDER-1001", "555000")
	e, ok := dibs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Credit card expired.", e.Reason)
	assert.Len(t, transport.calls, 1)
}

func TestRefundTransaction_NumericResultAccepted(t *testing.T) {
	transport := &mockTransport{responses: []string{"result=1000&transact=123456"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	outcome, err := client.RefundTransaction(context.Background(), 2500, "ORDER-1001", "123456")
	require.NoError(t, err)
	assert.Equal(t, dibs.OutcomeAccepted, outcome.Status)

	u, perr := url.Parse(transport.calls[0].endpoint)
	require.NoError(t, perr)
	assert.Equal(t, "apiuser", u.User.Username())
	pass, _ := u.User.Password()
	assert.Equal(t, "apipass", pass)
	assert.Equal(t, "/cgi-adm/refund.cgi", u.Path)
}

func TestRefundCard_NumericResultDecline(t *testing.T) {
	transport := &mockTransport{responses: []string{"status=ACCEPTED&result=5&transact=123456"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	_, err := client.RefundCard(context.Background(), 2500, "ORDER-1001", "123456")
	require.Error(t, err)

	e, ok := dibs.AsError(err)
	require.True(t, ok)
	assert.Equal(t, dibs.KindDeclined, e.Kind)
	assert.Equal(t, "5", e.Code)
	assert.Equal(t, "Authorisation older than 7 days.", e.Reason)
}

func TestDeleteTicket_UndigestedAdminCall(t *testing.T) {
	transport := &mockTransport{responses: []string{"status=ACCEPTED"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	outcome, err := client.DeleteTicket(context.Background(), "555000")
	require.NoError(t, err)
	assert.Equal(t, dibs.OutcomeAccepted, outcome.Status)

	call := transport.calls[0]
	assert.False(t, call.form.Has("md5key"))
	assert.Equal(t, "555000", call.form.Get("ticket"))

	u, perr := url.Parse(call.endpoint)
	require.NoError(t, perr)
	assert.Equal(t, "/cgi-adm/delticket.cgi", u.Path)
	assert.Equal(t, "apiuser", u.User.Username())
}

func TestClient_TransportFailure(t *testing.T) {
	transport := &mockTransport{err: errors.New("connection refused")}
	client := flexwin.NewClient(testConfig(), transport, nil)

	_, err := client.CaptureTransaction(context.Background(), 2500, "ORDER-1001", "123456")
	assert.True(t, dibs.IsKind(err, dibs.KindTransport))
	assert.ErrorContains(t, err, "connection refused")
}

func TestClient_MalformedResponseBody(t *testing.T) {
	transport := &mockTransport{responses: []string{"a=%zz"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	_, err := client.CaptureTransaction(context.Background(), 2500, "ORDER-1001", "123456")
	assert.True(t, dibs.IsKind(err, dibs.KindProtocol))
}

func TestClient_UnrecognizedStatus(t *testing.T) {
	transport := &mockTransport{responses: []string{"status=MAYBE"}}
	client := flexwin.NewClient(testConfig(), transport, nil)

	_, err := client.CaptureTransaction(context.Background(), 2500, "ORDER-1001", "123456")
	assert.True(t, dibs.IsKind(err, dibs.KindProtocol))
}
