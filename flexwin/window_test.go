package flexwin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteleon/dibs-go/dibs"
	"github.com/inteleon/dibs-go/flexwin"
)

func windowConfig() flexwin.Config {
	cfg := testConfig()
	cfg.AcceptReturnURL = "https://shop.example/accept"
	cfg.CancelReturnURL = "https://shop.example/cancel"
	cfg.CallbackURL = "https://shop.example/callback"
	cfg.Language = "sv"
	return cfg
}

func TestPaymentParams_DigestedForm(t *testing.T) {
	client := flexwin.NewClient(windowConfig(), nil, nil)

	params := client.PaymentParams(2500, "ORDER-1001", false, nil)

	assert.Equal(t, "https://shop.example/accept", params.Get("accepturl"))
	assert.Equal(t, "https://shop.example/callback", params.Get("callbackurl"))
	assert.Equal(t, "2500", params.Get("amount"))
	assert.Equal(t, "752", params.Get("currency"))
	assert.Equal(t, "90089898", params.Get("merchant"))
	assert.False(t, params.Has("preauth"))

	// Same recipe as auth.cgi: merchant, orderid, currency, amount.
	assert.Equal(t, "2d671468b894637561150ae267424d5e", params.Get("md5key"))
}

func TestPaymentParams_Preauth(t *testing.T) {
	client := flexwin.NewClient(windowConfig(), nil, nil)

	params := client.PaymentParams(2500, "ORDER-1001", true, nil)

	assert.Equal(t, "true", params.Get("preauth"))
	assert.Equal(t, "true", params.Get("zero_auth"))
	assert.True(t, params.Has("md5key"))
}

func TestPaymentParams_MaketicketSkipsDigest(t *testing.T) {
	client := flexwin.NewClient(windowConfig(), nil, nil)

	custom := dibs.NewFields().Set("maketicket", "1")
	params := client.PaymentParams(2500, "ORDER-1001", false, custom)

	assert.Equal(t, "1", params.Get("maketicket"))
	assert.False(t, params.Has("md5key"))
}

func TestPaymentParams_CustomFieldsOverride(t *testing.T) {
	client := flexwin.NewClient(windowConfig(), nil, nil)

	custom := dibs.NewFields().Set("lang", "en").Set("ordertext", "subscription")
	params := client.PaymentParams(2500, "ORDER-1001", false, custom)

	assert.Equal(t, "en", params.Get("lang"))
	assert.Equal(t, "subscription", params.Get("ordertext"))
}

func TestVerifyResultParams(t *testing.T) {
	client := flexwin.NewClient(windowConfig(), nil, nil)

	tests := []struct {
		name    string
		params  *dibs.Fields
		wantErr bool
	}{
		{
			name: "valid payment response",
			params: dibs.NewFields().
				Set("transact", "333111").
				Set("amount", "2500").
				Set("currency", "752").
				Set("authkey", "d95cd3bf16db90026e13830ceeda6004"),
		},
		{
			name: "valid uppercase authkey",
			params: dibs.NewFields().
				Set("transact", "333111").
				Set("amount", "2500").
				Set("currency", "752").
				Set("authkey", "D95CD3BF16DB90026E13830CEEDA6004"),
		},
		{
			name: "valid preauth response digests without amount",
			params: dibs.NewFields().
				Set("transact", "333111").
				Set("preauth", "true").
				Set("currency", "752").
				Set("authkey", "c11414ec2503d0a35d99e6c19934b5d7"),
		},
		{
			name: "tampered amount",
			params: dibs.NewFields().
				Set("transact", "333111").
				Set("amount", "9900").
				Set("currency", "752").
				Set("authkey", "d95cd3bf16db90026e13830ceeda6004"),
			wantErr: true,
		},
		{
			name: "missing authkey",
			params: dibs.NewFields().
				Set("transact", "333111").
				Set("amount", "2500").
				Set("currency", "752"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.VerifyResultParams(tt.params)
			if tt.wantErr {
				assert.True(t, dibs.IsKind(err, dibs.KindDigestMismatch))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResultParams_StatusCodeClassification(t *testing.T) {
	client := flexwin.NewClient(windowConfig(), nil, nil)

	base := func(code string) *dibs.Fields {
		return dibs.NewFields().
			Set("transact", "333111").
			Set("amount", "2500").
			Set("currency", "752").
			Set("statuscode", code).
			Set("authkey", "d95cd3bf16db90026e13830ceeda6004")
	}

	outcome, err := client.ResultParams(base("5"))
	require.NoError(t, err)
	assert.Equal(t, dibs.OutcomeAccepted, outcome.Status)
	assert.Equal(t, "333111", outcome.Transact)
	assert.Equal(t, "capture completed", outcome.Reason.Description)

	outcome, err = client.ResultParams(base("17"))
	require.NoError(t, err)
	assert.Equal(t, dibs.OutcomeDeclined, outcome.Status)
	assert.Equal(t, "declined by DIBS", outcome.Reason.Description)
}

func TestResultParams_RejectsTamperedInput(t *testing.T) {
	client := flexwin.NewClient(windowConfig(), nil, nil)

	params := dibs.NewFields().
		Set("transact", "333111").
		Set("amount", "2500").
		Set("currency", "752").
		Set("status", "ACCEPTED").
		Set("authkey", "0000000000000000000000000000dead")

	_, err := client.ResultParams(params)
	assert.True(t, dibs.IsKind(err, dibs.KindDigestMismatch))
}
