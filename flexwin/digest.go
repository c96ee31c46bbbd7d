package flexwin

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/inteleon/dibs-go/dibs"
)

// computeDigest implements the FlexWin two-key MD5 chain:
// MD5(key2 + MD5(key1 + canonical)), lowercase hex. The digest is recomputed
// for every field set; recipes overlap in content but differ per operation.
func computeDigest(fields *dibs.Fields, key1, key2 string) string {
	canonical := dibs.Canonical(fields)
	inner := md5.Sum([]byte(key1 + canonical))
	outer := md5.Sum([]byte(key2 + hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])
}

// requestRecipe builds the ordered digest input for an API request. The field
// order is fixed per operation and the gateway reconstructs the same string,
// so order and membership must match exactly. Capture, refund and
// supplementary authorization deliberately omit currency. delticket.cgi
// requests are never digested.
func requestRecipe(op string, params *dibs.Fields) (*dibs.Fields, bool, error) {
	pick := func(keys ...string) *dibs.Fields {
		recipe := dibs.NewFields()
		for _, k := range keys {
			recipe.Set(k, params.Get(k))
		}
		return recipe
	}

	switch op {
	case opAuth, op3DSecure:
		return pick("merchant", "orderid", "currency", "amount"), true, nil
	case opCancel:
		return pick("merchant", "orderid", "transact", "amount"), true, nil
	case opCapture, opRefund, opSupplAuth:
		return pick("merchant", "orderid", "transact", "amount"), true, nil
	case opTicketAuth:
		return pick("merchant", "orderid", "ticket", "currency", "amount"), true, nil
	case opDelTicket:
		return nil, false, nil
	default:
		return nil, false, dibs.NewProtocolError(op, "unknown operation")
	}
}

// responseRecipe builds the digest input for verifying a server-to-server
// response. Only ticket_auth.cgi documents a response digest: the echoed
// transaction reference plus the amount and currency from the request.
func responseRecipe(op string, params, result *dibs.Fields) (*dibs.Fields, error) {
	switch op {
	case opTicketAuth:
		recipe := dibs.NewFields()
		recipe.Set("transact", result.Get("transact"))
		recipe.Set("amount", params.Get("amount"))
		recipe.Set("currency", params.Get("currency"))
		return recipe, nil
	default:
		return nil, dibs.NewProtocolError(op, "no response digest recipe")
	}
}

// digestsEqual compares two hex digests case-insensitively in constant time.
func digestsEqual(got, want string) bool {
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(strings.ToLower(want)))
}
