package paywin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/inteleon/dibs-go/dibs"
)

// ComputeMAC calculates the Payment Window HMAC-SHA256 authentication code:
// the hex-encoded key is decoded to raw bytes, the fields are canonicalized
// with byte-sorted keys, and the digest is returned as lowercase hex. A key
// that is not valid hex yields an error rather than a silently wrong MAC.
func ComputeMAC(fields *dibs.Fields, hexKey string) (string, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return "", dibs.NewProtocolError("mac", "hmac key is not valid hex")
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(dibs.CanonicalSorted(fields)))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifyMAC checks the MAC field of an inbound parameter set against a digest
// computed over all remaining fields. Comparison is constant-time and
// case-insensitive on the hex encoding. The input is not modified.
func VerifyMAC(fields *dibs.Fields, hexKey string) error {
	got, ok := fields.Lookup("MAC")
	if !ok {
		return dibs.NewDigestMismatchError("paywin result")
	}

	rest := fields.Clone()
	rest.Delete("MAC")
	want, err := ComputeMAC(rest, hexKey)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return dibs.NewDigestMismatchError("paywin result")
	}
	return nil
}
