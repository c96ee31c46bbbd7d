package dibs

import (
	"errors"
	"fmt"
)

// Kind partitions gateway failures for programmatic handling.
type Kind string

const (
	// KindTransport covers connection, TLS and timeout faults. Never
	// retried here; retry policy belongs to the caller.
	KindTransport Kind = "TRANSPORT"
	// KindProtocol covers contract violations: unknown operations,
	// malformed responses, unrecognized status values.
	KindProtocol Kind = "PROTOCOL"
	// KindDigestMismatch is an integrity verification failure. Security
	// relevant and never swallowed.
	KindDigestMismatch Kind = "DIGEST_MISMATCH"
	// KindDeclined is a business-level decline carrying the gateway's
	// reason. Expected and recoverable by the caller.
	KindDeclined Kind = "DECLINED"
	// KindGateway is a gateway-reported error outcome (status ERROR).
	KindGateway Kind = "GATEWAY"
)

// Error is the single structured error for all gateway failures. Callers
// branch on Kind and Code rather than on message strings.
type Error struct {
	Kind   Kind
	Op     string // gateway operation, e.g. "capture.cgi" or "CaptureTransaction"
	Code   string // raw gateway code, when one was supplied
	Reason string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Code != "" && e.Reason != "":
		return fmt.Sprintf("%s: %s [%s]: %s", e.Op, e.Kind, e.Code, e.Reason)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewTransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

func NewProtocolError(op, reason string) *Error {
	return &Error{Kind: KindProtocol, Op: op, Reason: reason}
}

func NewDigestMismatchError(op string) *Error {
	return &Error{Kind: KindDigestMismatch, Op: op, Reason: "integrity digest does not match"}
}

func NewDeclinedError(op, code, reason string) *Error {
	return &Error{Kind: KindDeclined, Op: op, Code: code, Reason: reason}
}

func NewGatewayError(op, code, reason string) *Error {
	return &Error{Kind: KindGateway, Op: op, Code: code, Reason: reason}
}

// AsError unwraps err into *Error when possible.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

// IsDeclined reports whether err is a business-level decline.
func IsDeclined(err error) bool {
	return IsKind(err, KindDeclined)
}
