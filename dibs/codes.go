package dibs

// Static gateway code tables. Loaded once, never mutated, safe for
// concurrent reads.

// authorizationReasons maps decline codes returned by the authorization
// family (auth.cgi, reauth.cgi, ticket_auth.cgi, AuthorizeTicket).
var authorizationReasons = map[string]string{
	"0":  "Rejected by acquirer.",
	"1":  "Communication problems.",
	"2":  "Error in the parameters sent to the DIBS server. An additional parameter called message is returned, with a value that may help identifying the error.",
	"3":  "Error at the acquirer.",
	"4":  "Credit card expired.",
	"5":  "Your shop does not support this credit card type, the credit card type could not be identified, or the credit card number was not modulus correct.",
	"6":  "Instant capture failed.",
	"7":  "The order number (orderid) is not unique.",
	"8":  "There number of amount parameters does not correspond to the number given in the split parameter.",
	"9":  "Control numbers (cvc) are missing.",
	"10": "The credit card does not comply with the credit card type.",
	"11": "Declined by DIBS Defender.",
	"20": "Cancelled by user at 3D Secure authentication step.",
}

// handlingReasons maps decline codes returned by the payment handling family
// (capture.cgi, refund.cgi, cancel.cgi, changestatus.cgi and the JSON
// Capture/Refund/Cancel services).
var handlingReasons = map[string]string{
	"0":    "Accepted.",
	"1":    "No response from acquirer.",
	"2":    "Timeout.",
	"3":    "Credit card expired.",
	"4":    "Rejected by acquirer.",
	"5":    "Authorisation older than 7 days.",
	"6":    "Transaction status on the DIBS server does not allow function.",
	"7":    "Amount too high.",
	"8":    "Error in the parameters sent to the DIBS server. An additional parameter called message is returned, with a value that may help identifying the error.",
	"9":    "Order number (orderid) does not correspond to the authorisation order number.",
	"10":   "Re-authorisation of the transaction was rejected.",
	"11":   "Not able to communicate with the acquier.",
	"12":   "Confirm request error.",
	"14":   "Capture is called for a transaction which is pending for batch - i.e. capture was already called.",
	"15":   "Capture was blocked by DIBS.",
	"1000": "Refund accepted",
}

// transactionStatusCodes maps the numeric transaction status reported on
// callbacks and in the toolbox.
var transactionStatusCodes = map[string]string{
	"0":  "transaction inserted",
	"1":  "declined",
	"2":  "authorization approved",
	"3":  "capture sent to acquirer",
	"4":  "capture declined by acquirer",
	"5":  "capture completed",
	"6":  "authorization deleted",
	"7":  "capture balanced",
	"8":  "partially refunded and balanced",
	"9":  "refund sent to acquirer",
	"10": "refund declined",
	"11": "refund completed",
	"12": "capture pending",
	"13": "\"ticket\" transaction",
	"14": "deleted \"ticket\" transaction",
	"15": "refund pending",
	"16": "waiting for shop approval",
	"17": "declined by DIBS",
	"18": "multicap transaction open",
	"19": "multicap transaction closed",
}

// AuthorizationReason resolves an authorization decline code to its
// description. Unknown codes come back verbatim, not as an error.
func AuthorizationReason(code string) string {
	if desc, ok := authorizationReasons[code]; ok {
		return desc
	}
	return code
}

// HandlingReason resolves a payment handling decline code to its
// description. Unknown codes come back verbatim.
func HandlingReason(code string) string {
	if desc, ok := handlingReasons[code]; ok {
		return desc
	}
	return code
}

// TransactionStatus resolves a numeric transaction status code. Unknown
// codes come back verbatim.
func TransactionStatus(code string) string {
	if desc, ok := transactionStatusCodes[code]; ok {
		return desc
	}
	return code
}
