// Package cashuerr defines the node's error taxonomy: every ledger,
// protocol, transient and unrecoverable error the mint protocol engine
// can surface, each carrying a machine-readable code alongside a
// human-readable detail.
package cashuerr

// Code identifies an error class. Clients branch on Code, not on the
// Detail string, which is free to change wording between releases.
type Code int

// Error is returned by every operation in crypto, keyset, ledger,
// quote and correlator that can fail in a way a caller should branch
// on.
type Error struct {
	Detail string `json:"detail"`
	Code   Code   `json:"code"`
}

func (e Error) Error() string {
	return e.Detail
}

func Build(detail string, code Code) *Error {
	return &Error{Detail: detail, Code: code}
}

// Retriable reports whether a client may retry the operation that
// produced this error, per the propagation policy in the error
// handling design: transient errors are retriable, everything else
// is not.
func (e Error) Retriable() bool {
	switch e.Code {
	case SignerUnavailableCode, DBContentionCode, CashierUnavailableCode:
		return true
	default:
		return false
	}
}

const (
	StandardErrCode Code = 10000

	// Permanent ledger violations. Not retriable.
	DoubleSpendErrCode     Code = 10010
	AmountMismatchErrCode  Code = 10011
	InvalidProofErrCode    Code = 10012
	UnknownKeysetErrCode   Code = 10013
	InactiveKeysetErrCode  Code = 10014
	ExpiredErrCode         Code = 10015
	InsufficientErrCode    Code = 10016
	UnsupportedUnitErrCode Code = 10017

	// Protocol usage errors. Client should fix and retry with a
	// different request.
	UnknownQuoteErrCode         Code = 10020
	InvalidRequestErrCode       Code = 10021
	QuoteNotPaidErrCode         Code = 10022
	QuoteAlreadyIssuedErrCode   Code = 10023
	InvalidBlindedMessageErrCode Code = 10024

	// Transient. Retriable by client with backoff.
	SignerUnavailableCode  Code = 10030
	DBContentionCode       Code = 10031
	CashierUnavailableCode Code = 10032

	// Unrecoverable. Operator alert, no client action.
	ConfigInvalidErrCode          Code = 10040
	KeysetDerivationFailedErrCode Code = 10041
)

var (
	DoubleSpend          = Error{Detail: "one or more proofs have already been spent", Code: DoubleSpendErrCode}
	AmountMismatch       = Error{Detail: "sum of outputs does not match sum of inputs minus fees", Code: AmountMismatchErrCode}
	InvalidProof         = Error{Detail: "proof failed signature verification", Code: InvalidProofErrCode}
	UnknownKeyset        = Error{Detail: "unknown keyset", Code: UnknownKeysetErrCode}
	InactiveKeyset       = Error{Detail: "requested signature from an inactive keyset", Code: InactiveKeysetErrCode}
	Expired              = Error{Detail: "quote has expired", Code: ExpiredErrCode}
	Insufficient         = Error{Detail: "input amount is insufficient for requested outputs and fees", Code: InsufficientErrCode}
	UnsupportedUnit      = Error{Detail: "unit not supported by this node", Code: UnsupportedUnitErrCode}
	UnknownQuote         = Error{Detail: "quote does not exist", Code: UnknownQuoteErrCode}
	InvalidRequest       = Error{Detail: "invalid request", Code: InvalidRequestErrCode}
	QuoteNotPaid         = Error{Detail: "mint quote has not been paid", Code: QuoteNotPaidErrCode}
	QuoteAlreadyIssued   = Error{Detail: "mint quote has already been issued", Code: QuoteAlreadyIssuedErrCode}
	InvalidBlindedMessage = Error{Detail: "invalid amount in blinded message", Code: InvalidBlindedMessageErrCode}
	SignerUnavailable    = Error{Detail: "signer is temporarily unavailable", Code: SignerUnavailableCode}
	DBContention         = Error{Detail: "database serialization conflict, retry", Code: DBContentionCode}
	CashierUnavailable   = Error{Detail: "cashier is temporarily unavailable", Code: CashierUnavailableCode}
	ConfigInvalid        = Error{Detail: "node configuration is invalid", Code: ConfigInvalidErrCode}
	KeysetDerivationFailed = Error{Detail: "keyset derivation failed", Code: KeysetDerivationFailedErrCode}
)
