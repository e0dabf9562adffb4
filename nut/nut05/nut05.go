// Package nut05 carries the melt-quote wire shapes, generalized from
// the teacher's PostMeltQuoteBolt11Request (a lightning invoice to
// pay) to a destination-address melt: the node pays out over its
// cashier to an arbitrary on-chain destination (spec §4.D).
package nut05

import "github.com/paynet-xyz/paynet-mint/nut/nut03"

type PostMeltQuoteRequest struct {
	Destination string `json:"destination"`
	Unit        string `json:"unit"`
	Amount      uint64 `json:"amount"`
}

type PostMeltQuoteResponse struct {
	Quote        string `json:"quote"`
	Amount       uint64 `json:"amount"`
	FeeReserve   uint64 `json:"fee_reserve"`
	State        string `json:"state"`
	Expiry       int64  `json:"expiry"`
	PaymentProof string `json:"payment_proof,omitempty"`
}

type PostMeltRequest struct {
	Quote  string      `json:"quote"`
	Inputs nut03.Proofs `json:"inputs"`
}

type PostMeltResponse struct {
	State        string `json:"state"`
	PaymentProof string `json:"payment_proof,omitempty"`
}
