// Package nut04 carries the mint-quote wire shapes, generalized from
// the teacher's PostMintQuoteBolt11Request (a lightning invoice) to a
// deposit-address quote: the node's mint rail is an on-chain deposit
// address, not a lightning invoice (spec §4.D).
package nut04

import "github.com/paynet-xyz/paynet-mint/nut/nut03"

type PostMintQuoteRequest struct {
	Amount uint64 `json:"amount"`
	Unit   string `json:"unit"`
}

type PostMintQuoteResponse struct {
	Quote          string `json:"quote"`
	DepositAddress string `json:"deposit_address"`
	State          string `json:"state"`
	Expiry         int64  `json:"expiry"`
}

type PostMintRequest struct {
	Quote   string              `json:"quote"`
	Outputs nut03.BlindedMessages `json:"outputs"`
}

type PostMintResponse struct {
	Signatures nut03.BlindedSignatures `json:"signatures"`
}
