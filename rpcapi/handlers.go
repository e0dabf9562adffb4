package rpcapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/paynet-xyz/paynet-mint/cashuerr"
	"github.com/paynet-xyz/paynet-mint/keyset"
	"github.com/paynet-xyz/paynet-mint/nut/nut01"
	"github.com/paynet-xyz/paynet-mint/nut/nut02"
	"github.com/paynet-xyz/paynet-mint/nut/nut03"
	"github.com/paynet-xyz/paynet-mint/nut/nut04"
	"github.com/paynet-xyz/paynet-mint/nut/nut05"
	"github.com/paynet-xyz/paynet-mint/nut/nut06"
	"github.com/paynet-xyz/paynet-mint/nut/nut07"
	"github.com/paynet-xyz/paynet-mint/quote/meltquote"
	"github.com/paynet-xyz/paynet-mint/quote/mintquote"
)

// getKeys returns the public keys of every active keyset, one per
// unit this node serves (NUT-01).
func (s *Server) getKeys(rw http.ResponseWriter, req *http.Request) {
	resp := nut01.GetKeysResponse{}
	seen := make(map[keyset.ID]bool)
	for _, ks := range s.node.Keysets.All() {
		if !ks.Active || seen[ks.ID] {
			continue
		}
		seen[ks.ID] = true
		resp.Keysets = append(resp.Keysets, nut01.Keyset{Id: ks.ID.String(), Unit: ks.Unit, Keys: ks.PublicKeys})
	}
	writeJSON(rw, http.StatusOK, resp)
}

// getKeysByID returns the public keys of one keyset, active or
// retired, by id.
func (s *Server) getKeysByID(rw http.ResponseWriter, req *http.Request) {
	idHex := mux.Vars(req)["id"]
	id, err := keyset.IDFromHex(idHex)
	if err != nil {
		s.writeErr(rw, cashuerr.Build("invalid keyset id: "+err.Error(), cashuerr.InvalidRequestErrCode))
		return
	}

	ks, err := s.node.Keysets.Lookup(id)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, nut01.GetKeysResponse{
		Keysets: []nut01.Keyset{{Id: ks.ID.String(), Unit: ks.Unit, Keys: ks.PublicKeys}},
	})
}

// getKeysets lists every keyset this node knows, active and retired,
// with the per-keyset fee rate (NUT-02).
func (s *Server) getKeysets(rw http.ResponseWriter, req *http.Request) {
	resp := nut02.GetKeysetsResponse{}
	for _, ks := range s.node.Keysets.All() {
		resp.Keysets = append(resp.Keysets, nut02.Keyset{
			Id:          ks.ID.String(),
			Unit:        ks.Unit,
			Active:      ks.Active,
			InputFeePpk: ks.InputFeePpk,
		})
	}
	writeJSON(rw, http.StatusOK, resp)
}

// postSwap exchanges inputs for outputs atomically (NUT-03).
func (s *Server) postSwap(rw http.ResponseWriter, req *http.Request) {
	var body nut03.PostSwapRequest
	if err := decodeJsonReqBody(req, &body); err != nil {
		s.writeErr(rw, err)
		return
	}

	fields, err := decodeProofs(body.Inputs, s.node.Keysets)
	if err != nil {
		s.writeErr(rw, err)
		return
	}
	outputs, err := toSwapOutputs(body.Outputs, s.node.Keysets)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	sigs, err := s.node.Swap.Swap(req.Context(), toSwapInputs(fields), outputs)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, nut03.PostSwapResponse{Signatures: swapSignaturesToWire(sigs)})
}

// postMintQuote requests a deposit address to mint amount units
// against (NUT-04).
func (s *Server) postMintQuote(rw http.ResponseWriter, req *http.Request) {
	var body nut04.PostMintQuoteRequest
	if err := decodeJsonReqBody(req, &body); err != nil {
		s.writeErr(rw, err)
		return
	}

	q, err := s.node.MintQuotes.NewQuote(req.Context(), body.Unit, body.Amount)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, mintQuoteToWire(q))
}

// getMintQuote reports a mint quote's current state (NUT-04).
func (s *Server) getMintQuote(rw http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["quote_id"]
	q, err := s.node.MintQuotes.State(req.Context(), id)
	if err != nil {
		s.writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, mintQuoteToWire(q))
}

// postMint redeems a PAID mint quote for blind signatures (NUT-04).
func (s *Server) postMint(rw http.ResponseWriter, req *http.Request) {
	var body nut04.PostMintRequest
	if err := decodeJsonReqBody(req, &body); err != nil {
		s.writeErr(rw, err)
		return
	}

	outputs, err := toMintOutputs(body.Outputs, s.node.Keysets)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	sigs, err := s.node.MintQuotes.Mint(req.Context(), body.Quote, outputs)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, nut04.PostMintResponse{Signatures: mintSignaturesToWire(sigs)})
}

// postMeltQuote requests the cost (amount + fee reserve) to pay
// destination out of this node's reserves (NUT-05).
func (s *Server) postMeltQuote(rw http.ResponseWriter, req *http.Request) {
	var body nut05.PostMeltQuoteRequest
	if err := decodeJsonReqBody(req, &body); err != nil {
		s.writeErr(rw, err)
		return
	}

	q, err := s.node.MeltQuotes.NewQuote(req.Context(), body.Unit, body.Destination, body.Amount)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, meltQuoteToWire(q))
}

// getMeltQuote reports a melt quote's current state (NUT-05).
func (s *Server) getMeltQuote(rw http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["quote_id"]
	q, err := s.node.MeltQuotes.State(req.Context(), id)
	if err != nil {
		s.writeErr(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, meltQuoteToWire(q))
}

// postMelt spends proofs to pay a melt quote (NUT-05).
func (s *Server) postMelt(rw http.ResponseWriter, req *http.Request) {
	var body nut05.PostMeltRequest
	if err := decodeJsonReqBody(req, &body); err != nil {
		s.writeErr(rw, err)
		return
	}

	fields, err := decodeProofs(body.Inputs, s.node.Keysets)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	q, err := s.node.MeltQuotes.Melt(req.Context(), body.Quote, toMeltInputs(fields))
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	writeJSON(rw, http.StatusOK, meltQuoteToWire(q))
}

// getInfo reports static node metadata and the nuts it implements
// (NUT-06).
func (s *Server) getInfo(rw http.ResponseWriter, req *http.Request) {
	units := make([]nut06.UnitSetting, 0, len(s.node.Config.Units))
	for unit := range s.node.Config.Units {
		units = append(units, nut06.UnitSetting{
			Unit:      unit,
			MinAmount: s.node.Config.Limits.MintMinAmount,
			MaxAmount: s.node.Config.Limits.MintMaxAmount,
		})
	}

	info := nut06.Info{
		Name:        s.node.Config.Name,
		Description: s.node.Config.Description,
		Nuts: nut06.NutsMap{
			1:  nut06.NutSetting{Units: units},
			2:  nut06.NutSetting{Units: units},
			3:  nut06.NutSetting{Units: units},
			4:  nut06.NutSetting{Units: units},
			5:  nut06.NutSetting{Units: units},
			6:  nut06.NutSetting{Units: units},
			7:  nut06.NutSetting{Units: units},
			12: nut06.NutSetting{Units: units},
		},
	}
	writeJSON(rw, http.StatusOK, info)
}

// postCheckState reports the spend state of a batch of Y values
// (NUT-07).
func (s *Server) postCheckState(rw http.ResponseWriter, req *http.Request) {
	var body nut07.PostCheckStateRequest
	if err := decodeJsonReqBody(req, &body); err != nil {
		s.writeErr(rw, err)
		return
	}

	spent, err := s.node.Ledger.IsSpent(req.Context(), body.Ys)
	if err != nil {
		s.writeErr(rw, err)
		return
	}

	resp := nut07.PostCheckStateResponse{States: make([]nut07.ProofState, len(body.Ys))}
	for i, y := range body.Ys {
		state := nut07.Unspent
		if spent[y] {
			state = nut07.Spent
		}
		resp.States[i] = nut07.ProofState{Y: y, State: state}
	}
	writeJSON(rw, http.StatusOK, resp)
}

func mintQuoteToWire(q mintquote.Quote) nut04.PostMintQuoteResponse {
	return nut04.PostMintQuoteResponse{
		Quote:          q.ID,
		DepositAddress: q.DepositAddress,
		State:          q.State.String(),
		Expiry:         q.Expiry.Unix(),
	}
}

func meltQuoteToWire(q meltquote.Quote) nut05.PostMeltQuoteResponse {
	return nut05.PostMeltQuoteResponse{
		Quote:        q.ID,
		Amount:       q.Amount,
		FeeReserve:   q.FeeReserve,
		State:        q.State.String(),
		Expiry:       q.Expiry.Unix(),
		PaymentProof: q.PaymentProof,
	}
}
