// Package nut01 carries the keys-response wire shape: a node's public
// keys per keyset, grouped by unit. Generalized from the teacher's
// single-currency GetKeysResponse to the node's multi-unit model.
package nut01

import (
	"encoding/json"

	"github.com/paynet-xyz/paynet-mint/crypto"
)

type GetKeysResponse struct {
	Keysets []Keyset `json:"keysets"`
}

type Keyset struct {
	Id   string            `json:"id"`
	Unit string            `json:"unit"`
	Keys crypto.PublicKeys `json:"keys"`
}

func (kr *GetKeysResponse) UnmarshalJSON(data []byte) error {
	var tmp struct {
		Keysets []json.RawMessage
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	keysets := make([]Keyset, len(tmp.Keysets))
	for i, raw := range tmp.Keysets {
		var ks Keyset
		if err := json.Unmarshal(raw, &ks); err != nil {
			return err
		}
		keysets[i] = ks
	}
	kr.Keysets = keysets
	return nil
}
