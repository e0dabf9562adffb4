// Package nut06 carries the node info wire shape, kept close to the
// teacher's MintInfo: the info nut is already asset-agnostic.
package nut06

import (
	"bytes"
	"encoding/json"
	"slices"
)

type Info struct {
	Name            string        `json:"name"`
	Pubkey          string        `json:"pubkey"`
	Version         string        `json:"version"`
	Description     string        `json:"description"`
	LongDescription string        `json:"description_long,omitempty"`
	Contact         []ContactInfo `json:"contact,omitempty"`
	Motd            string        `json:"motd,omitempty"`
	Nuts            NutsMap       `json:"nuts"`
}

type ContactInfo struct {
	Method string `json:"method"`
	Info   string `json:"info"`
}

type NutSetting struct {
	Units    []UnitSetting `json:"units"`
	Disabled bool          `json:"disabled"`
}

// UnitSetting replaces the teacher's per-method setting: this node
// has no payment "method" axis, just a unit with min/max bounds.
type UnitSetting struct {
	Unit      string `json:"unit"`
	MinAmount uint64 `json:"min_amount,omitempty"`
	MaxAmount uint64 `json:"max_amount,omitempty"`
}

type NutsMap map[int]any

// MarshalJSON orders keys numerically so Nuts renders deterministically.
func (nm NutsMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	nuts := make([]int, 0, len(nm))
	for k := range nm {
		nuts = append(nuts, k)
	}
	slices.Sort(nuts)

	for i, num := range nuts {
		if i != 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(num)
		if err != nil {
			return nil, err
		}
		buf.WriteByte('"')
		buf.Write(key)
		buf.WriteByte('"')
		buf.WriteByte(':')
		val, err := json.Marshal(nm[num])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
