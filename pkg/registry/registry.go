// Package registry holds explicit, zero-reflection factory maps for
// the block randomizer's pluggable collaborators, keyed by name and
// decoded from strict JSON options (no unknown fields tolerated).
package registry

import (
	"bytes"
	"encoding/json"

	"blockrandomizer/pkg/contract"
	fchk "blockrandomizer/plugins/deserializer/filechunks"
	fsmem "blockrandomizer/plugins/deserializer/memory"
)

// strictUnmarshal decodes raw with DisallowUnknownFields, rejecting
// unrecognized option keys.
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewDeserializer is the factory signature: takes raw JSON Options.
type NewDeserializer func(raw json.RawMessage) (contract.Deserializer, error)

// Deserializer is the factory registry for contract.Deserializer
// implementations.
var Deserializer = map[string]NewDeserializer{
	// filechunks: one JSONL file per chunk under a directory.
	"filechunks": func(raw json.RawMessage) (contract.Deserializer, error) {
		var opts fchk.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return fchk.New(&opts)
	},
	// memory: caller-supplied in-memory chunks, for tests and demos.
	"memory": func(raw json.RawMessage) (contract.Deserializer, error) {
		var opts fsmem.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return fsmem.New(opts)
	},
}
