package model

import (
	"encoding/json"
	"fmt"
)

// FromJSON parses a Definition from JSON bytes. The shape mirrors the struct
// tags in this package:
//
//	{
//	  "name": "Player",
//	  "initial": "Idle",
//	  "states": [{"id": "Idle", "entry": [{"name": "log", "args": ["hi"]}]}],
//	  "transitions": [{"source": "Idle", "target": "Run", "event": "go"}],
//	  "timers": [{"id": "t1", "duration": 500, "event": "Tick", "periodic": true}],
//	  "choices": [{"id": "C", "branches": [{"cond": "x > 0", "target": "Run"}]}]
//	}
//
// FromJSON performs no semantic validation; run the validator on the result.
func FromJSON(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("invalid machine JSON: %w", err)
	}
	return &def, nil
}

// ToJSON serializes a Definition to indented JSON. Output is deterministic:
// all collections are ordered slices, so the same Definition always yields
// byte-identical bytes.
func ToJSON(def *Definition) ([]byte, error) {
	return json.MarshalIndent(def, "", "  ")
}
