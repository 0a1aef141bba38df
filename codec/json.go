package codec

import "encoding/json"

// JSON is the standard-library JSON codec.
//
// Notes:
//   - Struct fields encode in declaration order and map keys sorted, so
//     output is deterministic.
//   - Decoding into an interface{} yields float64 for every number.
//   - Used by the CLI, where values arrive as JSON text.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }
