package repositories

import "github.com/fxamacker/cbor/v2"

// Records are stored as CBOR. It gives a compact binary encoding without a
// schema compiler, and decodes into the domain structs directly.
func encode(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func decode(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}
