package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/daisy/internal/ir"
)

// marshalMeta converts script metadata to canonical JSON TEXT for storage.
// A nil map is stored as "{}".
func marshalMeta(meta map[string]any) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(meta)
	if err != nil {
		return "", fmt.Errorf("marshal meta: %w", err)
	}
	return string(data), nil
}

// unmarshalMeta parses stored metadata. Numbers decode as json.Number so
// integers survive the round trip.
func unmarshalMeta(text string) (map[string]any, error) {
	var meta map[string]any
	dec := json.NewDecoder(stringReader(text))
	dec.UseNumber()
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, nil
}
