package app

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// withFields overlays set onto the JSON object raw, keeping every other key
// untouched. Keys in keep are only written when raw lacks them.
func withFields(raw json.RawMessage, set map[string]any, keep map[string]any) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("payload is not an object: %w", err)
		}
		if obj == nil {
			obj = map[string]json.RawMessage{}
		}
	}
	put := func(k string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		obj[k] = b
		return nil
	}
	for k, v := range keep {
		if cur, ok := obj[k]; ok && !isZeroJSON(cur) {
			continue
		}
		if err := put(k, v); err != nil {
			return nil, err
		}
	}
	for k, v := range set {
		if err := put(k, v); err != nil {
			return nil, err
		}
	}
	return json.Marshal(obj)
}

func isZeroJSON(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null")) || bytes.Equal(v, []byte("0"))
}
