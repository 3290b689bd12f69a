package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/chatline/internal/domain"
	"github.com/go-playground/validator/v10"
)

var (
	ErrEmptyPayload = errors.New("empty payload")

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// decodePayload unmarshals data into v and checks its validate tags.
func decodePayload(data json.RawMessage, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrEmptyPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// decodeName accepts `"name"` as well as `{"name": "..."}`. A blank name is
// treated as a malformed payload.
func decodeName(data json.RawMessage) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return "", fmt.Errorf("bad payload: %w", err)
		}
		if domain.TrimUsername(name) == "" {
			return "", ErrEmptyPayload
		}
		return name, nil
	}
	var p struct {
		Name string `json:"name" validate:"required"`
	}
	if err := decodePayload(data, &p); err != nil {
		return "", err
	}
	if domain.TrimUsername(p.Name) == "" {
		return "", ErrEmptyPayload
	}
	return p.Name, nil
}
