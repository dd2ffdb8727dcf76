package data

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/glovebox/server/internal/gameplay"
)

// LoadTuning loads tuning.yaml over the built-in defaults and validates
// the result. Keys the file omits keep their default values; unknown keys
// are rejected so a typo cannot silently fall back to a default.
func LoadTuning(path string) (*gameplay.Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning: %w", err)
	}
	t, err := ParseTuning(raw)
	if err != nil {
		return nil, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}

// ParseTuning decodes a tuning document over the built-in defaults.
func ParseTuning(raw []byte) (*gameplay.Tuning, error) {
	t := gameplay.DefaultTuning()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse tuning: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return &t, nil
}
