// Package store provides whole-file JSON persistence for the engine's
// small state files. Loads distinguish "file absent" (expected on first
// run) from "file present but corrupt" so callers can fall back to
// defaults without silently masking disk problems.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound reports that the state file does not exist yet.
var ErrNotFound = errors.New("state file not found")

// LoadJSON reads path into v. Returns ErrNotFound when the file is
// absent and a wrapped parse error when it exists but cannot be decoded.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt state file %s: %w", path, err)
	}
	return nil
}

// SaveJSON writes v to path as indented JSON, creating parent
// directories as needed. The write replaces the whole file; callers
// serializing concurrent writers must hold their own lock around the
// read-modify-write cycle.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// MarshalJSON renders v the same way SaveJSON writes it, for callers
// that encrypt before persisting.
func MarshalJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// UnmarshalJSON decodes decrypted state bytes.
func UnmarshalJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("corrupt state: %w", err)
	}
	return nil
}

// Remove deletes a state file, ignoring absence.
func Remove(path string) {
	_ = os.Remove(path)
}

// SaveText writes a raw string state file (used for encrypted blobs).
func SaveText(path, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(data), 0600)
}

// LoadText reads a raw string state file.
func LoadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}
