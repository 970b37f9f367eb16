// Package emit delivers surviving alerts to external consumers. The
// engine is transport-agnostic; emitters implement delivery to a JSONL
// file or a NATS subject.
package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentsentry/agentsentry/internal/alert"
)

// Emitter delivers one alert. Implementations must be safe for
// concurrent use.
type Emitter interface {
	Emit(a alert.Alert) error
	Close() error
}

// Multi fans one alert out to several emitters. Delivery failures are
// collected, not short-circuited: one broken sink must not silence the
// others.
type Multi struct {
	emitters []Emitter
}

func NewMulti(emitters ...Emitter) *Multi {
	return &Multi{emitters: emitters}
}

func (m *Multi) Emit(a alert.Alert) error {
	var firstErr error
	for _, e := range m.emitters {
		if err := e.Emit(a); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Multi) Close() error {
	var firstErr error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FileEmitter appends alerts to a JSONL file, one alert per line.
type FileEmitter struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileEmitter(path string) (*FileEmitter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &FileEmitter{f: f}, nil
}

func (e *FileEmitter) Emit(a alert.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("alert sink write: %w", err)
	}
	return nil
}

func (e *FileEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.f.Close()
}
