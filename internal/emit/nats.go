package emit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/agentsentry/agentsentry/internal/alert"
)

// DefaultSubject is the NATS subject alerts publish to.
const DefaultSubject = "agentsentry.alerts"

// NATSEmitter publishes alerts to a NATS subject so external
// responders can subscribe without polling the alert log.
type NATSEmitter struct {
	nc      *nats.Conn
	subject string
}

// NewNATSEmitter connects to the given server URL. An empty subject
// falls back to DefaultSubject.
func NewNATSEmitter(url, subject string) (*NATSEmitter, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	nc, err := nats.Connect(url,
		nats.Name("agentsentry"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &NATSEmitter{nc: nc, subject: subject}, nil
}

func (e *NATSEmitter) Emit(a alert.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	if err := e.nc.Publish(e.subject, data); err != nil {
		return fmt.Errorf("publish alert %s: %w", a.ID, err)
	}
	return nil
}

// Close drains the connection so queued alerts flush before shutdown.
func (e *NATSEmitter) Close() error {
	if err := e.nc.Drain(); err != nil {
		e.nc.Close()
		return err
	}
	return nil
}
