// Package events fans authentication outcomes out to the configured analytics sinks.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"synapse-service/internal/util"
)

const (
	LoginSucceeded = "login.succeeded"
	LoginFailed    = "login.failed"
	LoginInvalid   = "login.invalid"

	AuthSessionDeviceProvisioned = "authsession.device_provisioned"
	AuthSessionDeviceExists      = "authsession.device_exists"
	AuthSessionFailed            = "authsession.failed"
	AuthSessionInvalid           = "authsession.invalid"

	RegisterDeviceProvisioned = "register.device_provisioned"
	RegisterDeviceExists      = "register.device_exists"
	RegisterFailed            = "register.failed"
	RegisterInvalid           = "register.invalid"
)

type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Occurred  time.Time `json:"occurred"`
	UserID    string    `json:"user_id,omitempty"`
	CompanyID string    `json:"company_id,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	RemoteIP  string    `json:"remote_ip,omitempty"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
}

// New stamps an event with a fresh id and the current UTC time.
func New(eventType, outcome string) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		Occurred: time.Now().UTC(),
		Outcome:  outcome,
	}
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Sink is a named Publisher so failures can be attributed.
type Sink interface {
	Publisher
	Name() string
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Multi publishes every event to all sinks concurrently.
type Multi struct {
	sinks   []Sink
	timeout time.Duration
}

func NewMulti(timeout time.Duration, sinks ...Sink) *Multi {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Multi{sinks: sinks, timeout: timeout}
}

// NewPublisher returns Noop when no sink is configured.
func NewPublisher(timeout time.Duration, sinks ...Sink) Publisher {
	if len(sinks) == 0 {
		return Noop{}
	}
	return NewMulti(timeout, sinks...)
}

// Publish waits for every sink and returns their joined errors. The caller's
// cancellation is ignored so a finished request still records its outcome.
func (m *Multi) Publish(ctx context.Context, evt Event) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	errs := make([]error, len(m.sinks))
	var g errgroup.Group
	for i, sink := range m.sinks {
		i, sink := i, sink
		g.Go(func() error {
			if err := sink.Publish(ctx, evt); err != nil {
				util.Warn("Event sink publish failed",
					zap.String("sink", sink.Name()),
					zap.String("event_type", evt.Type),
					zap.String("event_id", evt.ID),
					zap.Error(err))
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
