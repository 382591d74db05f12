package events

import (
	"context"
	"errors"
)

// Outcome classifies how a delivery was handled. Only OutcomeError is
// eligible for transport-level retry; the registry absorbs redeliveries of
// completed events as duplicates.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeValidationFailed Outcome = "validation-failed"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeError            Outcome = "error"
)

// errTerminal marks handler failures that must not be retried.
var errTerminal = errors.New("terminal handler failure")

// Terminal wraps err so the dispatcher routes it to the dead-letter sink
// instead of requeueing.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(errTerminal, err)
}

// IsTerminal reports whether err was wrapped by Terminal.
func IsTerminal(err error) bool {
	return errors.Is(err, errTerminal)
}

// Publisher enqueues envelopes onto the world event transport, preserving
// correlation ids. Implemented by the messaging package; consumed by the
// movement service and event handlers.
type Publisher interface {
	Publish(ctx context.Context, envelope Envelope) error
}
