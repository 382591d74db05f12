// Package mocks provides testify doubles for the events package contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"realm-server/internal/events"
)

// Publisher is a mock events.Publisher.
type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, envelope events.Envelope) error {
	args := m.Called(ctx, envelope)
	return args.Error(0)
}
