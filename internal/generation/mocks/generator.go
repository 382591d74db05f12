// Package mocks provides testify doubles for the generation contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"realm-server/internal/generation"
)

// Generator is a mock generation.Generator.
type Generator struct {
	mock.Mock
}

func (m *Generator) GenerateBatch(ctx context.Context, requests []generation.Request) ([]generation.Result, error) {
	args := m.Called(ctx, requests)
	if res := args.Get(0); res != nil {
		return res.([]generation.Result), args.Error(1)
	}
	return nil, args.Error(1)
}
