package model

import (
	"context"
	"fmt"

	"github.com/homequote/intake/internal/domain"
)

// MockClient is a canned model for local development. It never requests
// capabilities; it echoes the latest user turn.
type MockClient struct{}

// NewMockClient creates a new mock model client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ Client = (*MockClient)(nil)

// Complete returns a canned text response.
func (m *MockClient) Complete(ctx context.Context, req *Request) (*domain.ModelOutput, error) {
	var lastUser string
	for i := len(req.Turns) - 1; i >= 0; i-- {
		if req.Turns[i].Role == "user" {
			lastUser = req.Turns[i].Content
			break
		}
	}
	if lastUser == "" {
		return &domain.ModelOutput{Text: "[MOCK] Hello! Tell me about your project."}, nil
	}
	return &domain.ModelOutput{
		Text: fmt.Sprintf("[MOCK] Received your message: %q.", truncate(lastUser, 100)),
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
