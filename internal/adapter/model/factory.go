package model

import (
	"log"
	"os"
	"time"
)

const (
	// EnvIntakeMode is the environment variable name for mode selection.
	EnvIntakeMode = "INTAKE_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewClient creates a model client based on the INTAKE_MODE environment
// variable. INTAKE_MODE=MOCK returns a MockClient; otherwise an HTTP
// client against the configured endpoint.
func NewClient(baseURL, apiKey, modelName string, timeout time.Duration) Client {
	if os.Getenv(EnvIntakeMode) == ModeMock {
		log.Println("INTAKE_MODE=MOCK detected, using mock model client")
		return NewMockClient()
	}
	return NewHTTPClient(baseURL, apiKey, modelName, timeout)
}
