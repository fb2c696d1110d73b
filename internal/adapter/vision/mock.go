package vision

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/homequote/intake/internal/capability"
	"github.com/homequote/intake/internal/domain"
)

// MockClient returns a canned analysis for local development.
type MockClient struct{}

// NewMockClient creates a new mock vision client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Analyze returns a fixed label set.
func (m *MockClient) Analyze(ctx context.Context, imageRef string) (*domain.VisionAnalysis, error) {
	return &domain.VisionAnalysis{
		Labels: []domain.VisionLabel{
			{Description: "door", Score: 0.95},
			{Description: "wooden door", Score: 0.92},
			{Description: "house", Score: 0.88},
			{Description: "handle", Score: 0.75},
		},
		Objects:        []domain.VisionObject{{Name: "door", Confidence: 0.9}},
		DominantColors: []string{"brown", "white"},
		ImageProperties: map[string]int{
			"width":  640,
			"height": 480,
		},
		SafeSearch: map[string]string{
			"adult":    "VERY_UNLIKELY",
			"violence": "VERY_UNLIKELY",
		},
		SourceImageRef: imageRef,
	}, nil
}

// NewFromEnv returns a mock client under INTAKE_MODE=MOCK, otherwise an
// HTTP client against the given endpoint.
func NewFromEnv(baseURL string, timeout time.Duration) capability.VisionClient {
	if os.Getenv("INTAKE_MODE") == "MOCK" {
		log.Println("INTAKE_MODE=MOCK detected, using mock vision client")
		return NewMockClient()
	}
	return NewClient(baseURL, timeout)
}
