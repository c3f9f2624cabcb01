package meeting

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"tutoring_platform/internal/domain/directory"
)

// PlaceholderProvider generates meeting links without calling a real
// calendar API. Each link carries a random suffix so concurrent lessons get
// distinct rooms.
type PlaceholderProvider struct{}

func NewPlaceholderProvider() *PlaceholderProvider {
	return &PlaceholderProvider{}
}

func (p *PlaceholderProvider) CreateMeeting(_ context.Context, _ *directory.Teacher, _ *directory.Student, _, _ time.Time) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate meeting suffix: %w", err)
	}
	return "https://meet.google.com/placeholder-" + hex.EncodeToString(suffix), nil
}
