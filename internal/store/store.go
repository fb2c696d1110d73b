// Package store provides persistence for sessions, projects, bid cards,
// messages, and user preferences.
package store

import (
	"context"

	"github.com/homequote/intake/internal/domain"
)

// Store defines the persistence operations used by the intake service.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Messages
	CreateMessage(ctx context.Context, msg *domain.Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	// Projects
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	UpdateProject(ctx context.Context, projectID string, fields map[string]string) error

	// Bid cards
	CreateBidCard(ctx context.Context, card *domain.BidCard) error
	GetBidCard(ctx context.Context, bidCardID string) (*domain.BidCard, error)
	GetBidCardByProject(ctx context.Context, projectID string) (*domain.BidCard, error)

	// Preferences
	GetPreference(ctx context.Context, userID, key string) (*domain.Preference, error)
	SetPreference(ctx context.Context, pref *domain.Preference) error

	Close() error
}
