package domain

import (
	"time"
)

// Session represents a conversation session. It is created on the first
// inbound turn and mutated exclusively by the orchestrator.
type Session struct {
	SessionID    string            `json:"session_id"`
	UserID       string            `json:"user_id"`
	Phase        Phase             `json:"phase"`
	Slots        map[string]string `json:"slots"`
	ProjectID    string            `json:"project_id,omitempty"`
	BidCardID    string            `json:"bid_card_id,omitempty"`
	ImageRef     string            `json:"image_ref,omitempty"`
	Vision       *VisionAnalysis   `json:"vision,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Message represents a single message in a session.
type Message struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user, assistant, system
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Project represents a persisted homeowner project record.
type Project struct {
	ProjectID    string    `json:"project_id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	LocationCode string    `json:"location_code"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BidCard is the derived record generated from a classified project.
// It carries the full three-tier classification.
type BidCard struct {
	BidCardID           string          `json:"bid_card_id"`
	ProjectID           string          `json:"project_id"`
	PrimaryCategory     string          `json:"primary_category"`
	PrimarySubtype      string          `json:"primary_subtype"`
	PrimaryConfidence   float64         `json:"primary_confidence"`
	SecondaryCategory   string          `json:"secondary_category"`
	SecondarySubtype    string          `json:"secondary_subtype"`
	SecondaryConfidence float64         `json:"secondary_confidence"`
	TertiaryCategory    string          `json:"tertiary_category"`
	TertiarySubtype     string          `json:"tertiary_subtype"`
	TertiaryConfidence  float64         `json:"tertiary_confidence"`
	BudgetRange         string          `json:"budget_range,omitempty"`
	Timeline            string          `json:"timeline,omitempty"`
	PhotoMeta           *VisionAnalysis `json:"photo_meta,omitempty"`
	Status              string          `json:"status"` // draft or final
	CreatedAt           time.Time       `json:"created_at"`
}

// Preference is a saved user preference, e.g. a default budget range.
type Preference struct {
	UserID     string    `json:"user_id"`
	Key        string    `json:"key"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// VisionAnalysis is the structured result of the image-analysis capability.
type VisionAnalysis struct {
	Labels          []VisionLabel     `json:"labels"`
	Objects         []VisionObject    `json:"objects,omitempty"`
	TextAnnotations []string          `json:"text_annotations,omitempty"`
	DominantColors  []string          `json:"dominant_colors,omitempty"`
	ImageProperties map[string]int    `json:"image_properties,omitempty"`
	SafeSearch      map[string]string `json:"safe_search_annotation,omitempty"`
	SourceImageRef  string            `json:"source_image_ref,omitempty"`
}

// VisionLabel is a single labeled feature detected in an image.
type VisionLabel struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// VisionObject is a localized object detected in an image.
type VisionObject struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}
