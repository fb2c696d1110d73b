package capability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/homequote/intake/internal/domain"
	"github.com/homequote/intake/internal/store"
)

// Capability names.
const (
	NameCreateProject = "create_project"
	NameUpdateProject = "update_project"
	NameGetPreference = "get_preference"
	NameSetPreference = "set_preference"
	NameAnalyzeImage  = "analyze_image"
	NameCreateBidCard = "create_bid_card"
)

// VisionClient analyzes an image reference into labeled features.
type VisionClient interface {
	Analyze(ctx context.Context, imageRef string) (*domain.VisionAnalysis, error)
}

// RegisterAll wires the standard intake capabilities into a registry.
func RegisterAll(r *Registry, s store.Store, vision VisionClient) {
	r.Register(&createProject{store: s})
	r.Register(&updateProject{store: s})
	r.Register(&getPreference{store: s})
	r.Register(&setPreference{store: s})
	r.Register(&analyzeImage{vision: vision})
	r.Register(&createBidCard{store: s})
}

type createProject struct {
	store store.Store
}

func (*createProject) Name() string { return NameCreateProject }
func (*createProject) Description() string {
	return "Creates a new project record. Use only after every intake field is captured and the user has confirmed."
}
func (*createProject) Required() []string {
	return []string{"owner_id", "title", "description", "location_code"}
}
func (*createProject) Optional() []string { return []string{"status"} }

func (c *createProject) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	status := argString(args, "status")
	if status == "" {
		status = "scoping"
	}
	now := time.Now()
	project := &domain.Project{
		ProjectID:    "proj_" + uuid.New().String()[:8],
		OwnerID:      argString(args, "owner_id"),
		Title:        argString(args, "title"),
		Description:  argString(args, "description"),
		LocationCode: argString(args, "location_code"),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.store.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return map[string]any{"project_id": project.ProjectID}, nil
}

type updateProject struct {
	store store.Store
}

func (*updateProject) Name() string { return NameUpdateProject }
func (*updateProject) Description() string {
	return "Updates fields of an existing project record."
}
func (*updateProject) Required() []string { return []string{"project_id"} }
func (*updateProject) Optional() []string {
	return []string{"title", "description", "location_code", "status"}
}

func (c *updateProject) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	projectID := argString(args, "project_id")
	fields := make(map[string]string)
	for _, f := range c.Optional() {
		if v := argString(args, f); v != "" {
			fields[f] = v
		}
	}
	if err := c.store.UpdateProject(ctx, projectID, fields); err != nil {
		return nil, err
	}
	return map[string]any{"updated": true}, nil
}

type getPreference struct {
	store store.Store
}

func (*getPreference) Name() string { return NameGetPreference }
func (*getPreference) Description() string {
	return "Retrieves a saved user preference, e.g. default_budget."
}
func (*getPreference) Required() []string { return []string{"user_id", "key"} }
func (*getPreference) Optional() []string { return nil }

func (c *getPreference) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	pref, err := c.store.GetPreference(ctx, argString(args, "user_id"), argString(args, "key"))
	if err != nil {
		return nil, err
	}
	if pref == nil {
		return map[string]any{"found": false}, nil
	}
	return map[string]any{
		"found":      true,
		"key":        pref.Key,
		"value":      pref.Value,
		"confidence": pref.Confidence,
	}, nil
}

type setPreference struct {
	store store.Store
}

func (*setPreference) Name() string { return NameSetPreference }
func (*setPreference) Description() string {
	return "Saves a user preference after the user explicitly confirms it."
}
func (*setPreference) Required() []string { return []string{"user_id", "key", "value"} }
func (*setPreference) Optional() []string { return []string{"confidence"} }

func (c *setPreference) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	pref := &domain.Preference{
		UserID:     argString(args, "user_id"),
		Key:        argString(args, "key"),
		Value:      argString(args, "value"),
		Confidence: argFloat(args, "confidence"),
	}
	if err := c.store.SetPreference(ctx, pref); err != nil {
		return nil, err
	}
	return map[string]any{"saved": true}, nil
}

type analyzeImage struct {
	vision VisionClient
}

func (*analyzeImage) Name() string { return NameAnalyzeImage }
func (*analyzeImage) Description() string {
	return "Analyzes an uploaded image and extracts labels, objects, and other metadata."
}
func (*analyzeImage) Required() []string { return []string{"image_ref"} }
func (*analyzeImage) Optional() []string { return nil }

func (c *analyzeImage) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	if c.vision == nil {
		return nil, fmt.Errorf("vision client not configured")
	}
	analysis, err := c.vision.Analyze(ctx, argString(args, "image_ref"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"analysis": analysis}, nil
}

type createBidCard struct {
	store store.Store
}

func (*createBidCard) Name() string { return NameCreateBidCard }
func (*createBidCard) Description() string {
	return "Creates the bid card for a project from prepared classification parameters."
}
func (*createBidCard) Required() []string {
	return []string{"project_id", "primary_category", "primary_subtype", "primary_confidence"}
}
func (*createBidCard) Optional() []string {
	return []string{
		"secondary_category", "secondary_subtype", "secondary_confidence",
		"tertiary_category", "tertiary_subtype", "tertiary_confidence",
		"budget_range", "timeline", "photo_meta", "status",
	}
}

func (c *createBidCard) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	status := argString(args, "status")
	if status == "" {
		status = "draft"
	}
	card := &domain.BidCard{
		BidCardID:           "bc_" + uuid.New().String()[:8],
		ProjectID:           argString(args, "project_id"),
		PrimaryCategory:     argString(args, "primary_category"),
		PrimarySubtype:      argString(args, "primary_subtype"),
		PrimaryConfidence:   argFloat(args, "primary_confidence"),
		SecondaryCategory:   argString(args, "secondary_category"),
		SecondarySubtype:    argString(args, "secondary_subtype"),
		SecondaryConfidence: argFloat(args, "secondary_confidence"),
		TertiaryCategory:    argString(args, "tertiary_category"),
		TertiarySubtype:     argString(args, "tertiary_subtype"),
		TertiaryConfidence:  argFloat(args, "tertiary_confidence"),
		BudgetRange:         argString(args, "budget_range"),
		Timeline:            argString(args, "timeline"),
		Status:              status,
		CreatedAt:           time.Now(),
	}
	if v, ok := args["photo_meta"].(*domain.VisionAnalysis); ok {
		card.PhotoMeta = v
	}
	if err := c.store.CreateBidCard(ctx, card); err != nil {
		return nil, err
	}
	return map[string]any{"bid_card_id": card.BidCardID}, nil
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argFloat(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
