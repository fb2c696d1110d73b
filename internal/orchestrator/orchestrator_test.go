package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homequote/intake/internal/adapter/model"
	"github.com/homequote/intake/internal/capability"
	"github.com/homequote/intake/internal/classify"
	"github.com/homequote/intake/internal/domain"
	"github.com/homequote/intake/internal/policy"
	"github.com/homequote/intake/internal/slots"
	"github.com/homequote/intake/internal/store"
)

// scriptedModel plays back queued outputs, then defaults to plain text.
type scriptedModel struct {
	outputs []*domain.ModelOutput
	calls   int
}

func (s *scriptedModel) Complete(ctx context.Context, req *model.Request) (*domain.ModelOutput, error) {
	s.calls++
	if len(s.outputs) == 0 {
		return &domain.ModelOutput{Text: "Tell me more."}, nil
	}
	out := s.outputs[0]
	s.outputs = s.outputs[1:]
	return out, nil
}

type countingVision struct {
	calls int
}

func (v *countingVision) Analyze(ctx context.Context, imageRef string) (*domain.VisionAnalysis, error) {
	v.calls++
	return &domain.VisionAnalysis{
		Labels:         []domain.VisionLabel{{Description: "remodel kitchen cabinets", Score: 0.92}},
		SourceImageRef: imageRef,
	}, nil
}

type fixture struct {
	orch   *Orchestrator
	store  store.Store
	model  *scriptedModel
	vision *countingVision
}

func newFixture(t *testing.T, outputs ...*domain.ModelOutput) *fixture {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	vision := &countingVision{}
	registry := capability.NewRegistry(engine)
	capability.RegisterAll(registry, s, vision)

	m := &scriptedModel{outputs: outputs}
	orch := New(s, registry, m, classify.NewEngine(nil, classify.DefaultPolicy()))
	return &fixture{orch: orch, store: s, model: m, vision: vision}
}

func completeSlots() map[string]string {
	return map[string]string{
		slots.FieldTitle:        "Kitchen refresh",
		slots.FieldDescription:  "kitchen remodel",
		slots.FieldLocationCode: "94110",
		slots.FieldBudgetRange:  "$5000-$10000",
		slots.FieldTimeline:     "Within 1 month",
	}
}

func TestFirstTurnAppliesBudgetPreference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &domain.ModelOutput{
		Text:  "What would you like to name this project?",
		Slots: map[string]string{slots.FieldDescription: "kitchen remodel"},
	})

	require.NoError(t, f.store.SetPreference(ctx, &domain.Preference{
		UserID: "u1", Key: "default_budget", Value: "$1000-$5000", Confidence: 0.9,
	}))

	out, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "I want to remodel my kitchen",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseSlotFilling, out.Phase)
	assert.Equal(t, "What would you like to name this project?", out.Reply)

	session, err := f.store.GetSession(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, "$1000-$5000", session.Slots[slots.FieldBudgetRange])
	assert.Equal(t, "kitchen remodel", session.Slots[slots.FieldDescription])
}

func TestPreferenceNeverOverwritesUserBudget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &domain.ModelOutput{
		Text:  "Got it.",
		Slots: map[string]string{slots.FieldBudgetRange: "$20000-$30000"},
	})

	require.NoError(t, f.store.SetPreference(ctx, &domain.Preference{
		UserID: "u1", Key: "default_budget", Value: "$1000-$5000", Confidence: 0.9,
	}))

	_, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "Budget is twenty to thirty grand",
	})
	require.NoError(t, err)

	session, err := f.store.GetSession(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, "$20000-$30000", session.Slots[slots.FieldBudgetRange])
}

func TestNextQuestionTargetsFirstMissingSlot(t *testing.T) {
	ctx := context.Background()
	filled := completeSlots()
	delete(filled, slots.FieldBudgetRange)

	// Model reports slots but produces no text and no requests.
	f := newFixture(t, &domain.ModelOutput{Slots: filled})

	out, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "Here is everything about my project",
	})
	require.NoError(t, err)
	assert.Equal(t, slots.Question(slots.FieldBudgetRange), out.Reply)

	session, err := f.store.GetSession(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, []string{slots.FieldBudgetRange}, slots.Missing(session.Slots))
}

func TestFullFlowToCompletedBidCard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		// Turn 1: extract most fields, ask for the rest.
		&domain.ModelOutput{
			Text: "What's your budget?",
			Slots: map[string]string{
				slots.FieldTitle:        "Kitchen refresh",
				slots.FieldDescription:  "kitchen remodel",
				slots.FieldLocationCode: "94110",
			},
		},
		// Turn 2, first completion: remaining fields plus confirmed create.
		&domain.ModelOutput{
			Slots: map[string]string{
				slots.FieldBudgetRange: "$5000-$10000",
				slots.FieldTimeline:    "Within 1 month",
			},
			Requests: []domain.CapabilityRequest{{
				Name: capability.NameCreateProject,
				Args: map[string]any{
					"title":         "Kitchen refresh",
					"description":   "kitchen remodel",
					"location_code": "94110",
				},
			}},
		},
		// Turn 2, second completion after capability results.
		&domain.ModelOutput{Text: "Project created, generating your bid card."},
	)

	out, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "I want to remodel my kitchen in 94110",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseSlotFilling, out.Phase)

	out, err = f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "Budget 5-10k, within a month. Go ahead.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, out.Phase)
	assert.NotEmpty(t, out.ProjectID)
	assert.NotEmpty(t, out.BidCardID)
	assert.Contains(t, out.Reply, "renovation / kitchen")

	card, err := f.store.GetBidCardByProject(ctx, out.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "renovation", card.PrimaryCategory)
	assert.Equal(t, "kitchen", card.PrimarySubtype)
	assert.Equal(t, classify.StatusFinal, card.Status)
	assert.NotEqual(t, card.PrimaryCategory, card.SecondaryCategory)

	project, err := f.store.GetProject(ctx, out.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.Equal(t, "u1", project.OwnerID)
}

// missingIDCreate mimics a create_project capability whose result looks
// successful but carries no identifier.
type missingIDCreate struct{}

func (missingIDCreate) Name() string        { return capability.NameCreateProject }
func (missingIDCreate) Description() string { return "broken create" }
func (missingIDCreate) Required() []string  { return nil }
func (missingIDCreate) Optional() []string  { return nil }
func (missingIDCreate) Invoke(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func TestMissingIdentifierEscalatesToError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		&domain.ModelOutput{
			Slots: completeSlots(),
			Requests: []domain.CapabilityRequest{{
				Name: capability.NameCreateProject,
				Args: map[string]any{},
			}},
		},
	)

	// Shadow the real handler with one that drops the identifier.
	reg := capability.NewRegistry(nil)
	reg.Register(missingIDCreate{})
	f.orch.registry = reg

	out, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "Create it",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseError, out.Phase)
	assert.Equal(t, replyError, out.Reply)

	callsBefore := f.model.calls
	out, err = f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "Hello?",
	})
	require.NoError(t, err)
	assert.Equal(t, replyError, out.Reply)
	assert.Equal(t, callsBefore, f.model.calls, "terminal turn must not re-run orchestration")

	session, err := f.store.GetSession(ctx, "sess_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseError, session.Phase)
}

func TestNilCapabilityArgsGetIdentityDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.store.SetPreference(ctx, &domain.Preference{
		UserID: "u1", Key: "default_budget", Value: "$1000-$5000", Confidence: 0.9,
	}))

	session := &domain.Session{
		SessionID: "sess_1", UserID: "u1", Phase: domain.PhaseSlotFilling,
		Slots: map[string]string{},
	}

	req := f.orch.defaultArgs(session, domain.CapabilityRequest{Name: capability.NameGetPreference})
	require.NotNil(t, req.Args)
	assert.Equal(t, "u1", req.Args["user_id"])

	req = f.orch.defaultArgs(session, domain.CapabilityRequest{Name: capability.NameCreateProject})
	require.NotNil(t, req.Args)
	assert.Equal(t, "u1", req.Args["owner_id"])

	res := f.orch.execute(ctx, session, domain.CapabilityRequest{
		Name: capability.NameGetPreference,
		Args: map[string]any{"key": preferenceKey},
	})
	require.True(t, res.Success, "expected defaulted invocation to succeed, got %+v", res.Error)
	assert.Equal(t, "$1000-$5000", res.Payload["value"])
}

// failingBidCard mimics create_bid_card while its backing store is down.
type failingBidCard struct{}

func (failingBidCard) Name() string        { return capability.NameCreateBidCard }
func (failingBidCard) Description() string { return "store unavailable" }
func (failingBidCard) Required() []string  { return nil }
func (failingBidCard) Optional() []string  { return nil }
func (failingBidCard) Invoke(context.Context, map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("bid card store unavailable")
}

func TestBidCardRetriedAfterStructuredFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		&domain.ModelOutput{
			Slots: completeSlots(),
			Requests: []domain.CapabilityRequest{{
				Name: capability.NameCreateProject,
				Args: map[string]any{
					"title":         "Kitchen refresh",
					"description":   "kitchen remodel",
					"location_code": "94110",
				},
			}},
		},
		&domain.ModelOutput{Text: "Project created."},
		// Next turn, after the store comes back.
		&domain.ModelOutput{Text: "Let me try that again."},
	)
	f.orch.registry.Register(failingBidCard{})

	out, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "All set. Go ahead.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRecordCreated, out.Phase)
	assert.Equal(t, replyClassifyFailed, out.Reply)
	assert.Empty(t, out.BidCardID)

	// Store back online.
	capability.RegisterAll(f.orch.registry, f.store, f.vision)

	out, err = f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "Can you try again?",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseCompleted, out.Phase)
	assert.NotEmpty(t, out.BidCardID)

	card, err := f.store.GetBidCardByProject(ctx, out.ProjectID)
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, "renovation", card.PrimaryCategory)
}

func TestImageAnalyzedExactlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		&domain.ModelOutput{Text: "Nice photo. What's the title?"},
		// Second turn: model redundantly requests analyze_image.
		&domain.ModelOutput{
			Requests: []domain.CapabilityRequest{{
				Name: capability.NameAnalyzeImage,
				Args: map[string]any{"image_ref": "uploads/kitchen.jpg"},
			}},
		},
		&domain.ModelOutput{Text: "Already analyzed that one."},
	)

	_, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1",
		Text: "Here's a photo", ImageRef: "uploads/kitchen.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.vision.calls)

	session, err := f.store.GetSession(ctx, "sess_1")
	require.NoError(t, err)
	require.NotNil(t, session.Vision)

	_, err = f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "Analyze it again please",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.vision.calls, "second analysis must be served from session state")
}

func TestCompletedSessionAnswersFixedMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session := &domain.Session{
		SessionID: "sess_1", UserID: "u1", Phase: domain.PhaseCompleted,
		Slots: completeSlots(),
	}
	require.NoError(t, f.store.CreateSession(ctx, session))

	out, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "One more thing",
	})
	require.NoError(t, err)
	assert.Equal(t, replyCompleted, out.Reply)
	assert.Equal(t, 0, f.model.calls)
}

func TestAbandonDeletesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &domain.ModelOutput{Text: "Hi!"})

	_, err := f.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: "sess_1", UserID: "u1", Text: "hello",
	})
	require.NoError(t, err)

	require.NoError(t, f.orch.Abandon(ctx, "sess_1"))
	session, err := f.store.GetSession(ctx, "sess_1")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRejectsEmptyTurn(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.HandleTurn(context.Background(), domain.TurnInput{SessionID: "sess_1"})
	assert.Error(t, err)

	_, err = f.orch.HandleTurn(context.Background(), domain.TurnInput{Text: "hi"})
	assert.Error(t, err)
}
