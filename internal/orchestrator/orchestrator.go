// Package orchestrator drives a conversation session from first contact
// to a completed bid card. It owns all session mutation: each turn it
// inspects phase and slot state, requests model output, executes requested
// capabilities, folds results back into the session, and advances phase.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homequote/intake/internal/adapter/model"
	"github.com/homequote/intake/internal/capability"
	"github.com/homequote/intake/internal/classify"
	"github.com/homequote/intake/internal/domain"
	"github.com/homequote/intake/internal/slots"
	"github.com/homequote/intake/internal/store"
)

// Fixed replies for terminal and fallback cases.
const (
	replyCompleted      = "This project and its bid card are already complete. Start a new conversation for your next project."
	replyError          = "I ran into an issue with this project and can't continue here. Please start a new conversation."
	replyAck            = "I've taken care of that. What's next?"
	replyClassifyFailed = "I'm sorry, I couldn't prepare the bid card for this project."
)

const (
	defaultUserID = "default_user"
	historyLimit  = 50
	preferenceKey = "default_budget"
)

// Orchestrator processes conversation turns. It is safe for concurrent
// use: turns of the same session are serialized, different sessions run
// independently.
type Orchestrator struct {
	store    store.Store
	registry *capability.Registry
	model    model.Client
	engine   *classify.Engine

	locks sync.Map // session id -> *sync.Mutex
}

// New creates an orchestrator with its injected collaborators.
func New(s store.Store, r *capability.Registry, m model.Client, e *classify.Engine) *Orchestrator {
	return &Orchestrator{
		store:    s,
		registry: r,
		model:    m,
		engine:   e,
	}
}

// HandleTurn processes one inbound user turn to completion. State updates
// are persisted only after the turn's awaited steps return.
func (o *Orchestrator) HandleTurn(ctx context.Context, in domain.TurnInput) (*domain.TurnOutput, error) {
	if in.SessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	if in.Text == "" && in.ImageRef == "" {
		return nil, fmt.Errorf("text or image_ref is required")
	}

	mu := o.sessionLock(in.SessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := o.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		session, err = o.createSession(ctx, in)
		if err != nil {
			return nil, err
		}
	}

	// Terminal states answer with a fixed message and mutate nothing.
	if session.Phase.Terminal() {
		reply := replyCompleted
		if session.Phase == domain.PhaseError {
			reply = replyError
		}
		return output(session, reply), nil
	}

	if in.ImageRef != "" && session.ImageRef == "" {
		session.ImageRef = in.ImageRef
	}

	if err := o.saveMessage(ctx, session.SessionID, "user", in.Text); err != nil {
		log.Printf("ERROR: failed to save user message: %v", err)
		// Message storage failure shouldn't block the turn.
	}

	reply, err := o.processTurn(ctx, session)
	if err != nil {
		return nil, err
	}

	if err := o.saveMessage(ctx, session.SessionID, "assistant", reply); err != nil {
		log.Printf("ERROR: failed to save assistant message: %v", err)
	}
	if err := o.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return output(session, reply), nil
}

// Abandon deletes a session and its messages.
func (o *Orchestrator) Abandon(ctx context.Context, sessionID string) error {
	mu := o.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	return o.store.DeleteSession(ctx, sessionID)
}

func (o *Orchestrator) processTurn(ctx context.Context, session *domain.Session) (string, error) {
	// Pending image analysis runs before the model sees the turn, and at
	// most once per session.
	if session.ImageRef != "" && session.Vision == nil {
		res := o.registry.Invoke(ctx, session.UserID, domain.CapabilityRequest{
			Name: capability.NameAnalyzeImage,
			Args: map[string]any{"image_ref": session.ImageRef},
		})
		if res.Success {
			o.foldAnalysis(session, res)
		} else {
			log.Printf("WARN: image analysis failed: %s", res.Error.Message)
		}
	}

	reply, err := o.modelTurn(ctx, session)
	if err != nil {
		return "", err
	}
	if session.Phase == domain.PhaseError {
		return reply, nil
	}

	if session.Phase == domain.PhaseGreeting {
		// Preference pre-fill never overwrites a value the user supplied
		// this turn.
		if session.UserID != "" && session.Slots[slots.FieldBudgetRange] == "" {
			o.applyBudgetPreference(ctx, session)
		}
		session.Phase = domain.PhaseSlotFilling
	}

	return o.advance(ctx, session, reply), nil
}

// modelTurn runs the per-turn model loop: one completion, capability
// execution in requested order, and a second completion when capabilities
// ran. It returns the user-visible reply.
func (o *Orchestrator) modelTurn(ctx context.Context, session *domain.Session) (string, error) {
	turns, err := o.buildTurns(ctx, session)
	if err != nil {
		return "", err
	}

	out, err := o.model.Complete(ctx, &model.Request{
		Turns:        turns,
		Capabilities: o.registry.Schemas(),
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	session.Slots = slots.Merge(session.Slots, out.Slots)

	if !out.HasRequests() {
		return o.replyOrNextQuestion(session, out.Text), nil
	}

	results := make([]domain.CapabilityResult, 0, len(out.Requests))
	for _, req := range out.Requests {
		res := o.execute(ctx, session, req)
		results = append(results, res)
		if o.fold(session, res) {
			// Critical identifier missing: the session is now in ERROR.
			return replyError, nil
		}
	}

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal capability results: %w", err)
	}
	turns = append(turns, domain.ChatTurn{
		Role:    "system",
		Content: "capability results: " + string(resultsJSON),
	})

	second, err := o.model.Complete(ctx, &model.Request{
		Turns:        turns,
		Capabilities: o.registry.Schemas(),
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	session.Slots = slots.Merge(session.Slots, second.Slots)

	if second.Text == "" {
		return replyAck, nil
	}
	return second.Text, nil
}

// execute runs one capability request, answering a repeated analyze_image
// from the stored result instead of issuing a second call.
func (o *Orchestrator) execute(ctx context.Context, session *domain.Session, req domain.CapabilityRequest) domain.CapabilityResult {
	if req.Name == capability.NameAnalyzeImage && session.Vision != nil {
		return domain.CapabilityResult{
			Name:    req.Name,
			Success: true,
			Payload: map[string]any{"analysis": session.Vision, "cached": true},
		}
	}
	req = o.defaultArgs(session, req)
	return o.registry.Invoke(ctx, session.UserID, req)
}

// defaultArgs fills identity arguments from the session when the model
// omitted them. The request is returned so a nil args map can be replaced.
func (o *Orchestrator) defaultArgs(session *domain.Session, req domain.CapabilityRequest) domain.CapabilityRequest {
	if req.Args == nil {
		req.Args = map[string]any{}
	}
	switch req.Name {
	case capability.NameGetPreference, capability.NameSetPreference:
		if _, ok := req.Args["user_id"]; !ok {
			req.Args["user_id"] = session.UserID
		}
	case capability.NameCreateProject:
		if _, ok := req.Args["owner_id"]; !ok {
			req.Args["owner_id"] = session.UserID
		}
	case capability.NameCreateBidCard:
		if _, ok := req.Args["project_id"]; !ok && session.ProjectID != "" {
			req.Args["project_id"] = session.ProjectID
		}
	}
	return req
}

// fold merges one capability result into session state. It reports true
// when a critical capability returned a successful-looking result without
// its expected identifier, which escalates the session to ERROR.
func (o *Orchestrator) fold(session *domain.Session, res domain.CapabilityResult) bool {
	if !res.Success {
		// Non-critical failures are surfaced conversationally by the
		// second model call; nothing to fold.
		return false
	}

	switch res.Name {
	case capability.NameCreateProject:
		id, _ := res.Payload["project_id"].(string)
		if id == "" {
			o.escalate(session, "create_project returned no project_id")
			return true
		}
		if session.ProjectID == "" {
			session.ProjectID = id
		}
	case capability.NameCreateBidCard:
		id, _ := res.Payload["bid_card_id"].(string)
		if id == "" {
			o.escalate(session, "create_bid_card returned no bid_card_id")
			return true
		}
		if session.BidCardID == "" {
			session.BidCardID = id
		}
	case capability.NameAnalyzeImage:
		o.foldAnalysis(session, res)
	case capability.NameGetPreference:
		if found, _ := res.Payload["found"].(bool); found {
			if v, _ := res.Payload["value"].(string); v != "" && session.Slots[slots.FieldBudgetRange] == "" {
				session.Slots = slots.Merge(session.Slots, map[string]string{slots.FieldBudgetRange: v})
			}
		}
	}
	return false
}

func (o *Orchestrator) foldAnalysis(session *domain.Session, res domain.CapabilityResult) {
	if session.Vision != nil {
		return
	}
	if analysis, ok := res.Payload["analysis"].(*domain.VisionAnalysis); ok {
		session.Vision = analysis
	}
}

// advance computes the next phase after folding and runs the synchronous
// classification step. It may replace the reply on phase transitions that
// carry their own message.
func (o *Orchestrator) advance(ctx context.Context, session *domain.Session, reply string) string {
	if session.Phase == domain.PhaseSlotFilling &&
		slots.IsComplete(session.Slots) && session.ProjectID != "" {
		session.Phase = domain.PhaseClassifying
	}

	// RECORD_CREATED without a bid card id means an earlier create_bid_card
	// attempt failed; classification is deterministic, so re-run it and
	// retry on this turn.
	if session.Phase == domain.PhaseClassifying ||
		(session.Phase == domain.PhaseRecordCreated && session.BidCardID == "") {
		result, err := o.engine.Classify(session.Slots[slots.FieldDescription], session.Vision)
		if err != nil {
			o.escalate(session, fmt.Sprintf("classification failed: %v", err))
			return replyClassifyFailed
		}
		session.Phase = domain.PhaseRecordCreated
		return o.createBidCard(ctx, session, result)
	}

	if session.Phase == domain.PhaseRecordCreated && session.BidCardID != "" {
		session.Phase = domain.PhaseCompleted
	}
	return reply
}

// createBidCard invokes the derived-record capability with the assembled
// classification parameters and completes the session on success.
func (o *Orchestrator) createBidCard(ctx context.Context, session *domain.Session, result *classify.Result) string {
	status := o.engine.StatusFor(result.Primary.Confidence)
	args := map[string]any{
		"project_id":           session.ProjectID,
		"primary_category":     result.Primary.Category,
		"primary_subtype":      result.Primary.Subtype,
		"primary_confidence":   result.Primary.Confidence,
		"secondary_category":   result.Secondary.Category,
		"secondary_subtype":    result.Secondary.Subtype,
		"secondary_confidence": result.Secondary.Confidence,
		"tertiary_category":    result.Tertiary.Category,
		"tertiary_subtype":     result.Tertiary.Subtype,
		"tertiary_confidence":  result.Tertiary.Confidence,
		"budget_range":         session.Slots[slots.FieldBudgetRange],
		"timeline":             session.Slots[slots.FieldTimeline],
		"status":               status,
	}
	if session.Vision != nil {
		args["photo_meta"] = session.Vision
	}

	res := o.registry.Invoke(ctx, session.UserID, domain.CapabilityRequest{
		Name: capability.NameCreateBidCard,
		Args: args,
	})
	if !res.Success {
		// Structured store failure: stay in RECORD_CREATED; advance retries
		// classification and creation on the next turn.
		log.Printf("ERROR: create_bid_card failed: %s", res.Error.Message)
		return replyClassifyFailed
	}
	if o.fold(session, res) {
		return replyError
	}

	session.Phase = domain.PhaseCompleted
	return fmt.Sprintf(
		"Your project is ready. I classified it as %s / %s (confidence %.0f%%) and created a %s bid card. Contractors can now review it.",
		result.Primary.Category, result.Primary.Subtype, result.Primary.Confidence*100, status)
}

func (o *Orchestrator) applyBudgetPreference(ctx context.Context, session *domain.Session) {
	res := o.registry.Invoke(ctx, session.UserID, domain.CapabilityRequest{
		Name: capability.NameGetPreference,
		Args: map[string]any{"user_id": session.UserID, "key": preferenceKey},
	})
	if !res.Success {
		log.Printf("WARN: preference lookup failed: %s", res.Error.Message)
		return
	}
	o.fold(session, res)
}

func (o *Orchestrator) replyOrNextQuestion(session *domain.Session, text string) string {
	if text != "" {
		return text
	}
	if missing := slots.Missing(session.Slots); len(missing) > 0 {
		return slots.Question(missing[0])
	}
	return replyAck
}

func (o *Orchestrator) buildTurns(ctx context.Context, session *domain.Session) ([]domain.ChatTurn, error) {
	messages, err := o.store.GetMessages(ctx, session.SessionID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	turns := make([]domain.ChatTurn, 0, len(messages)+2)
	turns = append(turns,
		domain.ChatTurn{Role: "system", Content: systemPrompt},
		domain.ChatTurn{Role: "system", Content: statusLine(session)},
	)
	for _, m := range messages {
		turns = append(turns, domain.ChatTurn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

func (o *Orchestrator) createSession(ctx context.Context, in domain.TurnInput) (*domain.Session, error) {
	userID := in.UserID
	if userID == "" {
		userID = defaultUserID
	}
	now := time.Now()
	session := &domain.Session{
		SessionID: in.SessionID,
		UserID:    userID,
		Phase:     domain.PhaseGreeting,
		Slots:     make(map[string]string, len(slots.Required)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (o *Orchestrator) saveMessage(ctx context.Context, sessionID, role, content string) error {
	if content == "" {
		return nil
	}
	return o.store.CreateMessage(ctx, &domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

func (o *Orchestrator) escalate(session *domain.Session, message string) {
	log.Printf("ERROR: session %s escalated: %s", session.SessionID, message)
	session.Phase = domain.PhaseError
	session.ErrorMessage = message
}

func (o *Orchestrator) sessionLock(sessionID string) *sync.Mutex {
	mu, _ := o.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func output(session *domain.Session, reply string) *domain.TurnOutput {
	return &domain.TurnOutput{
		SessionID: session.SessionID,
		Reply:     reply,
		Phase:     session.Phase,
		ProjectID: session.ProjectID,
		BidCardID: session.BidCardID,
	}
}
