package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BotWeave/BotWeave/internal/models"
)

// SessionStore is the in-memory registry of per-conversation flow state,
// scoped to the process lifetime. State is deliberately not persisted to the
// data store and is lost on restart. The store is constructed once at process
// start and injected into its consumers; a mutex guards the map so concurrent
// requests for the same conversation do not corrupt it.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.ConversationState
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	slog.Debug("Creating flow SessionStore")
	return &SessionStore{sessions: make(map[string]*models.ConversationState)}
}

// Init creates a fresh state for the conversation with the cursor at step 0,
// empty variables and empty history, overwriting any existing state.
func (s *SessionStore) Init(conversationID, flowID string) models.ConversationState {
	now := time.Now()
	state := &models.ConversationState{
		ConversationID:   conversationID,
		FlowID:           flowID,
		CurrentStepIndex: 0,
		Variables:        make(map[string]string),
		History:          []models.HistoryEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.mu.Lock()
	s.sessions[conversationID] = state
	s.mu.Unlock()
	slog.Debug("SessionStore Init", "conversation", conversationID, "flow", flowID)
	return *state
}

// Get returns a copy of the state for the conversation, if present. The store
// owns the canonical state; callers mutate it only through Update and Advance.
func (s *SessionStore) Get(conversationID string) (models.ConversationState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[conversationID]
	if !ok {
		return models.ConversationState{}, false
	}
	return copyState(state), true
}

// Update shallow-merges the partial update into the existing state. It is a
// no-op, not an error, when the conversation has no state.
func (s *SessionStore) Update(conversationID string, upd models.StateUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[conversationID]
	if !ok {
		slog.Debug("SessionStore Update on absent conversation, ignoring", "conversation", conversationID)
		return
	}
	if upd.CurrentStepIndex != nil {
		state.CurrentStepIndex = *upd.CurrentStepIndex
	}
	if upd.FlowID != nil {
		state.FlowID = *upd.FlowID
	}
	if upd.Variables != nil {
		if state.Variables == nil {
			state.Variables = make(map[string]string, len(upd.Variables))
		}
		for k, v := range upd.Variables {
			state.Variables[k] = v
		}
	}
	if upd.Completed != nil {
		state.Completed = *upd.Completed
	}
	state.UpdatedAt = time.Now()
}

// Advance records the user's turn and moves the cursor one step forward in
// declaration order, or jumps to the first final step when past the end.
// Question options and condition expressions are not consulted to choose a
// transition; advancement is strictly linear. The branching data stays
// available on each Step for a future branch-aware walk.
//
// Once the final step's content has been delivered the flow is complete and
// further advances return the fallback reply. Malformed flow data yields the
// apology reply; Advance never fails.
func (s *SessionStore) Advance(conversationID string, userMessage models.Message, doc []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.sessions[conversationID]
	if !ok {
		slog.Debug("SessionStore Advance on absent conversation, creating state", "conversation", conversationID)
		now := time.Now()
		state = &models.ConversationState{
			ConversationID: conversationID,
			Variables:      make(map[string]string),
			History:        []models.HistoryEntry{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.sessions[conversationID] = state
	}

	state.History = append(state.History, models.HistoryEntry{
		StepIndex: state.CurrentStepIndex,
		Message:   userMessage.Content,
	})
	state.UpdatedAt = time.Now()

	steps, err := ParseFlowDocument(doc)
	if err != nil {
		slog.Warn("SessionStore Advance on malformed flow", "error", err, "conversation", conversationID)
		return ApologyReply
	}
	if state.Completed {
		return AdvanceFallbackReply
	}

	next := -1
	if state.CurrentStepIndex+1 < len(steps) {
		next = state.CurrentStepIndex + 1
	} else {
		for i, step := range steps {
			if step.Kind == models.NodeFinal {
				next = i
				break
			}
		}
	}
	if next == -1 {
		slog.Debug("SessionStore Advance past end of flow", "conversation", conversationID)
		return AdvanceFallbackReply
	}

	state.CurrentStepIndex = next
	if steps[next].Kind == models.NodeFinal {
		state.Completed = true
	}
	slog.Debug("SessionStore Advance", "conversation", conversationID, "step", next, "kind", steps[next].Kind)
	return steps[next].Content
}

// Reset deletes the state entry for the conversation entirely.
func (s *SessionStore) Reset(conversationID string) {
	s.mu.Lock()
	delete(s.sessions, conversationID)
	s.mu.Unlock()
	slog.Debug("SessionStore Reset", "conversation", conversationID)
}

func copyState(state *models.ConversationState) models.ConversationState {
	out := *state
	out.Variables = make(map[string]string, len(state.Variables))
	for k, v := range state.Variables {
		out.Variables[k] = v
	}
	out.History = append([]models.HistoryEntry(nil), state.History...)
	return out
}

// StatefulEngine is the session-backed reply strategy: each user turn advances
// the conversation's step cursor linearly through the flow.
type StatefulEngine struct {
	sessions *SessionStore
}

// NewStatefulEngine creates a StatefulEngine over the given session store.
func NewStatefulEngine(sessions *SessionStore) *StatefulEngine {
	return &StatefulEngine{sessions: sessions}
}

// NextReply implements Strategy. The first turn of a conversation initializes
// its session; later turns advance it.
func (e *StatefulEngine) NextReply(conversationID string, messages []models.Message, doc []byte) string {
	var lastUser *models.Message
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender == models.SenderUser {
			lastUser = &messages[i]
			break
		}
	}
	if lastUser == nil {
		// Nothing to advance on; open with the scripted engine's behavior.
		return NextResponse(messages, doc)
	}
	if _, ok := e.sessions.Get(conversationID); !ok {
		e.sessions.Init(conversationID, "")
	}
	return e.sessions.Advance(conversationID, *lastUser, doc)
}
