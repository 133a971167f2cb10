package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/BTreeMap/Simsar/internal/flow"
	"github.com/BTreeMap/Simsar/internal/knowledge"
	"github.com/BTreeMap/Simsar/internal/messaging"
	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/store"
	"github.com/google/uuid"
)

// recipientNamespace scopes the deterministic session IDs of phone channels.
var recipientNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://simsar.local/sessions/sms"))

// SessionIDForRecipient returns the stable session ID of a canonical phone number.
func SessionIDForRecipient(canonical string) string {
	return uuid.NewSHA1(recipientNamespace, []byte(canonical)).String()
}

// SessionManager restores agents from stored snapshots, runs one turn at a time per
// session and persists the result.
type SessionManager struct {
	store     store.Store
	retriever *knowledge.Retriever
	agentOpts []flow.AgentOption

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// NewSessionManager creates a manager. agentOpts are applied to every restored agent.
func NewSessionManager(st store.Store, retriever *knowledge.Retriever, agentOpts ...flow.AgentOption) *SessionManager {
	return &SessionManager{
		store:     st,
		retriever: retriever,
		agentOpts: agentOpts,
		locks:     make(map[string]*sessionLock),
	}
}

// sessionLock is dropped from the manager once no caller holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes work on one session.
func (m *SessionManager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

// Create starts a new session and returns its snapshot and the welcome message.
func (m *SessionManager) Create(ctx context.Context, channel models.Channel) (*models.SessionSnapshot, string, error) {
	agent := flow.NewAgent(m.retriever, m.agentOpts...)
	snap := agent.Snapshot()
	snap.ID = uuid.NewString()
	snap.Channel = channel
	if err := m.store.Create(ctx, &snap); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("SessionManager.Create: session started", "id", snap.ID, "channel", channel)
	return &snap, agent.Welcome(), nil
}

// Get returns the stored snapshot or models.ErrSessionNotFound.
func (m *SessionManager) Get(ctx context.Context, id string) (*models.SessionSnapshot, error) {
	snap, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return snap, nil
}

// Delete removes a session.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()
	snap, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return m.store.Delete(ctx, id)
}

// Turn runs one message through the session's agent. state is returned untouched.
func (m *SessionManager) Turn(ctx context.Context, id, message string, state json.RawMessage) (models.TurnResponse, error) {
	unlock := m.lock(id)
	defer unlock()

	snap, err := m.store.Get(ctx, id)
	if err != nil {
		return models.TurnResponse{}, err
	}
	if snap == nil {
		return models.TurnResponse{}, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return m.turn(ctx, snap, message, state)
}

// TurnForRecipient runs one inbound phone message, creating the sender's session on
// first contact.
func (m *SessionManager) TurnForRecipient(ctx context.Context, from, message string) (models.TurnResponse, error) {
	canonical, err := messaging.CanonicalizeRecipient(from)
	if err != nil {
		return models.TurnResponse{}, err
	}
	id := SessionIDForRecipient(canonical)
	unlock := m.lock(id)
	defer unlock()

	snap, err := m.store.Get(ctx, id)
	if err != nil {
		return models.TurnResponse{}, err
	}
	if snap == nil {
		fresh := flow.NewAgent(m.retriever, m.agentOpts...).Snapshot()
		fresh.ID = id
		fresh.Channel = models.ChannelSMS
		fresh.Recipient = canonical
		if err := m.store.Create(ctx, &fresh); err != nil {
			return models.TurnResponse{}, fmt.Errorf("failed to create session for %s: %w", canonical, err)
		}
		slog.Info("SessionManager.TurnForRecipient: session started", "id", id)
		snap = &fresh
	}
	return m.turn(ctx, snap, message, nil)
}

func (m *SessionManager) turn(ctx context.Context, snap *models.SessionSnapshot, message string, state json.RawMessage) (models.TurnResponse, error) {
	agent, err := flow.RestoreAgent(*snap, m.retriever, m.agentOpts...)
	if err != nil {
		return models.TurnResponse{}, err
	}
	reply, state := flow.Converse(ctx, agent, message, state)

	next := agent.Snapshot()
	next.ID = snap.ID
	next.Channel = snap.Channel
	next.Recipient = snap.Recipient
	next.Version = snap.Version
	next.CreatedAt = snap.CreatedAt
	if err := m.store.Update(ctx, &next); err != nil {
		return models.TurnResponse{}, fmt.Errorf("failed to save session %s: %w", snap.ID, err)
	}
	slog.Debug("SessionManager.turn: turn persisted", "id", snap.ID, "phase", next.Phase, "version", next.Version)
	return models.TurnResponse{SessionID: snap.ID, Reply: reply, Phase: next.Phase, State: state}, nil
}
