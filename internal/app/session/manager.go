package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"civbuilders/internal/app/persistence"
	"civbuilders/internal/app/ports"
	"civbuilders/internal/domain/progression"
)

// Persistence is the slice of the save synchronizer a Manager drives.
type Persistence interface {
	Load(ctx context.Context, userID string) (progression.Record, error)
	Schedule(userID string, record progression.Record)
	Quiesce(userID string)
	Delete(ctx context.Context, userID string) error
}

type LoadStatus string

const (
	LoadRestored LoadStatus = "restored"
	LoadNew      LoadStatus = "new"
	LoadCorrupt  LoadStatus = "corrupt"
	LoadFailed   LoadStatus = "failed"
)

type BootstrapStatus struct {
	Load  LoadStatus `json:"load"`
	Error string     `json:"error,omitempty"`
}

type Result struct {
	Outcome  progression.Outcome        `json:"outcome"`
	View     progression.View           `json:"state"`
	Proposal *progression.ResetProposal `json:"proposal,omitempty"`
}

type Options struct {
	Engine      progression.Engine
	Persistence Persistence
	Events      ports.EventRepository
	TxManager   ports.TxManager
	Metrics     ports.ActionMetrics
	Logger      *slog.Logger
}

// Manager owns one Session per user and serializes operations on it.
type Manager struct {
	engine  progression.Engine
	persist Persistence
	events  ports.EventRepository
	tx      ports.TxManager
	metrics ports.ActionMetrics
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

type Session struct {
	mu           sync.Mutex
	bootstrapped bool
	status       BootstrapStatus
	state        progression.SessionState
	proposal     *progression.ResetProposal
}

func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		engine:   opts.Engine,
		persist:  opts.Persistence,
		events:   opts.Events,
		tx:       opts.TxManager,
		metrics:  opts.Metrics,
		logger:   opts.Logger.With("component", "session"),
		sessions: map[string]*Session{},
	}
}

func (m *Manager) Engine() progression.Engine {
	return m.engine
}

// Bootstrap loads the saved record once per user. Absent or unreadable
// records leave the session in the no-game phase.
func (m *Manager) Bootstrap(ctx context.Context, userID string) (BootstrapStatus, error) {
	var status BootstrapStatus
	err := m.withSession(ctx, userID, func(_ string, s *Session) error {
		status = s.status
		return nil
	})
	return status, err
}

func (m *Manager) Snapshot(ctx context.Context, userID string) (Result, error) {
	var out Result
	err := m.withSession(ctx, userID, func(_ string, s *Session) error {
		out = Result{View: m.engine.View(s.state), Proposal: cloneProposal(s.proposal)}
		return nil
	})
	return out, err
}

func (m *Manager) Library(ctx context.Context, userID string) ([]progression.LibraryEntry, error) {
	var out []progression.LibraryEntry
	err := m.withSession(ctx, userID, func(_ string, s *Session) error {
		out = m.engine.Library(s.state)
		return nil
	})
	return out, err
}

func (m *Manager) Start(ctx context.Context, userID, orderID string) (Result, error) {
	return m.apply(ctx, userID, func(state progression.SessionState) (progression.SessionState, progression.Outcome, error) {
		return m.engine.StartSession(state, strings.TrimSpace(orderID))
	})
}

func (m *Manager) PlayContribution(ctx context.Context, userID, cardID string) (Result, error) {
	return m.apply(ctx, userID, func(state progression.SessionState) (progression.SessionState, progression.Outcome, error) {
		return m.engine.PlayContribution(state, strings.TrimSpace(cardID))
	})
}

func (m *Manager) DebunkMyth(ctx context.Context, userID, mythID string) (Result, error) {
	return m.apply(ctx, userID, func(state progression.SessionState) (progression.SessionState, progression.Outcome, error) {
		return m.engine.DebunkMyth(state, strings.TrimSpace(mythID))
	})
}

func (m *Manager) RedrawContributions(ctx context.Context, userID string) (Result, error) {
	return m.apply(ctx, userID, m.engine.RedrawContributions)
}

func (m *Manager) RedrawMyths(ctx context.Context, userID string) (Result, error) {
	return m.apply(ctx, userID, m.engine.RedrawMyths)
}

// ProposeReset issues a reset token bound to the current state version.
// A later proposal replaces an earlier one.
func (m *Manager) ProposeReset(ctx context.Context, userID string) (Result, error) {
	var out Result
	err := m.withSession(ctx, userID, func(_ string, s *Session) error {
		proposal, err := m.engine.ProposeReset(s.state)
		if err != nil {
			out = Result{View: m.engine.View(s.state)}
			m.recordError(err)
			return err
		}
		s.proposal = &proposal
		out = Result{
			Outcome:  progression.Outcome{Kind: progression.OutcomeResetProposed, Resources: s.state.Resources},
			View:     m.engine.View(s.state),
			Proposal: cloneProposal(s.proposal),
		}
		m.recordSuccess(out.Outcome.Kind)
		return nil
	})
	return out, err
}

func (m *Manager) CancelReset(ctx context.Context, userID string) (Result, error) {
	var out Result
	err := m.withSession(ctx, userID, func(_ string, s *Session) error {
		s.proposal = nil
		out = Result{
			Outcome: progression.Outcome{Kind: progression.OutcomeResetCancelled, Resources: s.state.Resources},
			View:    m.engine.View(s.state),
		}
		m.recordSuccess(out.Outcome.Kind)
		return nil
	})
	return out, err
}

// ConfirmReset completes a proposed reset. The saved record is deleted and
// a session_reset event appended in one transaction; on failure the session
// keeps its state and its latest record is rescheduled.
func (m *Manager) ConfirmReset(ctx context.Context, userID, token string) (Result, error) {
	var out Result
	err := m.withSession(ctx, userID, func(userID string, s *Session) error {
		proposal := progression.ResetProposal{}
		if s.proposal != nil && s.proposal.Token == strings.TrimSpace(token) {
			proposal = *s.proposal
		}
		next, outcome, err := m.engine.ConfirmReset(s.state, proposal)
		if err != nil {
			out = Result{View: m.engine.View(s.state), Proposal: cloneProposal(s.proposal)}
			m.recordError(err)
			return err
		}

		m.persist.Quiesce(userID)
		err = m.runInTx(ctx, func(txCtx context.Context) error {
			if err := m.persist.Delete(txCtx, userID); err != nil {
				return err
			}
			return m.appendEvent(txCtx, userID, outcome, next)
		})
		if err != nil {
			m.persist.Schedule(userID, progression.ToRecord(s.state))
			out = Result{View: m.engine.View(s.state), Proposal: cloneProposal(s.proposal)}
			m.logger.ErrorContext(ctx, "reset failed", "user_id", userID, "error", err)
			m.recordError(err)
			return err
		}

		s.state = next
		s.proposal = nil
		out = Result{Outcome: outcome, View: m.engine.View(s.state)}
		m.recordSuccess(outcome.Kind)
		return nil
	})
	return out, err
}

type transition func(progression.SessionState) (progression.SessionState, progression.Outcome, error)

func (m *Manager) apply(ctx context.Context, userID string, fn transition) (Result, error) {
	var out Result
	err := m.withSession(ctx, userID, func(userID string, s *Session) error {
		next, outcome, err := fn(s.state)
		if err != nil {
			out = Result{View: m.engine.View(s.state), Proposal: cloneProposal(s.proposal)}
			m.recordError(err)
			return err
		}
		if next.Version != s.state.Version {
			s.proposal = nil
		}
		s.state = next
		out = Result{Outcome: outcome, View: m.engine.View(s.state), Proposal: cloneProposal(s.proposal)}

		if outcome.Kind.Persisted() {
			m.persist.Schedule(userID, progression.ToRecord(next))
			if err := m.appendEvent(ctx, userID, outcome, next); err != nil {
				m.logger.WarnContext(ctx, "append event failed", "user_id", userID, "event", outcome.Kind, "error", err)
			}
		}
		m.recordSuccess(outcome.Kind)
		return nil
	})
	return out, err
}

func (m *Manager) withSession(ctx context.Context, userID string, fn func(userID string, s *Session) error) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		m.recordError(persistence.ErrIdentityNotReady)
		return persistence.ErrIdentityNotReady
	}
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bootstrapped {
		m.bootstrap(ctx, userID, s)
	}
	return fn(userID, s)
}

func (m *Manager) session(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = &Session{state: progression.NewSessionState()}
		m.sessions[userID] = s
	}
	return s
}

func (m *Manager) bootstrap(ctx context.Context, userID string, s *Session) {
	s.bootstrapped = true
	s.state = progression.NewSessionState()

	record, err := m.persist.Load(ctx, userID)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		s.status = BootstrapStatus{Load: LoadNew}
		return
	case err != nil:
		m.logger.ErrorContext(ctx, "load failed, starting without a game", "user_id", userID, "error", err)
		s.status = BootstrapStatus{Load: LoadFailed, Error: err.Error()}
		return
	}

	state, _, err := m.engine.Restore(record)
	if err != nil {
		m.logger.WarnContext(ctx, "discarding unreadable save", "user_id", userID, "error", err)
		s.status = BootstrapStatus{Load: LoadCorrupt, Error: err.Error()}
		return
	}
	s.state = state
	s.status = BootstrapStatus{Load: LoadRestored}
}

func (m *Manager) appendEvent(ctx context.Context, userID string, outcome progression.Outcome, state progression.SessionState) error {
	if m.events == nil {
		return nil
	}
	event := progression.EventFor(outcome, state, state.UpdatedAt)
	event.Payload["user_id"] = userID
	return m.events.Append(ctx, userID, []progression.DomainEvent{event})
}

func (m *Manager) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.tx == nil {
		return fn(ctx)
	}
	return m.tx.RunInTx(ctx, fn)
}

func (m *Manager) recordSuccess(kind progression.OutcomeKind) {
	if m.metrics != nil {
		m.metrics.RecordSuccess(string(kind))
	}
}

func (m *Manager) recordError(err error) {
	if m.metrics == nil {
		return
	}
	if IsRejection(err) {
		m.metrics.RecordRejected(ErrorCode(err))
		return
	}
	m.metrics.RecordFailure()
}

func cloneProposal(p *progression.ResetProposal) *progression.ResetProposal {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
