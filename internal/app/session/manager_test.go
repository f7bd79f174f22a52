package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"civbuilders/internal/adapter/metrics/inmemory"
	"civbuilders/internal/adapter/repo/memory"
	"civbuilders/internal/app/persistence"
	"civbuilders/internal/app/ports"
	"civbuilders/internal/domain/catalog"
	"civbuilders/internal/domain/progression"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	manager *Manager
	sync    *persistence.Synchronizer
	clock   *clockwork.FakeClock
	store   *memory.Store
	saves   ports.SaveRepository
	events  memory.EventRepo
	metrics *inmemory.Recorder
}

func newHarness(t *testing.T, saves ports.SaveRepository) harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	if saves == nil {
		saves = memory.NewSaveRepo(store)
	}
	clock := clockwork.NewFakeClockAt(fixedNow)
	metrics := inmemory.NewRecorder()
	syncer := persistence.New(persistence.Options{
		Repo:    saves,
		Clock:   clock,
		Logger:  logger,
		Metrics: metrics,
	})
	events := memory.NewEventRepo(store)
	m := NewManager(Options{
		Engine: progression.Engine{
			Catalog: catalog.Default(),
			Rand:    rand.New(rand.NewPCG(1, 2)),
			Now:     func() time.Time { return fixedNow },
		},
		Persistence: syncer,
		Events:      events,
		TxManager:   memory.NewTxManager(store),
		Metrics:     metrics,
		Logger:      logger,
	})
	return harness{manager: m, sync: syncer, clock: clock, store: store, saves: saves, events: events, metrics: metrics}
}

type failingSaves struct {
	ports.SaveRepository
}

func (failingSaves) Get(context.Context, string) (progression.Record, error) {
	return progression.Record{}, errors.New("unavailable")
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("no saved record", func(t *testing.T) {
		h := newHarness(t, nil)
		status, err := h.manager.Bootstrap(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, LoadNew, status.Load)

		res, err := h.manager.Snapshot(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, progression.PhaseNoGame, res.View.Phase)
	})

	t.Run("restores saved record", func(t *testing.T) {
		h := newHarness(t, nil)
		h.store.SeedSave("u1", progression.Record{
			SelectedOrderID:     "scholastic",
			Faith:               2,
			Reason:              3,
			CivilizationPoints:  50,
			PlayedContributions: []string{"fundUniversity"},
			DebunkedMyths:       []string{},
		})
		status, err := h.manager.Bootstrap(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, LoadRestored, status.Load)

		res, err := h.manager.Snapshot(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, progression.PhaseInProgress, res.View.Phase)
		assert.Equal(t, 50, res.View.Resources.CivilizationPoints)
		assert.Equal(t, []string{"fundUniversity"}, res.View.PlayedContributions)
		for _, card := range res.View.AvailableContributions {
			assert.NotEqual(t, "fundUniversity", card.ID)
		}
	})

	t.Run("corrupt record starts without a game", func(t *testing.T) {
		h := newHarness(t, nil)
		h.store.SeedSave("u1", progression.Record{SelectedOrderID: "templar"})
		status, err := h.manager.Bootstrap(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, LoadCorrupt, status.Load)
		assert.NotEmpty(t, status.Error)
	})

	t.Run("storage failure starts without a game", func(t *testing.T) {
		h := newHarness(t, failingSaves{})
		status, err := h.manager.Bootstrap(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, LoadFailed, status.Load)

		res, err := h.manager.Snapshot(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, progression.PhaseNoGame, res.View.Phase)
		assert.Equal(t, uint64(1), h.metrics.Snapshot().LoadFailure)
	})

	t.Run("identity not ready", func(t *testing.T) {
		h := newHarness(t, nil)
		_, err := h.manager.Bootstrap(ctx, "  ")
		require.ErrorIs(t, err, persistence.ErrIdentityNotReady)
		_, err = h.manager.Start(ctx, "", "benedictine")
		require.ErrorIs(t, err, persistence.ErrIdentityNotReady)
	})
}

func TestPersistedMutationsScheduleSaveAndAppendEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	res, err := h.manager.Start(ctx, "u1", "benedictine")
	require.NoError(t, err)
	assert.Equal(t, progression.OutcomeSessionStarted, res.Outcome.Kind)
	assert.Len(t, res.View.AvailableContributions, 3)
	assert.Len(t, res.View.AvailableMyths, 1)

	res, err = h.manager.PlayContribution(ctx, "u1", "developAgriculture")
	require.NoError(t, err)
	assert.Equal(t, 35, res.Outcome.PointsAwarded)
	assert.Equal(t, 8, res.View.Resources.Faith)
	assert.Equal(t, 0, res.View.Resources.Reason)
	assert.True(t, h.sync.Pending("u1"))

	require.NoError(t, h.sync.Flush(ctx))
	saved, err := h.saves.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "benedictine", saved.SelectedOrderID)
	assert.Equal(t, 35, saved.CivilizationPoints)
	assert.Equal(t, []string{"developAgriculture"}, saved.PlayedContributions)
	assert.Equal(t, uint64(1), h.metrics.Snapshot().SaveCoalesced)

	events, err := h.events.ListByUserID(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, string(progression.OutcomeContributionPlayed), events[0].Type)
	assert.Equal(t, "u1", events[0].Payload["user_id"])
	assert.Equal(t, string(progression.OutcomeSessionStarted), events[1].Type)
}

func TestRedrawIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.manager.Start(ctx, "u1", "benedictine")
	require.NoError(t, err)
	require.NoError(t, h.sync.Flush(ctx))

	res, err := h.manager.RedrawContributions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, progression.OutcomeHandRedrawn, res.Outcome.Kind)
	assert.False(t, h.sync.Pending("u1"))

	_, err = h.manager.RedrawMyths(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, h.sync.Pending("u1"))

	events, _ := h.events.ListByUserID(ctx, "u1", 0)
	assert.Len(t, events, 1)
}

func TestRejectionKeepsStateAndReportsCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	started, err := h.manager.Start(ctx, "u1", "benedictine")
	require.NoError(t, err)

	res, err := h.manager.PlayContribution(ctx, "u1", "fundUniversity")
	require.ErrorIs(t, err, progression.ErrInsufficientResources)
	assert.Equal(t, CodeInsufficientResources, ErrorCode(err))
	assert.Equal(t, started.View.Resources, res.View.Resources)
	assert.Equal(t, started.View.Version, res.View.Version)

	_, err = h.manager.DebunkMyth(ctx, "u1", "darkAgesIgnorance")
	assert.Equal(t, CodePrerequisitesNotMet, ErrorCode(err))

	_, err = h.manager.PlayContribution(ctx, "u1", "unknown")
	assert.Equal(t, CodeUnknownCard, ErrorCode(err))

	snap := h.metrics.Snapshot()
	assert.Equal(t, uint64(3), snap.ActionRejected)
	assert.Equal(t, uint64(1), snap.ByRejectCode[CodeInsufficientResources])
}

func TestTwoPhaseReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.manager.Start(ctx, "u1", "benedictine")
	require.NoError(t, err)
	require.NoError(t, h.sync.Flush(ctx))

	proposed, err := h.manager.ProposeReset(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, proposed.Proposal)
	assert.Equal(t, progression.PhaseInProgress, proposed.View.Phase)

	_, err = h.manager.ConfirmReset(ctx, "u1", "wrong-token")
	require.ErrorIs(t, err, progression.ErrStaleResetProposal)

	res, err := h.manager.ConfirmReset(ctx, "u1", proposed.Proposal.Token)
	require.NoError(t, err)
	assert.Equal(t, progression.OutcomeSessionReset, res.Outcome.Kind)
	assert.Equal(t, progression.PhaseNoGame, res.View.Phase)
	assert.Nil(t, res.Proposal)

	_, err = h.saves.Get(ctx, "u1")
	require.ErrorIs(t, err, ports.ErrNotFound)
	events, _ := h.events.ListByUserID(ctx, "u1", 1)
	require.Len(t, events, 1)
	assert.Equal(t, string(progression.OutcomeSessionReset), events[0].Type)
}

func TestResetProposalGoesStaleAfterMutation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.manager.Start(ctx, "u1", "benedictine")
	require.NoError(t, err)

	proposed, err := h.manager.ProposeReset(ctx, "u1")
	require.NoError(t, err)
	_, err = h.manager.PlayContribution(ctx, "u1", "developAgriculture")
	require.NoError(t, err)

	res, err := h.manager.ConfirmReset(ctx, "u1", proposed.Proposal.Token)
	require.ErrorIs(t, err, progression.ErrStaleResetProposal)
	assert.Equal(t, progression.PhaseInProgress, res.View.Phase)
}

func TestCancelResetDropsProposal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.manager.Start(ctx, "u1", "benedictine")
	require.NoError(t, err)

	proposed, err := h.manager.ProposeReset(ctx, "u1")
	require.NoError(t, err)
	cancelled, err := h.manager.CancelReset(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, progression.OutcomeResetCancelled, cancelled.Outcome.Kind)
	assert.Nil(t, cancelled.Proposal)

	_, err = h.manager.ConfirmReset(ctx, "u1", proposed.Proposal.Token)
	require.ErrorIs(t, err, progression.ErrStaleResetProposal)
}

func TestResetDiscardsPendingSave(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.manager.Start(ctx, "u1", "benedictine")
	require.NoError(t, err)
	require.True(t, h.sync.Pending("u1"))

	proposed, err := h.manager.ProposeReset(ctx, "u1")
	require.NoError(t, err)
	_, err = h.manager.ConfirmReset(ctx, "u1", proposed.Proposal.Token)
	require.NoError(t, err)
	assert.False(t, h.sync.Pending("u1"))

	h.clock.Advance(5 * time.Second)
	require.Never(t, func() bool {
		_, err := h.saves.Get(ctx, "u1")
		return err == nil
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestProposeResetRequiresGame(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.manager.ProposeReset(context.Background(), "u1")
	require.ErrorIs(t, err, progression.ErrInvalidStateTransition)
	assert.Equal(t, CodeInvalidStateTransition, ErrorCode(err))
}

func TestLibraryListsResolvedQuotes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.manager.Start(ctx, "u1", "benedictine")
	require.NoError(t, err)
	_, err = h.manager.PlayContribution(ctx, "u1", "abolishInfanticide")
	require.NoError(t, err)

	entries, err := h.manager.Library(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abolishInfanticide", entries[0].ID)
	assert.NotEmpty(t, entries[0].Quote)
}

func TestConcurrentOperationsOnOneSessionAreSerialized(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	_, err := h.manager.Start(ctx, "u1", "missionary")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.manager.PlayContribution(ctx, "u1", "abolishInfanticide")
		}()
	}
	wg.Wait()

	res, err := h.manager.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"abolishInfanticide"}, res.View.PlayedContributions)
	assert.Equal(t, 5, res.View.Resources.Faith)
	assert.Equal(t, 60, res.View.Resources.CivilizationPoints)
	assert.Equal(t, uint64(19), h.metrics.Snapshot().ByRejectCode[CodeAlreadyPlayed])
}
