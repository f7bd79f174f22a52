package persistence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"civbuilders/internal/app/ports"
	"civbuilders/internal/domain/progression"

	"github.com/jonboulle/clockwork"
)

const DefaultQuietPeriod = 2 * time.Second

type Options struct {
	Repo    ports.SaveRepository
	Clock   clockwork.Clock
	Quiet   time.Duration
	Logger  *slog.Logger
	Metrics ports.SaveMetrics
	// OnError receives failures of background saves. Optional.
	OnError func(userID string, err error)
}

// Synchronizer owns the save/load protocol for per-user game records.
// Scheduled saves are debounced per user and writes for one user never
// overlap.
type Synchronizer struct {
	repo    ports.SaveRepository
	clock   clockwork.Clock
	quiet   time.Duration
	logger  *slog.Logger
	metrics ports.SaveMetrics
	onError func(userID string, err error)

	mu    sync.Mutex
	cond  *sync.Cond
	seq   uint64
	slots map[string]*slot
}

type slot struct {
	timer     clockwork.Timer
	gen       uint64
	record    progression.Record
	dirty     bool
	coalesced int
	inFlight  bool
	waiters   int
}

func New(opts Options) *Synchronizer {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Quiet <= 0 {
		opts.Quiet = DefaultQuietPeriod
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Synchronizer{
		repo:    opts.Repo,
		clock:   opts.Clock,
		quiet:   opts.Quiet,
		logger:  opts.Logger.With("component", "persistence"),
		metrics: opts.Metrics,
		onError: opts.OnError,
		slots:   map[string]*slot{},
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Synchronizer) Load(ctx context.Context, userID string) (progression.Record, error) {
	if userID == "" {
		return progression.Record{}, ErrIdentityNotReady
	}
	record, err := s.repo.Get(ctx, userID)
	switch {
	case err == nil:
		s.recordLoad(true, true)
		return record, nil
	case errors.Is(err, ports.ErrNotFound):
		s.recordLoad(false, true)
		return progression.Record{}, ports.ErrNotFound
	default:
		s.recordLoad(false, false)
		s.logger.ErrorContext(ctx, "load failed", "user_id", userID, "op", "load", "error", err)
		return progression.Record{}, &StorageError{Op: "load", UserID: userID, Err: err}
	}
}

// Save writes record immediately, overwriting any stored document. A pending
// debounced save for the user is superseded.
func (s *Synchronizer) Save(ctx context.Context, userID string, record progression.Record) error {
	if userID == "" {
		return ErrIdentityNotReady
	}
	s.Discard(userID)
	return s.exclusive(userID, func() error {
		return s.write(ctx, userID, record, 0)
	})
}

// Schedule records the latest state for userID and (re)starts its quiet
// period. Only the last record scheduled within the window is written.
func (s *Synchronizer) Schedule(userID string, record progression.Record) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.slotLocked(userID)
	if sl.dirty {
		sl.coalesced++
	}
	sl.record = record
	sl.dirty = true
	if sl.timer != nil {
		sl.timer.Stop()
	}
	gen := s.nextGenLocked(sl)
	sl.timer = s.clock.AfterFunc(s.quiet, func() {
		s.fire(userID, gen)
	})
}

// Discard cancels any pending save for userID. A write already in flight
// still completes.
func (s *Synchronizer) Discard(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[userID]
	if !ok {
		return
	}
	if sl.timer != nil {
		sl.timer.Stop()
		sl.timer = nil
	}
	s.nextGenLocked(sl)
	sl.dirty = false
	sl.coalesced = 0
	s.releaseLocked(userID, sl)
}

func (s *Synchronizer) Pending(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[userID]
	return ok && sl.dirty
}

// Quiesce cancels pending saves for userID and blocks until no write is in
// flight. Call it before deleting inside a transaction so the delete never
// waits on a background write.
func (s *Synchronizer) Quiesce(userID string) {
	s.Discard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[userID]
	if !ok {
		return
	}
	sl.waiters++
	for sl.inFlight {
		s.cond.Wait()
	}
	sl.waiters--
	s.releaseLocked(userID, sl)
}

// Delete removes the stored record after cancelling pending saves and
// waiting out any write in flight.
func (s *Synchronizer) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrIdentityNotReady
	}
	s.Discard(userID)
	return s.exclusive(userID, func() error {
		err := s.repo.Delete(ctx, userID)
		if err == nil || errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		s.logger.ErrorContext(ctx, "delete failed", "user_id", userID, "op", "delete", "error", err)
		return &StorageError{Op: "delete", UserID: userID, Err: err}
	})
}

// Flush writes every pending record now. Used on shutdown.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	users := make([]string, 0, len(s.slots))
	for userID, sl := range s.slots {
		if sl.dirty {
			users = append(users, userID)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, userID := range users {
		if err := s.flushUser(ctx, userID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Synchronizer) flushUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	if !ok || !sl.dirty {
		s.mu.Unlock()
		return nil
	}
	if sl.timer != nil {
		sl.timer.Stop()
		sl.timer = nil
	}
	s.nextGenLocked(sl)
	s.mu.Unlock()

	return s.takeAndWrite(ctx, userID, 0)
}

func (s *Synchronizer) fire(userID string, gen uint64) {
	err := s.takeAndWrite(context.Background(), userID, gen)
	if err != nil && s.onError != nil {
		s.onError(userID, err)
	}
}

// takeAndWrite waits for the user's slot to be free, then writes the latest
// dirty record. A non-zero gen must still match the slot, otherwise a newer
// timer owns the write.
func (s *Synchronizer) takeAndWrite(ctx context.Context, userID string, gen uint64) error {
	s.mu.Lock()
	sl, ok := s.slots[userID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	sl.waiters++
	for sl.inFlight {
		s.cond.Wait()
	}
	sl.waiters--
	if !sl.dirty || (gen != 0 && sl.gen != gen) {
		s.releaseLocked(userID, sl)
		s.mu.Unlock()
		return nil
	}
	record, coalesced := sl.record, sl.coalesced
	sl.dirty = false
	sl.coalesced = 0
	sl.timer = nil
	sl.inFlight = true
	s.mu.Unlock()

	err := s.write(ctx, userID, record, coalesced)

	s.mu.Lock()
	sl.inFlight = false
	s.releaseLocked(userID, sl)
	s.cond.Broadcast()
	s.mu.Unlock()
	return err
}

func (s *Synchronizer) exclusive(userID string, fn func() error) error {
	s.mu.Lock()
	sl := s.slotLocked(userID)
	sl.waiters++
	for sl.inFlight {
		s.cond.Wait()
	}
	sl.waiters--
	sl.inFlight = true
	s.mu.Unlock()

	err := fn()

	s.mu.Lock()
	sl.inFlight = false
	s.releaseLocked(userID, sl)
	s.cond.Broadcast()
	s.mu.Unlock()
	return err
}

func (s *Synchronizer) write(ctx context.Context, userID string, record progression.Record, coalesced int) error {
	record.Timestamp = s.clock.Now().UTC()
	if err := s.repo.Put(ctx, userID, record); err != nil {
		s.recordSave(false, coalesced)
		s.logger.ErrorContext(ctx, "save failed", "user_id", userID, "op", "save", "error", err)
		return &StorageError{Op: "save", UserID: userID, Err: err}
	}
	s.recordSave(true, coalesced)
	s.logger.DebugContext(ctx, "saved", "user_id", userID, "coalesced", coalesced)
	return nil
}

func (s *Synchronizer) nextGenLocked(sl *slot) uint64 {
	s.seq++
	sl.gen = s.seq
	return sl.gen
}

func (s *Synchronizer) slotLocked(userID string) *slot {
	sl, ok := s.slots[userID]
	if !ok {
		sl = &slot{}
		s.slots[userID] = sl
	}
	return sl
}

func (s *Synchronizer) releaseLocked(userID string, sl *slot) {
	if sl.dirty || sl.inFlight || sl.waiters > 0 || sl.timer != nil {
		return
	}
	if s.slots[userID] == sl {
		delete(s.slots, userID)
	}
}

func (s *Synchronizer) recordSave(ok bool, coalesced int) {
	if s.metrics != nil {
		s.metrics.RecordSave(ok, coalesced)
	}
}

func (s *Synchronizer) recordLoad(found, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordLoad(found, ok)
	}
}
