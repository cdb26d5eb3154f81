package autosave

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stratmind/formulagraph/internal/preview"
	"github.com/stratmind/formulagraph/internal/serializer"
	"github.com/stratmind/formulagraph/internal/store"
	"github.com/stratmind/formulagraph/pkg/schema"
)

// Session is one open formula editing session. Satisfied by *graph.Store.
type Session interface {
	Formula() schema.Formula
	Revision() uint64
}

// SessionSource exposes the currently open sessions. Satisfied by the MCP
// server (avoids import cycle).
type SessionSource interface {
	ActiveSessions() []Session
}

// SnapshotLabel marks snapshots written by the scheduler, as opposed to
// snapshots the user requested by name.
const SnapshotLabel = "autosave"

// Scheduler periodically persists every open session whose formula changed
// since the last run. Unchanged sessions are skipped so idle editors do not
// pile up identical snapshots.
type Scheduler struct {
	store    store.Store
	sessions SessionSource
	schedule cron.Schedule
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex

	revMu    sync.Mutex
	lastRevs map[string]uint64 // formula ID -> revision at last snapshot
}

// NewScheduler creates a Scheduler from a standard 5-field cron expression.
func NewScheduler(s store.Store, sessions SessionSource, cronExpr string, logger *slog.Logger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse autosave cron expression %q: %w", cronExpr, err)
	}
	return &Scheduler{
		store:    s,
		sessions: sessions,
		schedule: schedule,
		logger:   logger,
		lastRevs: make(map[string]uint64),
	}, nil
}

// Start launches the background autosave loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("autosave scheduler already started")
	}

	saveCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(saveCtx)
	s.logger.Info("autosave scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.tick(ctx)
		}
	}
}

// tick snapshots every open session with unsaved changes.
func (s *Scheduler) tick(ctx context.Context) {
	saved := 0
	for _, session := range s.sessions.ActiveSessions() {
		ok, err := s.SnapshotOnce(ctx, session)
		if err != nil {
			s.logger.Error("autosave failed",
				slog.String("formula_id", session.Formula().ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok {
			saved++
		}
	}
	if saved > 0 {
		s.logger.Info("autosave completed", slog.Int("formulas", saved))
	}
}

// SnapshotOnce persists a single session if its revision advanced since the
// last snapshot. It returns false when the session had nothing new to save.
func (s *Scheduler) SnapshotOnce(ctx context.Context, session Session) (bool, error) {
	rev := session.Revision()
	f := session.Formula()

	s.revMu.Lock()
	last, seen := s.lastRevs[f.ID]
	s.revMu.Unlock()
	if seen && last == rev {
		return false, nil
	}

	doc, err := serializer.Marshal(&f)
	if err != nil {
		return false, fmt.Errorf("marshal formula %q: %w", f.ID, err)
	}

	now := time.Now().UTC()
	rec := &store.FormulaRecord{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Document:    doc,
		Complexity:  string(preview.Classify(&f)),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
	if err := s.store.SaveFormula(ctx, rec); err != nil {
		return false, err
	}

	snap := &store.Snapshot{
		FormulaID: f.ID,
		Label:     SnapshotLabel,
		Document:  doc,
		Revision:  rev,
		CreatedAt: now,
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return false, err
	}

	s.revMu.Lock()
	s.lastRevs[f.ID] = rev
	s.revMu.Unlock()

	s.logger.Debug("autosaved formula",
		slog.String("formula_id", f.ID),
		slog.Uint64("revision", rev),
	)
	return true, nil
}

// Forget drops the revision bookkeeping for a formula, typically after the
// session closes or the formula is deleted.
func (s *Scheduler) Forget(formulaID string) {
	s.revMu.Lock()
	defer s.revMu.Unlock()
	delete(s.lastRevs, formulaID)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("autosave scheduler stopped")
	return nil
}
