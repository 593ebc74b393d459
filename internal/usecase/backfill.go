package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/V4T54L/honeytail/internal/domain"
)

// ErrRemoteDisabled is returned by Backfill when there is no remote store to fill.
var ErrRemoteDisabled = errors.New("remote sink is disabled")

// BackfillResult summarises a journal replay.
type BackfillResult struct {
	Replayed int
	Failed   int
}

// BackfillUseCase replays the local journal into the remote store. Writes are
// idempotent on event_id, so replaying an already shipped journal is safe.
type BackfillUseCase struct {
	journal domain.EventJournal
	remote  domain.RemoteSink
	logger  *slog.Logger
}

// NewBackfillUseCase creates a new BackfillUseCase.
func NewBackfillUseCase(journal domain.EventJournal, remote domain.RemoteSink, logger *slog.Logger) *BackfillUseCase {
	return &BackfillUseCase{journal: journal, remote: remote, logger: logger}
}

// Backfill upserts every journaled event. A failed upsert is counted and the
// replay continues; the next event triggers a fresh reconnect.
func (uc *BackfillUseCase) Backfill(ctx context.Context) (BackfillResult, error) {
	var res BackfillResult
	if !uc.remote.Enabled() {
		return res, ErrRemoteDisabled
	}

	err := uc.journal.Replay(ctx, func(event domain.NormalizedEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if event.EventID == "" {
			AssignEventID(&event)
		}
		res.Replayed++
		if err := uc.remote.Upsert(ctx, event); err != nil {
			res.Failed++
			uc.logger.Warn("failed to backfill event", "event_id", event.EventID, "error", err)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	uc.logger.Info("backfill completed", "replayed", res.Replayed, "failed", res.Failed)
	return res, nil
}
