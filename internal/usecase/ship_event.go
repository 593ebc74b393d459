package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/V4T54L/honeytail/internal/adapter/metrics"
	"github.com/V4T54L/honeytail/internal/domain"
)

// ShipEventUseCase drives one source line through parse, normalize, filter,
// identify, journal and remote upsert, in that order.
type ShipEventUseCase struct {
	journal domain.EventJournal
	remote  domain.RemoteSink
	feed    domain.EventPublisher
	logger  *slog.Logger
	metrics *metrics.ShipperMetrics
}

// NewShipEventUseCase creates a new ShipEventUseCase. feed and m may be nil.
func NewShipEventUseCase(journal domain.EventJournal, remote domain.RemoteSink, feed domain.EventPublisher, logger *slog.Logger, m *metrics.ShipperMetrics) *ShipEventUseCase {
	return &ShipEventUseCase{
		journal: journal,
		remote:  remote,
		feed:    feed,
		logger:  logger,
		metrics: m,
	}
}

// Run pulls lines from source until ctx is cancelled. It returns nil on
// cancellation and a non-nil error only when the source or the journal fails.
func (uc *ShipEventUseCase) Run(ctx context.Context, source domain.LineSource) error {
	for {
		line, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read source line: %w", err)
		}
		if err := uc.Process(ctx, line); err != nil {
			return err
		}
	}
}

// Process ships a single line. Malformed and filtered lines are dropped
// silently. Only journal failures are returned.
func (uc *ShipEventUseCase) Process(ctx context.Context, line string) error {
	uc.logger.Debug("line received", "line", line)

	raw, err := ParseRecord(line)
	if err != nil {
		uc.countLine("malformed")
		uc.logger.Debug("skipping malformed line", "error", err)
		return nil
	}

	event := Normalize(raw)
	if !Accept(event) {
		uc.countLine("filtered")
		return nil
	}
	uc.countLine("accepted")
	AssignEventID(&event)

	if err := uc.journal.Append(ctx, event); err != nil {
		return fmt.Errorf("failed to journal event %s: %w", event.EventID, err)
	}
	if uc.metrics != nil {
		uc.metrics.EventsJournaled.Inc()
	}

	uc.logger.Info("event shipped",
		"event_id", event.EventID,
		"attack_type", event.AttackType,
		"src_ip", event.SrcIP,
		"dst_port", event.DstPort,
	)

	if uc.feed != nil {
		uc.feed.Publish(event)
	}

	if uc.remote.Enabled() {
		if err := uc.remote.Upsert(ctx, event); err != nil {
			uc.logger.Warn("remote upsert failed, event kept in local journal only", "event_id", event.EventID, "error", err)
		}
	}
	return nil
}

// ParseRecord decodes one JSON object line. Numbers are kept as json.Number
// so that they round-trip verbatim.
func ParseRecord(line string) (domain.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.UseNumber()

	var raw domain.RawRecord
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("line is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON object")
	}
	return raw, nil
}

func (uc *ShipEventUseCase) countLine(status string) {
	if uc.metrics != nil {
		uc.metrics.LinesTotal.WithLabelValues(status).Inc()
	}
}
