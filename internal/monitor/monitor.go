package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"placestatus/internal/db"
	"placestatus/internal/events"
	"placestatus/internal/metrics"
	"placestatus/internal/status"
)

// Store is the subset of the database the monitor reads.
type Store interface {
	ListActivePlaces(ctx context.Context) ([]db.Place, error)
	ClosedDayRules(ctx context.Context, placeID int64) ([]status.ClosedDayRule, error)
}

// Monitor periodically evaluates every active place and publishes an event
// whenever a place's status differs from the previous sweep.
type Monitor struct {
	store     Store
	evaluator *status.Evaluator
	bus       *events.EventBus
	logger    *zerolog.Logger
	interval  time.Duration
	now       func() time.Time

	mu   sync.Mutex
	last map[int64]status.Kind
}

// New creates a monitor. A zero interval defaults to one minute.
func New(store Store, evaluator *status.Evaluator, bus *events.EventBus, interval time.Duration, logger *zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Monitor{
		store:     store,
		evaluator: evaluator,
		bus:       bus,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
		last:      make(map[int64]status.Kind),
	}
}

// Start sweeps immediately and then on every tick until ctx is done.
func (m *Monitor) Start(ctx context.Context) {
	m.logger.Info().Dur("interval", m.interval).Msg("status monitor started")

	if _, err := m.Sweep(ctx); err != nil {
		m.logger.Error().Err(err).Msg("status sweep failed")
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("status monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Error().Err(err).Msg("status sweep failed")
			}
		}
	}
}

// Sweep evaluates all active places once and returns the number of status changes.
// The first observation of a place is recorded without an event.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	places, err := m.store.ListActivePlaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("list places: %w", err)
	}

	now := m.now()
	changes := 0

	for _, p := range places {
		rules, err := m.store.ClosedDayRules(ctx, p.ID)
		if err != nil {
			m.logger.Error().Err(err).Int64("place_id", p.ID).Msg("load closed days")
			continue
		}

		info := m.evaluator.Evaluate(p.OpeningHours, rules, now)

		m.mu.Lock()
		prev, seen := m.last[p.ID]
		m.last[p.ID] = info.Status
		m.mu.Unlock()

		if !seen || prev == info.Status {
			continue
		}
		changes++

		ev, err := events.NewEvent(events.TypePlaceStatusChanged, events.StatusChanged{
			PlaceID:  p.ID,
			Name:     p.Name,
			Previous: string(prev),
			Current:  string(info.Status),
			Message:  info.Message,
		}, now)
		if err != nil {
			return changes, err
		}
		if err := m.bus.Publish(ev); err != nil {
			m.logger.Warn().Err(err).Int64("place_id", p.ID).Msg("status change handler failed")
		}
	}

	return changes, nil
}

// Current returns the last observed status of a place.
func (m *Monitor) Current(placeID int64) (status.Kind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.last[placeID]
	return k, ok
}

// LogChanges subscribes a handler that logs transitions and counts them.
func LogChanges(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.TypePlaceStatusChanged, func(e events.Event) error {
		var p events.StatusChanged
		if err := e.Decode(&p); err != nil {
			return err
		}
		metrics.IncStatusChange(p.Current)
		logger.Info().
			Str("event_id", e.ID).
			Int64("place_id", p.PlaceID).
			Str("place", p.Name).
			Str("from", p.Previous).
			Str("to", p.Current).
			Msg(p.Message)
		return nil
	})
}
