package monitor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placestatus/internal/db"
	"placestatus/internal/events"
	"placestatus/internal/status"
)

type fakeStore struct {
	places []db.Place
	closed map[int64][]status.ClosedDayRule
	err    error
}

func (f *fakeStore) ListActivePlaces(context.Context) ([]db.Place, error) {
	return f.places, f.err
}

func (f *fakeStore) ClosedDayRules(_ context.Context, placeID int64) ([]status.ClosedDayRule, error) {
	return f.closed[placeID], nil
}

func TestMonitor_Sweep(t *testing.T) {
	store := &fakeStore{
		places: []db.Place{
			{ID: 1, Name: "국수집", OpeningHours: "09:00-22:00"},
			{ID: 2, Name: "휴무 가게", OpeningHours: "09:00-22:00"},
		},
		closed: map[int64][]status.ClosedDayRule{
			2: {status.ClosedOnWeekday(time.Tuesday, "")},
		},
	}
	bus := events.NewEventBus()
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	LogChanges(bus, &logger)

	var changes []events.StatusChanged
	bus.Subscribe(events.TypePlaceStatusChanged, func(e events.Event) error {
		var p events.StatusChanged
		require.NoError(t, e.Decode(&p))
		changes = append(changes, p)
		return nil
	})

	m := New(store, status.NewEvaluator(status.DefaultThresholds()), bus, time.Minute, &logger)
	clock := time.Date(2026, 1, 6, 20, 0, 0, 0, time.Local)
	m.now = func() time.Time { return clock }

	n, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	k, ok := m.Current(1)
	require.True(t, ok)
	assert.Equal(t, status.KindOpen, k)

	clock = clock.Add(75 * time.Minute)
	n, err = m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, changes, 1)
	assert.Equal(t, int64(1), changes[0].PlaceID)
	assert.Equal(t, "open", changes[0].Previous)
	assert.Equal(t, "closing_soon", changes[0].Current)
	assert.Contains(t, logs.String(), `"to":"closing_soon"`)

	k, _ = m.Current(2)
	assert.Equal(t, status.KindClosedForDay, k)
}

func TestMonitor_SweepStoreError(t *testing.T) {
	logger := zerolog.Nop()
	m := New(&fakeStore{err: errors.New("db down")}, status.NewEvaluator(status.DefaultThresholds()), events.NewEventBus(), 0, &logger)
	_, err := m.Sweep(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Equal(t, time.Minute, m.interval)
}
