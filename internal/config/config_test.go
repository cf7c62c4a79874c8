package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placestatus/internal/status"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "PLACESTATUS_TEST_KEY=from-dotenv\n")
	path := writeFile(t, dir, "config.yaml", `
database:
  path: `+filepath.Join(dir, "data", "test.db")+`
api:
  api_key: ${PLACESTATUS_TEST_KEY}
status:
  closing_soon_minutes: 45
`)
	t.Cleanup(func() { os.Unsetenv("PLACESTATUS_TEST_KEY") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.API.APIKey)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 8090, cfg.Monitoring.HealthCheckPort)
	assert.Equal(t, "configs/places.yaml", cfg.PlacesConfigPath)
	assert.DirExists(t, filepath.Join(dir, "data"))

	th := cfg.Thresholds()
	assert.Equal(t, 45*time.Minute, th.ClosingSoon)
	assert.Zero(t, th.OpeningSoon)
	assert.Equal(t, 30*time.Minute, status.NewEvaluator(th).Thresholds().OpeningSoon)

	assert.Equal(t, time.Minute, cfg.MonitorInterval())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.Equal(t, 14*24*time.Hour, cfg.BackupRetention())
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
database:
  path: `+filepath.Join(dir, "test.db")+`
status:
  opening_soon_minutes: -5
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "thresholds cannot be negative")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

const placesYAML = `
places:
  - id: 1
    name: 을지로 국수집
    opening_hours: "월-목: 11:00-14:00, 17:00-21:00 (브레이크 14:00-17:00)"
    closed_weekdays: [0]
    closed_dates:
      - date: "2026-02-17"
        note: 설날
    is_active: true
  - id: 2
    name: 심야 식당
    opening_hours: "22:00-02:00"
    is_active: false
  - id: 3
    name: 전화 문의
    opening_hours: "전화 문의"
    is_active: true
holidays:
  - date: "2026-01-01"
    name: 신정
`

func TestLoadPlacesConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "places.yaml", placesYAML)

	cfg, err := LoadPlacesConfig(path)
	require.NoError(t, err)

	assert.Len(t, cfg.Places, 3)
	assert.Len(t, cfg.GetActivePlaces(), 2)
	assert.Equal(t, "PlacesConfig: 3 places (2 active), 1 holidays", cfg.String())
	assert.Equal(t, []string{"전화 문의"}, cfg.UnparsedPlaces())

	p := cfg.GetPlaceByID(1)
	require.NotNil(t, p)
	assert.Nil(t, cfg.GetPlaceByID(42))

	rules := cfg.ClosedDays(p)
	require.Len(t, rules, 3)
	assert.True(t, rules[0].Matches(time.Date(2026, 1, 4, 12, 0, 0, 0, time.Local)))
	assert.True(t, rules[1].Matches(time.Date(2026, 2, 17, 9, 0, 0, 0, time.Local)))
	assert.Equal(t, "신정", rules[2].Note)
}

func TestPlacesConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PlacesConfig
		wantErr string
	}{
		{
			name:    "empty",
			cfg:     PlacesConfig{},
			wantErr: "no places defined",
		},
		{
			name:    "non positive id",
			cfg:     PlacesConfig{Places: []PlaceConfig{{ID: 0, Name: "a"}}},
			wantErr: "id must be positive",
		},
		{
			name:    "duplicate id",
			cfg:     PlacesConfig{Places: []PlaceConfig{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}},
			wantErr: "duplicate id 1",
		},
		{
			name:    "duplicate name",
			cfg:     PlacesConfig{Places: []PlaceConfig{{ID: 1, Name: "a"}, {ID: 2, Name: "a"}}},
			wantErr: "duplicate name 'a'",
		},
		{
			name:    "weekday out of range",
			cfg:     PlacesConfig{Places: []PlaceConfig{{ID: 1, Name: "a", ClosedWeekdays: []int{7}}}},
			wantErr: "must be 0-6",
		},
		{
			name:    "bad closed date",
			cfg:     PlacesConfig{Places: []PlaceConfig{{ID: 1, Name: "a", ClosedDates: []ClosedDateConfig{{Date: "01/02/2026"}}}}},
			wantErr: "expected YYYY-MM-DD",
		},
		{
			name: "bad holiday",
			cfg: PlacesConfig{
				Places:   []PlaceConfig{{ID: 1, Name: "a"}},
				Holidays: []HolidayConfig{{Date: ""}},
			},
			wantErr: "date is required",
		},
		{
			name: "free form hours are accepted",
			cfg:  PlacesConfig{Places: []PlaceConfig{{ID: 1, Name: "a", OpeningHours: "???"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPlacesWatcher_Poll(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "places.yaml", placesYAML)

	var updates []*PlacesConfig
	w := NewPlacesWatcher(path, time.Second)
	w.OnUpdate = func(cfg *PlacesConfig) { updates = append(updates, cfg) }

	changed, err := w.Poll()
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = w.Poll()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte("places: []\n"), 0o600))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	changed, err = w.Poll()
	assert.ErrorContains(t, err, "no places defined")
	assert.False(t, changed)
	assert.Len(t, updates, 1)
}
