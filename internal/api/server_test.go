package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"placestatus/internal/config"
	"placestatus/internal/db"
	"placestatus/internal/status"
)

// Tuesday.
var testNow = time.Date(2026, 1, 6, 15, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.NewDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := &config.PlacesConfig{
		Places: []config.PlaceConfig{
			{
				ID:             1,
				Name:           "을지로 국수집",
				OpeningHours:   "월-목: 11:00-14:00, 17:00-21:00 (브레이크 14:00-17:00)",
				ClosedWeekdays: []int{0},
				IsActive:       true,
			},
			{ID: 2, Name: "심야 식당", OpeningHours: "22:00-02:00", IsActive: true},
		},
	}
	require.NoError(t, database.SyncPlacesFromConfig(context.Background(), cfg))
	return database
}

func newTestServer(t *testing.T, store Store, opts Options) *HTTPServer {
	t.Helper()
	logger := zerolog.Nop()
	s := NewHTTPServer(store, status.NewEvaluator(status.DefaultThresholds()), opts, &logger)
	s.now = func() time.Time { return testNow }
	return s
}

func do(t *testing.T, s *HTTPServer, method, target string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func atQuery(t time.Time) string {
	return url.Values{"at": {t.Format(time.RFC3339)}}.Encode()
}

func TestHandlePlaces(t *testing.T) {
	s := newTestServer(t, newTestStore(t), Options{})

	rec := do(t, s, http.MethodGet, "/api/v1/places", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp []PlaceStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	assert.Equal(t, "을지로 국수집", resp[0].Name)
	assert.Equal(t, status.KindOnBreak, resp[0].Status)
	assert.Equal(t, "브레이크 타임 · 17:00에 영업 재개", resp[0].Message)
	require.NotNil(t, resp[0].NextOpenTime)
	assert.Equal(t, "17:00", resp[0].NextOpenTime.String())

	assert.Equal(t, status.KindClosedForDay, resp[1].Status)
	assert.False(t, resp[1].IsOpen)
}

func TestHandlePlaceStatus(t *testing.T) {
	s := newTestServer(t, newTestStore(t), Options{})

	t.Run("live clock", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/v1/places/1/status", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp PlaceStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.PlaceID)
		assert.Equal(t, status.KindOnBreak, resp.Status)
		assert.Equal(t, testNow.Format(time.RFC3339), resp.EvaluatedAt)
	})

	t.Run("closed weekday", func(t *testing.T) {
		sunday := time.Date(2026, 1, 4, 12, 0, 0, 0, time.Local)
		rec := do(t, s, http.MethodGet, "/api/v1/places/1/status?"+atQuery(sunday), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp PlaceStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, status.KindClosedForDay, resp.Status)
		assert.Equal(t, "오늘 휴무 (정기휴무)", resp.Message)
	})

	t.Run("wrapping range after midnight", func(t *testing.T) {
		at := time.Date(2026, 1, 7, 1, 0, 0, 0, time.Local)
		rec := do(t, s, http.MethodGet, "/api/v1/places/2/status?"+atQuery(at), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp PlaceStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, status.KindOpen, resp.Status)
		assert.True(t, resp.IsOpen)
	})

	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"bad id", "/api/v1/places/abc/status", http.StatusBadRequest},
		{"zero id", "/api/v1/places/0/status", http.StatusBadRequest},
		{"unknown place", "/api/v1/places/99/status", http.StatusNotFound},
		{"bad at", "/api/v1/places/1/status?at=yesterday", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, nil, nil)
			assert.Equal(t, tt.code, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandlePlaceHours(t *testing.T) {
	s := newTestServer(t, newTestStore(t), Options{})

	rec := do(t, s, http.MethodGet, "/api/v1/places/1/hours", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HoursResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Days, 7)

	assert.Equal(t, "월", resp.Days[0].Weekday)
	assert.Equal(t, 1, resp.Days[0].DayOfWeek)
	require.Len(t, resp.Days[0].OpenRanges, 2)
	assert.Equal(t, "17:00-21:00", resp.Days[0].OpenRanges[1].String())
	require.NotNil(t, resp.Days[0].Break)

	assert.Equal(t, "일", resp.Days[6].Weekday)
	assert.Empty(t, resp.Days[6].OpenRanges)
	assert.Contains(t, rec.Body.String(), `"open_ranges":[]`)
}

func TestHandlePlaceReport(t *testing.T) {
	s := newTestServer(t, newTestStore(t), Options{})

	rec := do(t, s, http.MethodGet, "/api/v1/places/1/report.xlsx?week_of=2026-01-07", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "place-1-2026-01-05.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "주간 현황")

	rec = do(t, s, http.MethodGet, "/api/v1/places/1/report.xlsx?week_of=next", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEvaluate(t *testing.T) {
	s := newTestServer(t, newTestStore(t), Options{})
	monday := time.Date(2026, 1, 5, 20, 30, 0, 0, time.Local)

	monIdx := 1
	sunIdx := 0
	tests := []struct {
		name    string
		req     EvaluateRequest
		code    int
		kind    status.Kind
		message string
	}{
		{
			name:    "closing soon",
			req:     EvaluateRequest{OpeningHours: "11:00-21:00", At: monday.Format(time.RFC3339)},
			code:    http.StatusOK,
			kind:    status.KindClosingSoon,
			message: "21:00에 영업 종료 (30분 후)",
		},
		{
			name: "closed weekday",
			req: EvaluateRequest{
				OpeningHours: "11:00-21:00",
				ClosedDays:   []ClosedDayRequest{{DayOfWeek: &monIdx, Note: "정기휴무"}},
				At:           monday.Format(time.RFC3339),
			},
			code:    http.StatusOK,
			kind:    status.KindClosedForDay,
			message: "오늘 휴무 (정기휴무)",
		},
		{
			name: "closed date",
			req: EvaluateRequest{
				OpeningHours: "11:00-21:00",
				ClosedDays:   []ClosedDayRequest{{SpecificDate: "2026-01-05"}},
				At:           monday.Format(time.RFC3339),
			},
			code:    http.StatusOK,
			kind:    status.KindClosedForDay,
			message: "오늘 휴무",
		},
		{
			name: "weekday and date on one rule",
			req: EvaluateRequest{
				OpeningHours: "11:00-21:00",
				ClosedDays:   []ClosedDayRequest{{DayOfWeek: &sunIdx, SpecificDate: "2026-01-05", Note: "임시 휴무"}},
				At:           monday.Format(time.RFC3339),
			},
			code:    http.StatusOK,
			kind:    status.KindClosedForDay,
			message: "오늘 휴무 (임시 휴무)",
		},
		{
			name:    "no hours",
			req:     EvaluateRequest{At: monday.Format(time.RFC3339)},
			code:    http.StatusOK,
			kind:    status.KindUnspecified,
			message: "영업시간 정보 없음",
		},
		{
			name: "empty closure rule",
			req:  EvaluateRequest{OpeningHours: "11:00-21:00", ClosedDays: []ClosedDayRequest{{Note: "?"}}},
			code: http.StatusBadRequest,
		},
		{
			name: "bad date",
			req:  EvaluateRequest{OpeningHours: "11:00-21:00", ClosedDays: []ClosedDayRequest{{SpecificDate: "5 Jan"}}},
			code: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.req)
			require.NoError(t, err)

			rec := do(t, s, http.MethodPost, "/api/v1/status/evaluate", body, nil)
			require.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				return
			}
			var info status.PlaceStatusInfo
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
			assert.Equal(t, tt.kind, info.Status)
			assert.Equal(t, tt.message, info.Message)
		})
	}

	rec := do(t, s, http.MethodPost, "/api/v1/status/evaluate", []byte(`{"opening_hours": 5}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIKey(t *testing.T) {
	s := newTestServer(t, newTestStore(t), Options{APIKey: "secret"})

	rec := do(t, s, http.MethodGet, "/api/v1/places", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/places", nil, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/places", nil, map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, newTestStore(t), Options{RatePerSecond: 0.001, Burst: 1})

	rec := do(t, s, http.MethodGet, "/api/v1/places", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/places", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRequestIDPassthrough(t *testing.T) {
	s := newTestServer(t, newTestStore(t), Options{})

	rec := do(t, s, http.MethodGet, "/api/v1/places", nil, map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestStatusCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := newTestStore(t)
	s := newTestServer(t, store, Options{Redis: rdb, CacheTTL: time.Minute})

	rec := do(t, s, http.MethodGet, "/api/v1/places/1/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, mr.Exists(statusKey(1, testNow)))

	require.NoError(t, store.UpdateOpeningHours(context.Background(), 1, "00:00-23:59"))

	rec = do(t, s, http.MethodGet, "/api/v1/places/1/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cached PlaceStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cached))
	assert.Equal(t, status.KindOnBreak, cached.Status)

	// Explicit instants bypass the cache.
	rec = do(t, s, http.MethodGet, "/api/v1/places/1/status?"+atQuery(testNow), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh PlaceStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.Equal(t, status.KindOpen, fresh.Status)

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(statusKey(1, testNow)))
}

func TestStatusKey(t *testing.T) {
	key := statusKey(7, time.Date(2026, 3, 9, 8, 5, 59, 0, time.Local))
	assert.True(t, strings.HasSuffix(key, ":7:202603090805"))
}
