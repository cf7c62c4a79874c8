package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"placestatus/internal/db"
	"placestatus/internal/hours"
	"placestatus/internal/metrics"
	"placestatus/internal/report"
	"placestatus/internal/status"
)

const dateLayout = "2006-01-02"

type PlaceStatusResponse struct {
	PlaceID      int64  `json:"place_id"`
	Name         string `json:"name"`
	OpeningHours string `json:"opening_hours"`
	EvaluatedAt  string `json:"evaluated_at"`
	status.PlaceStatusInfo
}

type DayHours struct {
	DayOfWeek  int               `json:"day_of_week"`
	Weekday    string            `json:"weekday"`
	OpenRanges []hours.OpenRange `json:"open_ranges"`
	Break      *hours.BreakRange `json:"break,omitempty"`
}

type HoursResponse struct {
	PlaceID      int64      `json:"place_id"`
	OpeningHours string     `json:"opening_hours"`
	Days         []DayHours `json:"days"`
}

type ClosedDayRequest struct {
	DayOfWeek    *int   `json:"day_of_week,omitempty"`
	SpecificDate string `json:"specific_date,omitempty"`
	Note         string `json:"note,omitempty"`
}

type EvaluateRequest struct {
	OpeningHours string             `json:"opening_hours"`
	ClosedDays   []ClosedDayRequest `json:"closed_days"`
	At           string             `json:"at,omitempty"`
}

func (s *HTTPServer) handlePlaces(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("places")
	ctx := r.Context()

	now, err := s.evaluationTime(r.URL.Query().Get("at"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	places, err := s.store.ListActivePlaces(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("list places")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]PlaceStatusResponse, 0, len(places))
	for i := range places {
		item, err := s.placeStatus(r, &places[i], now)
		if err != nil {
			s.logger.Error().Err(err).Int64("place_id", places[i].ID).Msg("evaluate place")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handlePlaceStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("place_status")

	place, ok := s.lookupPlace(w, r)
	if !ok {
		return
	}
	now, err := s.evaluationTime(r.URL.Query().Get("at"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.placeStatus(r, place, now)
	if err != nil {
		s.logger.Error().Err(err).Int64("place_id", place.ID).Msg("evaluate place")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handlePlaceHours(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("place_hours")

	place, ok := s.lookupPlace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, hoursResponse(place))
}

// hoursResponse lists the parsed schedule Monday first.
func hoursResponse(place *db.Place) HoursResponse {
	week := hours.Describe(place.OpeningHours)
	resp := HoursResponse{PlaceID: place.ID, OpeningHours: place.OpeningHours}
	for i := 0; i < 7; i++ {
		d := time.Weekday((i + 1) % 7)
		day := week[d]
		ranges := day.OpenRanges
		if ranges == nil {
			ranges = []hours.OpenRange{}
		}
		resp.Days = append(resp.Days, DayHours{
			DayOfWeek:  int(d),
			Weekday:    hours.WeekdayToken(d),
			OpenRanges: ranges,
			Break:      day.Break,
		})
	}
	return resp
}

func (s *HTTPServer) handlePlaceReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("place_report")
	ctx := r.Context()

	place, ok := s.lookupPlace(w, r)
	if !ok {
		return
	}

	weekOf := s.now()
	if v := r.URL.Query().Get("week_of"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid week_of")
			return
		}
		weekOf = t
	}

	rules, err := s.store.ClosedDayRules(ctx, place.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("place_id", place.ID).Msg("load closed days")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	filename := fmt.Sprintf("place-%d-%s.xlsx", place.ID, report.WeekStart(weekOf).Format(dateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	rp := report.Place{Name: place.Name, OpeningHours: place.OpeningHours, ClosedDays: rules}
	if err := report.WriteWeekly(w, s.evaluator, rp, weekOf, 0); err != nil {
		s.logger.Error().Err(err).Int64("place_id", place.ID).Msg("write weekly report")
	}
}

func (s *HTTPServer) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("evaluate")

	var req EvaluateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	now, err := s.evaluationTime(req.At)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rules, err := closedDayRules(req.ClosedDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info := s.evaluator.Evaluate(req.OpeningHours, rules, now)
	metrics.IncEvaluation(string(info.Status))
	writeJSON(w, http.StatusOK, info)
}

func (s *HTTPServer) lookupPlace(w http.ResponseWriter, r *http.Request) (*db.Place, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid place id")
		return nil, false
	}
	place, err := s.store.GetPlace(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "place not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("place_id", id).Msg("get place")
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return place, true
}

// placeStatus evaluates one place, consulting the cache only for the live clock.
func (s *HTTPServer) placeStatus(r *http.Request, place *db.Place, now time.Time) (PlaceStatusResponse, error) {
	ctx := r.Context()
	resp := PlaceStatusResponse{
		PlaceID:      place.ID,
		Name:         place.Name,
		OpeningHours: place.OpeningHours,
		EvaluatedAt:  now.Format(time.RFC3339),
	}

	live := r.URL.Query().Get("at") == ""
	key := statusKey(place.ID, now)
	if live && s.cache.get(ctx, key, &resp.PlaceStatusInfo) {
		return resp, nil
	}

	rules, err := s.store.ClosedDayRules(ctx, place.ID)
	if err != nil {
		return resp, fmt.Errorf("load closed days: %w", err)
	}
	resp.PlaceStatusInfo = s.evaluator.Evaluate(place.OpeningHours, rules, now)
	metrics.IncEvaluation(string(resp.Status))

	if live {
		s.cache.set(ctx, key, resp.PlaceStatusInfo)
	}
	return resp, nil
}

func (s *HTTPServer) evaluationTime(at string) (time.Time, error) {
	if at == "" {
		return s.now(), nil
	}
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, errors.New("invalid at: expected RFC3339")
	}
	return t.In(time.Local), nil
}

func closedDayRules(in []ClosedDayRequest) ([]status.ClosedDayRule, error) {
	rules := make([]status.ClosedDayRule, 0, len(in))
	for i, c := range in {
		rule, err := c.rule()
		if err != nil {
			return nil, fmt.Errorf("closed_days[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// rule converts the request into a closure. When both fields are set the
// closure applies on either.
func (c ClosedDayRequest) rule() (status.ClosedDayRule, error) {
	if c.DayOfWeek == nil && c.SpecificDate == "" {
		return status.ClosedDayRule{}, errors.New("day_of_week or specific_date required")
	}

	rule := status.ClosedDayRule{Note: c.Note}
	if c.DayOfWeek != nil {
		if *c.DayOfWeek < 0 || *c.DayOfWeek > 6 {
			return status.ClosedDayRule{}, errors.New("day_of_week must be 0-6")
		}
		d := time.Weekday(*c.DayOfWeek)
		rule.DayOfWeek = &d
	}
	if c.SpecificDate != "" {
		t, err := time.ParseInLocation(dateLayout, c.SpecificDate, time.Local)
		if err != nil {
			return status.ClosedDayRule{}, errors.New("invalid specific_date, expected YYYY-MM-DD")
		}
		rule.SpecificDate = &t
	}
	return rule, nil
}
