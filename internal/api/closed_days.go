package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"placestatus/internal/db"
	"placestatus/internal/metrics"
)

// ClosedDayResponse is a stored closure of a place.
type ClosedDayResponse struct {
	ID           int64  `json:"id"`
	PlaceID      int64  `json:"place_id"`
	DayOfWeek    *int   `json:"day_of_week,omitempty"`
	SpecificDate string `json:"specific_date,omitempty"`
	Note         string `json:"note,omitempty"`
	Source       string `json:"source"`
}

type UpdateHoursRequest struct {
	OpeningHours string `json:"opening_hours"`
}

func closedDayResponse(c db.ClosedDay) ClosedDayResponse {
	resp := ClosedDayResponse{ID: c.ID, PlaceID: c.PlaceID, Note: c.Note, Source: c.Source}
	if c.DayOfWeek != nil {
		d := int(*c.DayOfWeek)
		resp.DayOfWeek = &d
	}
	if c.SpecificDate != nil {
		resp.SpecificDate = c.SpecificDate.Format(dateLayout)
	}
	return resp
}

// handleClosedDays lists config and manual closures of a place.
// GET /api/v1/places/{id}/closed-days
func (s *HTTPServer) handleClosedDays(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("closed_days")

	place, ok := s.lookupPlace(w, r)
	if !ok {
		return
	}

	days, err := s.store.ListClosedDays(r.Context(), place.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("place_id", place.ID).Msg("list closed days")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]ClosedDayResponse, 0, len(days))
	for _, c := range days {
		resp = append(resp, closedDayResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAddClosedDay adds a manual closure. Manual closures survive places.yaml reloads.
// POST /api/v1/places/{id}/closed-days
func (s *HTTPServer) handleAddClosedDay(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("add_closed_day")

	place, ok := s.lookupPlace(w, r)
	if !ok {
		return
	}

	var req ClosedDayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	rule, err := req.rule()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := &db.ClosedDay{
		PlaceID:      place.ID,
		DayOfWeek:    rule.DayOfWeek,
		SpecificDate: rule.SpecificDate,
		Note:         rule.Note,
		Source:       db.SourceManual,
	}
	if err := s.store.AddClosedDay(r.Context(), c); err != nil {
		s.logger.Error().Err(err).Int64("place_id", place.ID).Msg("add closed day")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.invalidatePlace(r, place.ID)
	s.logger.Info().Int64("place_id", place.ID).Int64("closed_day_id", c.ID).Msg("closed day added")
	writeJSON(w, http.StatusCreated, closedDayResponse(*c))
}

// handleDeleteClosedDay removes a manual closure. Config closures are managed by places.yaml.
// DELETE /api/v1/places/{id}/closed-days/{cid}
func (s *HTTPServer) handleDeleteClosedDay(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("delete_closed_day")

	place, ok := s.lookupPlace(w, r)
	if !ok {
		return
	}
	cid, err := strconv.ParseInt(r.PathValue("cid"), 10, 64)
	if err != nil || cid <= 0 {
		writeError(w, http.StatusBadRequest, "invalid closed day id")
		return
	}

	err = s.store.DeleteClosedDay(r.Context(), place.ID, cid)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "manual closed day not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("place_id", place.ID).Int64("closed_day_id", cid).Msg("delete closed day")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.invalidatePlace(r, place.ID)
	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateHours replaces the opening-hours text of a place until the next
// places.yaml reload.
// PUT /api/v1/places/{id}/hours
func (s *HTTPServer) handleUpdateHours(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update_hours")

	place, ok := s.lookupPlace(w, r)
	if !ok {
		return
	}

	var req UpdateHoursRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	text := strings.TrimSpace(req.OpeningHours)

	err := s.store.UpdateOpeningHours(r.Context(), place.ID, text)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "place not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("place_id", place.ID).Msg("update opening hours")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.invalidatePlace(r, place.ID)
	place.OpeningHours = text
	writeJSON(w, http.StatusOK, hoursResponse(place))
}

func (s *HTTPServer) invalidatePlace(r *http.Request, placeID int64) {
	if _, err := s.cache.invalidate(r.Context(), placeID); err != nil {
		s.logger.Warn().Err(err).Int64("place_id", placeID).Msg("invalidate status cache")
	}
}
