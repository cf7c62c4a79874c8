package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"placestatus/internal/db"
	"placestatus/internal/status"
)

// Store is the subset of the database the API reads.
type Store interface {
	GetPlace(ctx context.Context, id int64) (*db.Place, error)
	ListActivePlaces(ctx context.Context) ([]db.Place, error)
	ClosedDayRules(ctx context.Context, placeID int64) ([]status.ClosedDayRule, error)
	ListClosedDays(ctx context.Context, placeID int64) ([]db.ClosedDay, error)
	AddClosedDay(ctx context.Context, c *db.ClosedDay) error
	DeleteClosedDay(ctx context.Context, placeID, id int64) error
	UpdateOpeningHours(ctx context.Context, id int64, openingHours string) error
}

// Options configures an HTTPServer.
type Options struct {
	Addr          string
	APIKey        string
	RatePerSecond float64
	Burst         int
	CacheTTL      time.Duration
	Redis         *redis.Client
}

// HTTPServer serves place status over JSON.
type HTTPServer struct {
	store     Store
	evaluator *status.Evaluator
	cache     *statusCache
	limiter   *rate.Limiter
	apiKey    string
	logger    *zerolog.Logger
	now       func() time.Time
	server    *http.Server
}

// NewHTTPServer wires routes and middleware. A zero RatePerSecond disables rate limiting.
func NewHTTPServer(store Store, evaluator *status.Evaluator, opts Options, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		store:     store,
		evaluator: evaluator,
		cache:     newStatusCache(opts.Redis, opts.CacheTTL),
		apiKey:    opts.APIKey,
		logger:    logger,
		now:       time.Now,
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RatePerSecond) + 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/places", s.handlePlaces)
	mux.HandleFunc("GET /api/v1/places/{id}/status", s.handlePlaceStatus)
	mux.HandleFunc("GET /api/v1/places/{id}/hours", s.handlePlaceHours)
	mux.HandleFunc("PUT /api/v1/places/{id}/hours", s.handleUpdateHours)
	mux.HandleFunc("GET /api/v1/places/{id}/closed-days", s.handleClosedDays)
	mux.HandleFunc("POST /api/v1/places/{id}/closed-days", s.handleAddClosedDay)
	mux.HandleFunc("DELETE /api/v1/places/{id}/closed-days/{cid}", s.handleDeleteClosedDay)
	mux.HandleFunc("GET /api/v1/places/{id}/report.xlsx", s.handlePlaceReport)
	mux.HandleFunc("POST /api/v1/status/evaluate", s.handleEvaluate)

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.withRequestLog(s.withAPIKey(s.withRateLimit(mux))),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler including middleware.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
