// Package control is the ingestion worker's control surface (spec §6):
// /health, /subscriptions, /subscribe, /unsubscribe. Grounded on
// aristath-sentinel/internal/server/server.go's chi/cors router setup
// (middleware stack, CORS options) and
// aristath-sentinel/internal/server/system_handlers.go's use of
// github.com/shirou/gopsutil/v3/mem for the health endpoint's memory field,
// cut down from that file's full system/CPU/directory-size reporting to
// just the memory figure the spec's health shape names.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/wavepilot/ingest/internal/model"
	"github.com/wavepilot/ingest/pkg/version"
)

// Feed is the subset of fastfeed.Feed / delayedfeed.Feed the control
// surface needs: subscribe/unsubscribe and a status snapshot (spec §6).
type Feed interface {
	Subscribe(ctx context.Context, tickers ...string)
	Unsubscribe(ctx context.Context, tickers ...string)
	Status() (connected bool, subscriptions []string)
}

// SchedulerStatus is the subset of scheduler.Scheduler the health endpoint
// and the subscribe handler need: a status snapshot plus the Stage-1
// backfill trigger for newly-subscribed symbols.
type SchedulerStatus interface {
	Status() (running bool, watchlist []string)
	BackfillHistory(ctx context.Context, symbols []string)
}

// Server is the control surface's HTTP server.
type Server struct {
	router *chi.Mux
	http   *http.Server
	log    zerolog.Logger

	fastFeed    Feed
	delayedFeed Feed
	scheduler   SchedulerStatus
	watchlist   *model.Watchlist
	startedAt   time.Time
}

// New builds a Server listening on port. fastFeed and delayedFeed mutate on
// /subscribe and /unsubscribe; watchlist is the shared ticker set they and
// the scheduler consult.
func New(port int, fastFeed, delayedFeed Feed, sched SchedulerStatus, watchlist *model.Watchlist, log zerolog.Logger) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		fastFeed:    fastFeed,
		delayedFeed: delayedFeed,
		scheduler:   sched,
		watchlist:   watchlist,
		log:         log.With().Str("component", "control").Logger(),
		startedAt:   time.Now(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/", s.handleHealth)
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/subscriptions", s.handleSubscriptions)
	s.router.Post("/subscribe", s.handleSubscribe)
	s.router.Post("/unsubscribe", s.handleUnsubscribe)

	s.http = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

// Start begins serving; it blocks until the server stops (spec §6's
// bootstrap ordering: the health server must be listening before TSWriter
// initialises).
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("control surface listening")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type feedStatus struct {
	Status        string   `json:"status"`
	Subscriptions []string `json:"subscriptions"`
}

type healthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Uptime    float64        `json:"uptime"`
	Memory    float64        `json:"memory"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	FastFeed    feedStatus      `json:"fastFeed"`
	DelayedFeed feedStatus      `json:"delayedFeed"`
	Scheduler   schedulerStatus `json:"scheduler"`
}

type schedulerStatus struct {
	Status    string   `json:"status"`
	Watchlist []string `json:"watchlist"`
}

func describeFeed(f Feed) feedStatus {
	if f == nil {
		return feedStatus{Status: "disabled"}
	}
	connected, subs := f.Status()
	status := "disconnected"
	if connected {
		status = "connected"
	}
	return feedStatus{Status: status, Subscriptions: subs}
}

// handleHealth implements GET /health (spec §6).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sched := schedulerStatus{Status: "disabled"}
	if s.scheduler != nil {
		running, watchlist := s.scheduler.Status()
		if running {
			sched.Status = "running"
		} else {
			sched.Status = "stopped"
		}
		sched.Watchlist = watchlist
	}

	memUsedPercent := 0.0
	if stat, err := mem.VirtualMemory(); err == nil {
		memUsedPercent = stat.UsedPercent
	} else {
		s.log.Warn().Err(err).Msg("failed to read memory statistics")
	}

	resp := healthResponse{
		Status:    "healthy",
		Version:   version.Version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startedAt).Seconds(),
		Memory:    memUsedPercent,
		Services: healthServices{
			FastFeed:    describeFeed(s.fastFeed),
			DelayedFeed: describeFeed(s.delayedFeed),
			Scheduler:   sched,
		},
	}

	writeJSON(w, http.StatusOK, resp)
}

type symbolsRequest struct {
	Symbols []string `json:"symbols"`
}

type subscriptionsResponse struct {
	Subscriptions []string `json:"subscriptions"`
}

// handleSubscriptions implements GET /subscriptions (spec §6): the current
// watchlist, independent of each feed's own per-connection subscription
// state.
func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, subscriptionsResponse{Subscriptions: s.watchlist.Tickers()})
}

type subscribeResponse struct {
	Success       bool     `json:"success"`
	Subscriptions []string `json:"subscriptions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleSubscribe implements POST /subscribe (spec §6): subscribes both
// feeds, adds to the watchlist, and kicks off async Stage-1 backfill
// for the newly added symbols (Stage-1 backfill itself lives in
// Scheduler.BackfillHistory; this handler only starts it).
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req symbolsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbols == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request: expected {symbols: string[]}"})
		return
	}

	symbols := make([]string, len(req.Symbols))
	for i, sym := range req.Symbols {
		symbols[i] = model.NormalizeTicker(sym)
	}

	ctx := r.Context()
	s.fastFeed.Subscribe(ctx, symbols...)
	s.delayedFeed.Subscribe(ctx, symbols...)
	added := s.watchlist.Add(symbols...)

	if s.scheduler != nil && len(added) > 0 {
		go s.scheduler.BackfillHistory(context.Background(), added)
	}

	writeJSON(w, http.StatusOK, subscribeResponse{Success: true, Subscriptions: s.watchlist.Tickers()})
}

// handleUnsubscribe implements POST /unsubscribe (spec §6).
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req symbolsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbols == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request: expected {symbols: string[]}"})
		return
	}

	ctx := r.Context()
	s.fastFeed.Unsubscribe(ctx, req.Symbols...)
	s.delayedFeed.Unsubscribe(ctx, req.Symbols...)
	s.watchlist.Remove(req.Symbols...)

	writeJSON(w, http.StatusOK, subscribeResponse{Success: true, Subscriptions: s.watchlist.Tickers()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
