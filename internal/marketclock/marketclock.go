// Package marketclock computes US equity market session state (spec §3).
// It is grounded on aristath-sentinel/trader-go/internal/scheduler/market_hours.go's
// ExchangeCalendar/TradingWindow shape, cut down from that file's ~20 world
// exchanges to the single US/Eastern calendar this spec targets, and wired
// to an upstream market-status API as the authoritative source with a
// time-of-day fallback, behind a 60s TTL cache (spec §3, §5).
package marketclock

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wavepilot/ingest/internal/massiveapi"
	"github.com/wavepilot/ingest/internal/model"
)

// TradingWindow is a half-open [open, close) clock-time window in a day,
// expressed as minutes since midnight in the calendar's zone.
type TradingWindow struct {
	OpenMinute  int
	CloseMinute int
}

func contains(w TradingWindow, minuteOfDay int) bool {
	return minuteOfDay >= w.OpenMinute && minuteOfDay < w.CloseMinute
}

// Calendar is the US/Eastern fallback calendar: earlyHours [04:00,09:30),
// isOpen [09:30,16:00), afterHours [16:00,20:00), weekends closed (spec §3).
type Calendar struct {
	Location *time.Location

	EarlyHours TradingWindow
	RegularDay TradingWindow
	AfterHours TradingWindow
}

// NewUSCalendar builds the fixed US/Eastern calendar the spec describes.
func NewUSCalendar() (*Calendar, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}
	return &Calendar{
		Location:   loc,
		EarlyHours: TradingWindow{OpenMinute: 4 * 60, CloseMinute: 9*60 + 30},
		RegularDay: TradingWindow{OpenMinute: 9*60 + 30, CloseMinute: 16 * 60},
		AfterHours: TradingWindow{OpenMinute: 16 * 60, CloseMinute: 20 * 60},
	}, nil
}

// StatusAt computes MarketStatus purely from time-of-day rules, with no
// network call and no holiday calendar (the spec defines only the weekday
// + clock-time fallback; a holiday table is not part of this spec's
// scope).
func (c *Calendar) StatusAt(t time.Time) model.MarketStatus {
	local := t.In(c.Location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return model.MarketStatus{}
	}
	minuteOfDay := local.Hour()*60 + local.Minute()

	return model.MarketStatus{
		EarlyHours: contains(c.EarlyHours, minuteOfDay),
		IsOpen:     contains(c.RegularDay, minuteOfDay),
		AfterHours: contains(c.AfterHours, minuteOfDay),
	}
}

// Service serves MarketStatus, preferring the upstream market-status API
// and falling back to the Calendar's time-of-day rules on any upstream
// error, behind a 60s TTL cache (spec §3, §5's "market-status cache"
// shared-state entry).
type Service struct {
	calendar *Calendar
	upstream *massiveapi.Client
	ttl      time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	cached   model.MarketStatus
	cachedAt time.Time
}

// NewService builds a Service. upstream may be nil, in which case the
// calendar fallback is always used.
func NewService(calendar *Calendar, upstream *massiveapi.Client, log zerolog.Logger) *Service {
	return &Service{
		calendar: calendar,
		upstream: upstream,
		ttl:      60 * time.Second,
		log:      log.With().Str("component", "marketclock").Logger(),
	}
}

// Status returns the current MarketStatus, using the cache when fresh.
func (s *Service) Status(ctx context.Context) model.MarketStatus {
	s.mu.Lock()
	if time.Since(s.cachedAt) < s.ttl {
		status := s.cached
		s.mu.Unlock()
		return status
	}
	s.mu.Unlock()

	status := s.fetch(ctx)

	s.mu.Lock()
	s.cached = status
	s.cachedAt = time.Now()
	s.mu.Unlock()

	return status
}

func (s *Service) fetch(ctx context.Context) model.MarketStatus {
	if s.upstream != nil {
		if resp, err := s.upstream.GetMarketStatus(ctx); err == nil {
			return model.MarketStatus{
				IsOpen:     resp.Market == "open",
				EarlyHours: resp.EarlyHours,
				AfterHours: resp.AfterHours,
			}
		} else {
			s.log.Warn().Err(err).Msg("market status upstream call failed, falling back to calendar rules")
		}
	}
	return s.calendar.StatusAt(time.Now())
}
