package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pricelens/pricelens/internal/domain"
)

// Event is the envelope published for every insight change: to the signal
// bus channel and stream, the websocket hub, and the alert sinks.
type Event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Payload any       `json:"payload,omitempty"`
}

// Event types emitted by the watcher.
const (
	EventSnapshot     = "snapshot"
	EventPriceDrop    = "price_drop"
	EventPriceSpike   = "price_spike"
	EventNewLow       = "new_low"
	EventStaleSource  = "stale_source"
	EventScrapeFailed = "scrape_failed"
)

// Broadcaster pushes a payload to connected clients. The websocket hub
// implements it.
type Broadcaster interface {
	Broadcast(data []byte)
}

// AlertSink forwards filtered events to operators. The notifier implements
// it.
type AlertSink interface {
	Notify(ctx context.Context, event, title, message string) error
}

// WatcherConfig holds the poller parameters.
type WatcherConfig struct {
	Interval time.Duration
	Channel  string
	Stream   string
}

// Watcher recomputes the snapshot on an interval and fans the changes out.
// The engines stay pull-based; the watcher is just a caller that remembers
// what it has already announced.
type Watcher struct {
	insights *InsightService
	bus      domain.SignalBus
	hub      Broadcaster
	alerts   AlertSink
	cfg      WatcherConfig
	logger   *slog.Logger

	// announced dedupes alert-worthy findings across ticks.
	announced map[string]bool
}

// NewWatcher creates a Watcher. bus, hub and alerts may each be nil; the
// watcher skips the missing outputs.
func NewWatcher(
	insights *InsightService,
	bus domain.SignalBus,
	hub Broadcaster,
	alerts AlertSink,
	cfg WatcherConfig,
	logger *slog.Logger,
) *Watcher {
	return &Watcher{
		insights:  insights,
		bus:       bus,
		hub:       hub,
		alerts:    alerts,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "watcher")),
		announced: make(map[string]bool),
	}
}

// Run polls until the context is cancelled. The first tick fires
// immediately.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher started", slog.Duration("interval", w.cfg.Interval))

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := w.tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A broken store read is worth retrying next tick, not dying over.
			w.logger.ErrorContext(ctx, "watcher tick failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) tick(ctx context.Context) error {
	snap, err := w.insights.Snapshot(ctx)
	if err != nil {
		return err
	}

	w.emit(ctx, Event{
		Type:    EventSnapshot,
		At:      snap.GeneratedAt,
		Title:   "Insights snapshot",
		Message: summaryLine(snap.Summary),
		Payload: snap.Summary,
	}, false)

	for _, m := range snap.Movers.Drops {
		key := fmt.Sprintf("%s:%s:%s:%.2f", EventPriceDrop, m.SourceSlug, m.ItemID, m.NewPrice)
		w.emitOnce(ctx, key, Event{
			Type:    EventPriceDrop,
			At:      snap.GeneratedAt,
			Title:   "Price drop: " + m.Name,
			Message: fmt.Sprintf("%s %s: %.2f -> %.2f (%.1f%%) %s", m.SourceSlug, m.ItemID, m.OldPrice, m.NewPrice, m.ChangePct, m.URL),
			Payload: m,
		})
	}
	for _, m := range snap.Movers.Spikes {
		key := fmt.Sprintf("%s:%s:%s:%.2f", EventPriceSpike, m.SourceSlug, m.ItemID, m.NewPrice)
		w.emitOnce(ctx, key, Event{
			Type:    EventPriceSpike,
			At:      snap.GeneratedAt,
			Title:   "Price spike: " + m.Name,
			Message: fmt.Sprintf("%s %s: %.2f -> %.2f (+%.1f%%) %s", m.SourceSlug, m.ItemID, m.OldPrice, m.NewPrice, m.ChangePct, m.URL),
			Payload: m,
		})
	}
	for _, e := range snap.Extremes.NewLows {
		key := fmt.Sprintf("%s:%s:%s:%.2f", EventNewLow, e.SourceSlug, e.ItemID, e.Price)
		w.emitOnce(ctx, key, Event{
			Type:    EventNewLow,
			At:      snap.GeneratedAt,
			Title:   "New all-time low: " + e.Name,
			Message: fmt.Sprintf("%s %s: %.2f (previous low %.2f) %s", e.SourceSlug, e.ItemID, e.Price, e.PrevBound, e.URL),
			Payload: e,
		})
	}
	for _, s := range snap.StaleSources {
		key := EventStaleSource + ":" + s.SourceSlug
		msg := s.DisplayName + " has never completed a run"
		if s.AgeHours != nil {
			msg = fmt.Sprintf("%s last succeeded %.1fh ago", s.DisplayName, *s.AgeHours)
		}
		w.emitOnce(ctx, key, Event{
			Type:    EventStaleSource,
			At:      snap.GeneratedAt,
			Title:   "Stale source: " + s.SourceSlug,
			Message: msg,
			Payload: s,
		})
	}
	for _, f := range snap.RecentFailures {
		key := fmt.Sprintf("%s:%d", EventScrapeFailed, f.RunID)
		w.emitOnce(ctx, key, Event{
			Type:    EventScrapeFailed,
			At:      snap.GeneratedAt,
			Title:   "Scrape failed: " + f.SourceSlug,
			Message: fmt.Sprintf("run %d at %s: %s", f.RunID, f.StartedAt.Format(time.RFC3339), f.Error),
			Payload: f,
		})
	}

	return nil
}

// emitOnce emits an event the first time its key is seen, alerting sinks as
// well.
func (w *Watcher) emitOnce(ctx context.Context, key string, ev Event) {
	if w.announced[key] {
		return
	}
	w.announced[key] = true
	w.emit(ctx, ev, true)
}

// emit serializes the event and fans it out. alert controls whether the
// notifier is involved; the per-tick snapshot event skips it.
func (w *Watcher) emit(ctx context.Context, ev Event, alert bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		w.logger.ErrorContext(ctx, "marshal event", slog.String("error", err.Error()))
		return
	}

	if w.bus != nil {
		if err := w.bus.Publish(ctx, w.cfg.Channel, data); err != nil {
			w.logger.WarnContext(ctx, "publish event failed",
				slog.String("type", ev.Type),
				slog.String("error", err.Error()),
			)
		}
		if w.cfg.Stream != "" {
			if _, err := w.bus.StreamAppend(ctx, w.cfg.Stream, map[string]any{
				"type":    ev.Type,
				"payload": string(data),
			}); err != nil {
				w.logger.WarnContext(ctx, "stream append failed",
					slog.String("type", ev.Type),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if w.hub != nil {
		w.hub.Broadcast(data)
	}

	if alert && w.alerts != nil {
		if err := w.alerts.Notify(ctx, ev.Type, ev.Title, ev.Message); err != nil {
			w.logger.WarnContext(ctx, "alert failed",
				slog.String("type", ev.Type),
				slog.String("error", err.Error()),
			)
		}
	}
}

func summaryLine(s domain.SnapshotSummary) string {
	return fmt.Sprintf("%d drops, %d spikes, %d extremes, %d outliers, %d stale sources, %d failures",
		s.RecentDrops, s.RecentSpikes, s.NewExtremes, s.Outliers, s.StaleSources, s.RecentFailures)
}
