package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/appointcal/calendar_engine/internal/interval"
	"github.com/appointcal/calendar_engine/internal/model"
)

const (
	fetchRetryBase     = 500 * time.Millisecond
	fetchRetryAttempts = 3
)

// Feed is one subscribed ICS calendar.
type Feed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ICSProvider reads external events from ICS subscription feeds. Feeds
// are read-only by nature, so the write half of the provider contract
// reports ProviderError; the reconciler accumulates those as partial
// failures instead of aborting a cycle.
type ICSProvider struct {
	feeds  []Feed
	client *http.Client
	logger *zap.Logger
}

func NewICSProvider(feeds []Feed, logger *zap.Logger) *ICSProvider {
	return &ICSProvider{
		feeds:  feeds,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// ListCalendars returns one calendar per subscribed feed.
func (p *ICSProvider) ListCalendars(ctx context.Context) ([]model.Calendar, error) {
	calendars := make([]model.Calendar, 0, len(p.feeds))
	for i, feed := range p.feeds {
		calendars = append(calendars, model.Calendar{
			ID:      feed.ID,
			Name:    feed.Name,
			Primary: i == 0,
		})
	}
	return calendars, nil
}

// ListEvents fetches and parses every selected feed, returning events
// intersecting [from, to). An empty calendarIDs selects all feeds.
func (p *ICSProvider) ListEvents(ctx context.Context, calendarIDs []string, from, to time.Time) ([]model.ExternalEvent, error) {
	selected := make(map[string]bool, len(calendarIDs))
	for _, id := range calendarIDs {
		selected[id] = true
	}

	var events []model.ExternalEvent
	for _, feed := range p.feeds {
		if len(selected) > 0 && !selected[feed.ID] {
			continue
		}

		body, err := p.fetch(ctx, feed)
		if err != nil {
			return nil, &model.ProviderError{Op: "list events " + feed.ID, Err: err}
		}

		parsed, err := parseFeed(feed, body, from, to)
		if err != nil {
			return nil, &model.ProviderError{Op: "parse feed " + feed.ID, Err: err}
		}

		p.logger.Info("Fetched ICS feed",
			zap.String("feed_id", feed.ID),
			zap.Int("event_count", len(parsed)),
		)
		events = append(events, parsed...)
	}

	return events, nil
}

// CreateEvent is unsupported on ICS subscription feeds.
func (p *ICSProvider) CreateEvent(ctx context.Context, calendarID string, event model.ExternalEvent) (model.ExternalEvent, error) {
	return model.ExternalEvent{}, &model.ProviderError{Op: "create event", Err: fmt.Errorf("feed %s is read-only", calendarID)}
}

// UpdateEvent is unsupported on ICS subscription feeds.
func (p *ICSProvider) UpdateEvent(ctx context.Context, calendarID string, event model.ExternalEvent) (model.ExternalEvent, error) {
	return model.ExternalEvent{}, &model.ProviderError{Op: "update event", Err: fmt.Errorf("feed %s is read-only", calendarID)}
}

// DeleteEvent is unsupported on ICS subscription feeds.
func (p *ICSProvider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return &model.ProviderError{Op: "delete event", Err: fmt.Errorf("feed %s is read-only", calendarID)}
}

// fetch downloads a feed body with exponential backoff on transient
// failures.
func (p *ICSProvider) fetch(ctx context.Context, feed Feed) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(fetchRetryAttempts, retry.NewExponential(fetchRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
		if err != nil {
			return err
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("feed %s returned %d", feed.ID, resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("feed %s returned %d", feed.ID, resp.StatusCode)
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		body = b
		return nil
	})

	return body, err
}

func parseFeed(feed Feed, body []byte, from, to time.Time) ([]model.ExternalEvent, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var events []model.ExternalEvent
	for _, ve := range cal.Events() {
		event, err := parseVEvent(feed.ID, ve)
		if err != nil {
			// Skip the malformed VEVENT, keep the rest of the feed.
			continue
		}
		if interval.Overlaps(event.Start, event.End, from, to) {
			events = append(events, event)
		}
	}

	return events, nil
}

func parseVEvent(calendarID string, ve *ical.VEvent) (model.ExternalEvent, error) {
	var event model.ExternalEvent
	event.CalendarID = calendarID

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return event, fmt.Errorf("missing UID")
	}
	event.ID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		event.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		event.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		event.Location = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return event, fmt.Errorf("missing DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return event, fmt.Errorf("missing DTEND: %w", err)
	}
	event.Start = start
	event.End = end

	event.LastModified = lastModifiedOf(ve, start)

	return event, nil
}

// lastModifiedOf prefers LAST-MODIFIED, then DTSTAMP, then the event
// start as a final fallback so comparison timestamps always exist.
func lastModifiedOf(ve *ical.VEvent, fallback time.Time) time.Time {
	for _, prop := range []ical.ComponentProperty{ical.ComponentPropertyLastModified, ical.ComponentPropertyDtstamp} {
		p := ve.GetProperty(prop)
		if p == nil || p.Value == "" {
			continue
		}
		if t, err := time.Parse("20060102T150405Z", p.Value); err == nil {
			return t
		}
	}
	return fallback
}
