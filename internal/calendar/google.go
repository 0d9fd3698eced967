// Package calendar syncs confirmed appointments into Google Calendar.
package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/glowdesk/concierge/pkg/logging"
)

// Events manages appointment events on a single Google Calendar.
type Events struct {
	svc        *gcal.Service
	calendarID string
	logger     *logging.Logger
	dryRun     bool
}

// NewEvents builds the calendar client from service-account credentials.
// calendarID defaults to "primary".
func NewEvents(ctx context.Context, credentialsJSON []byte, calendarID string, logger *logging.Logger) (*Events, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: new service: %w", err)
	}
	return &Events{svc: svc, calendarID: calendarID, logger: logger}, nil
}

// WithDryRun makes the client log instead of calling Google.
func (e *Events) WithDryRun(enabled bool) *Events {
	e.dryRun = enabled
	return e
}

// CreateEvent inserts an appointment event and returns its id.
func (e *Events) CreateEvent(ctx context.Context, title, startISO, endISO, tz string) (string, error) {
	if e.dryRun {
		e.logger.Info("calendar dry run: skipping event create", "title", title, "start", startISO)
		return "evt_dryrun_" + time.Now().UTC().Format("20060102150405"), nil
	}

	event := &gcal.Event{
		Summary: title,
		Start:   &gcal.EventDateTime{DateTime: startISO, TimeZone: tz},
		End:     &gcal.EventDateTime{DateTime: endISO, TimeZone: tz},
	}
	created, err := e.svc.Events.Insert(e.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent moves an existing appointment event.
func (e *Events) UpdateEvent(ctx context.Context, eventID, title, startISO, endISO, tz string) error {
	if e.dryRun {
		e.logger.Info("calendar dry run: skipping event update", "event_id", eventID, "start", startISO)
		return nil
	}

	event := &gcal.Event{
		Summary: title,
		Start:   &gcal.EventDateTime{DateTime: startISO, TimeZone: tz},
		End:     &gcal.EventDateTime{DateTime: endISO, TimeZone: tz},
	}
	if _, err := e.svc.Events.Update(e.calendarID, eventID, event).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: update event %s: %w", eventID, err)
	}
	return nil
}

// DeleteEvent removes an appointment event after a cancellation.
func (e *Events) DeleteEvent(ctx context.Context, eventID string) error {
	if e.dryRun {
		e.logger.Info("calendar dry run: skipping event delete", "event_id", eventID)
		return nil
	}

	if err := e.svc.Events.Delete(e.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete event %s: %w", eventID, err)
	}
	return nil
}
