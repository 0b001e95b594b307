package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultListMaxResults = 50
	eventTimeZone         = "UTC"
)

// ListEvents returns the user's upcoming events in the provider's own shape.
// The lower time bound defaults to now; recurring events are expanded and
// results are ordered by start time by the downstream query itself.
func (s *Service) ListEvents(ctx context.Context, userID string, query ListEventsQuery) ([]map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	cred, err := s.resolveForCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query.TimeMin) == "" {
		query.TimeMin = s.now().Format(time.RFC3339)
	}
	if query.MaxResults <= 0 {
		query.MaxResults = defaultListMaxResults
	}

	items, err := s.calendar.ListEvents(ctx, cred.AccessToken, query)
	if err != nil {
		return nil, ErrDownstreamFailure("google_calendar", err)
	}
	return items, nil
}

// CreateEvent maps the provider-agnostic event onto the downstream shape and
// inserts it. Attendee notification fan-out is enabled only when an attendee
// is present.
func (s *Service) CreateEvent(ctx context.Context, userID string, event CalendarEvent) (map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	if strings.TrimSpace(event.Title) == "" {
		return nil, s.mapError(errBadInput("core: event title is required"))
	}
	if strings.TrimSpace(event.Start) == "" || strings.TrimSpace(event.End) == "" {
		return nil, s.mapError(errBadInput("core: event start and end are required"))
	}

	cred, err := s.resolveForCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"summary": event.Title,
		"start":   eventTime(event.Start),
		"end":     eventTime(event.End),
	}
	if strings.TrimSpace(event.Description) != "" {
		body["description"] = event.Description
	}
	notify := false
	if event.Attendee != nil && strings.TrimSpace(event.Attendee.Email) != "" {
		attendee := map[string]any{"email": event.Attendee.Email}
		if strings.TrimSpace(event.Attendee.Name) != "" {
			attendee["displayName"] = event.Attendee.Name
		}
		body["attendees"] = []map[string]any{attendee}
		notify = true
	}

	created, err := s.calendar.InsertEvent(ctx, cred.AccessToken, body, notify)
	if err != nil {
		return nil, ErrDownstreamFailure("google_calendar", err)
	}
	return created, nil
}

// UpdateEvent overlays the present patch fields on the existing downstream
// event and writes the merged document back. The read-modify-write is not
// transactional; concurrent updates to the same event can lose one side's
// change.
func (s *Service) UpdateEvent(ctx context.Context, userID string, eventID string, patch UpdateEvent) (map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, s.mapError(errBadInput("core: event id is required"))
	}

	cred, err := s.resolveForCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.calendar.GetEvent(ctx, cred.AccessToken, eventID)
	if err != nil {
		return nil, ErrDownstreamFailure("google_calendar", err)
	}

	merged := mergeEventPatch(existing, patch)
	updated, err := s.calendar.UpdateEvent(ctx, cred.AccessToken, eventID, merged)
	if err != nil {
		return nil, ErrDownstreamFailure("google_calendar", err)
	}
	return updated, nil
}

// DeleteEvent removes the downstream event.
func (s *Service) DeleteEvent(ctx context.Context, userID string, eventID string) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return s.mapError(errBadInput("core: event id is required"))
	}

	cred, err := s.resolveForCalendar(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.calendar.DeleteEvent(ctx, cred.AccessToken, eventID); err != nil {
		return ErrDownstreamFailure("google_calendar", err)
	}
	return nil
}

func (s *Service) resolveForCalendar(ctx context.Context, userID string) (ValidCredential, error) {
	if s.calendar == nil {
		return ValidCredential{}, s.mapError(fmt.Errorf("core: calendar api is not configured"))
	}
	return s.Resolve(ctx, userID)
}

// mergeEventPatch copies the existing document and overwrites only the fields
// the patch carries. Unspecified fields are preserved, never cleared.
func mergeEventPatch(existing map[string]any, patch UpdateEvent) map[string]any {
	merged := make(map[string]any, len(existing)+4)
	for key, value := range existing {
		merged[key] = value
	}
	if patch.Title != nil {
		merged["summary"] = *patch.Title
	}
	if patch.Description != nil {
		merged["description"] = *patch.Description
	}
	if patch.Start != nil {
		merged["start"] = eventTime(*patch.Start)
	}
	if patch.End != nil {
		merged["end"] = eventTime(*patch.End)
	}
	return merged
}

func eventTime(value string) map[string]any {
	return map[string]any{
		"dateTime": value,
		"timeZone": eventTimeZone,
	}
}
