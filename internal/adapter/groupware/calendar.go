package groupware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// EventInput holds the fields accepted by CreateEvent.
type EventInput struct {
	Title           string
	Start           string
	TimeZone        string
	DurationMinutes int
	Description     string
	Location        string
	Attendees       []string
	Priority        int
}

// Event is the subset of a JSCalendar event returned by ListEvents.
type Event struct {
	UID         string      `json:"uid"`
	Title       string      `json:"title"`
	Start       string      `json:"start"`
	Duration    string      `json:"duration"`
	Description string      `json:"description,omitempty"`
	Location    string      `json:"location,omitempty"`
	Status      string      `json:"status,omitempty"`
	Priority    json.Number `json:"priority,omitempty"`
}

// EventPayload builds the JSCalendar document for in.
func EventPayload(in EventInput) map[string]interface{} {
	payload := map[string]interface{}{
		"title":    in.Title,
		"start":    strings.Replace(in.Start, " ", "T", 1),
		"timeZone": in.TimeZone,
		"duration": fmt.Sprintf("PT%dM", in.DurationMinutes),
		"status":   "confirmed",
		"priority": in.Priority,
		"privacy":  "public",
	}
	if in.Description != "" {
		payload["description"] = in.Description
	}
	if in.Location != "" {
		payload["locations"] = map[string]interface{}{
			"loc-1": map[string]interface{}{
				"@type": "Location",
				"name":  in.Location,
			},
		}
	}
	if len(in.Attendees) > 0 {
		participants := make(map[string]interface{}, len(in.Attendees))
		for i, email := range in.Attendees {
			participants[fmt.Sprintf("p-%d", i+1)] = map[string]interface{}{
				"@type": "Participant",
				"email": email,
				"roles": map[string]bool{"attendee": true},
			}
		}
		payload["participants"] = participants
	}
	return payload
}

// CreateEvent schedules an event in the user's calendar.
func (c *Client) CreateEvent(ctx context.Context, in EventInput) (map[string]interface{}, error) {
	payload := EventPayload(in)
	_, err := c.postJSON(ctx, c.baseURL+"/calendar/", payload, map[string]string{
		"Prefer": "return=representation",
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

type calendarListing struct {
	Responses map[string]json.RawMessage `json:"responses"`
}

type jsEvent struct {
	UID         string      `json:"uid"`
	Title       string      `json:"title"`
	Start       string      `json:"start"`
	Duration    string      `json:"duration"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Priority    json.Number `json:"priority"`
	Locations   map[string]struct {
		Name string `json:"name"`
	} `json:"locations"`
}

// ListEvents returns the events whose start date lies within
// [startDate, endDate] (YYYY-MM-DD, inclusive), ordered by start.
func (c *Client) ListEvents(ctx context.Context, startDate, endDate string) ([]Event, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/calendar/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var listing calendarListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse calendar listing: %w", err)
	}

	events := []Event{}
	for _, raw := range listing.Responses {
		var ev jsEvent
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Start == "" {
			continue
		}
		date := ev.Start
		if i := strings.Index(date, "T"); i >= 0 {
			date = date[:i]
		}
		if date < startDate || date > endDate {
			continue
		}

		out := Event{
			UID:         ev.UID,
			Title:       ev.Title,
			Start:       ev.Start,
			Duration:    ev.Duration,
			Description: ev.Description,
			Status:      ev.Status,
			Priority:    ev.Priority,
		}
		keys := make([]string, 0, len(ev.Locations))
		for k := range ev.Locations {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			out.Location = ev.Locations[keys[0]].Name
		}
		events = append(events, out)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Start < events[j].Start })
	return events, nil
}
