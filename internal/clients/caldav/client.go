package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// Client is a minimal CalDAV client: discover calendars, put and delete events.
type Client struct {
	baseURL  string
	username string
	password string
	client   *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has credentials
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{Path: cal.Path, DisplayName: cal.Name})
	}
	return result, nil
}

// ResolveCalendar accepts either a collection path or a display name.
func (c *Client) ResolveCalendar(ctx context.Context, nameOrPath string) (string, error) {
	if strings.HasPrefix(nameOrPath, "/") {
		return nameOrPath, nil
	}
	cals, err := c.DiscoverCalendars(ctx)
	if err != nil {
		return "", err
	}
	for _, cal := range cals {
		if strings.EqualFold(cal.DisplayName, nameOrPath) {
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("calendar %q not found", nameOrPath)
}

// PutEvent creates or replaces the event stored under its UID
func (c *Client) PutEvent(ctx context.Context, calendarPath string, event *Event) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if _, err := client.PutCalendarObject(ctx, eventPath(calendarPath, event.UID), eventToICS(event)); err != nil {
		return fmt.Errorf("put event %s: %w", event.UID, err)
	}
	return nil
}

// DeleteEvent deletes an event by UID. A missing event is not an error.
func (c *Client) DeleteEvent(ctx context.Context, calendarPath, eventUID string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	if err := client.RemoveAll(ctx, eventPath(calendarPath, eventUID)); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete event %s: %w", eventUID, err)
	}
	return nil
}

func eventPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}

// go-webdav does not export its HTTP error type
func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "404")
}

// eventToICS converts an Event to iCalendar format
func eventToICS(event *Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//ClassBot//CalDAV//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)

	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}

	// Convert to UTC explicitly - iCalendar will use Z suffix
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
	if !event.EndTime.IsZero() {
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.UTC())
	}

	if event.Rule != nil {
		vevent.Props.SetRecurrenceRule(event.Rule)
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	if event.AlarmAtStart {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, event.Summary)
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = "PT0S"
		alarm.Props.Set(trigger)
		vevent.Children = append(vevent.Children, alarm)
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

// SerializeCalendar converts calendar to string (for debugging)
func SerializeCalendar(cal *ical.Calendar) string {
	var buf bytes.Buffer
	enc := ical.NewEncoder(&buf)
	_ = enc.Encode(cal)
	return buf.String()
}
