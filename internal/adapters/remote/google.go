package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hearthboard/core/internal/domain/entities"
	"github.com/hearthboard/core/internal/infrastructure/config"
	"github.com/hearthboard/core/internal/infrastructure/logger"
	"github.com/hearthboard/core/internal/ports"
)

const eventsPageSize = 250

// Client talks to the Google-style calendar and task REST APIs and
// normalizes their records for the reconciliation engine.
type Client struct {
	httpClient      *http.Client
	calendarBaseURL string
	tasksBaseURL    string
	token           string
	choresListName  string
	logger          *logger.Logger

	mu           sync.Mutex
	choresListID string
}

// NewClient creates a remote source client from configuration. The bearer
// token may be supplied inline or via a token file.
func NewClient(cfg config.GoogleConfig, appLogger *logger.Logger) (*Client, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		data, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("read token file: %w", err)
		}
		token = strings.TrimSpace(string(data))
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		calendarBaseURL: strings.TrimRight(cfg.CalendarBaseURL, "/"),
		tasksBaseURL:    strings.TrimRight(cfg.TasksBaseURL, "/"),
		token:           token,
		choresListName:  cfg.ChoresListName,
		logger:          appLogger.WithComponent("remote"),
	}, nil
}

type calendarListItem struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

type calendarListResponse struct {
	Items         []calendarListItem `json:"items"`
	NextPageToken string             `json:"nextPageToken"`
}

type eventItem struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

type eventsResponse struct {
	Items         []eventItem `json:"items"`
	NextPageToken string      `json:"nextPageToken"`
}

type taskListItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type taskListsResponse struct {
	Items []taskListItem `json:"items"`
}

type taskItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
	Due       string `json:"due"`
	Completed string `json:"completed"`
}

type tasksResponse struct {
	Items         []taskItem `json:"items"`
	NextPageToken string     `json:"nextPageToken"`
}

// FetchEvents returns the complete, normalized event snapshot for a month:
// every accessible calendar, every result page, sorted by effective start
// time. Any failure mid-fetch aborts the snapshot with an error, since a
// partial snapshot would later read as deletions.
func (c *Client) FetchEvents(ctx context.Context, year, month int) ([]ports.RemoteEvent, error) {
	calendars, err := c.listCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	timeMin, timeMax := monthWindow(year, month)

	var events []ports.RemoteEvent
	for _, cal := range calendars {
		calEvents, err := c.fetchCalendarEvents(ctx, cal, timeMin, timeMax)
		if err != nil {
			return nil, fmt.Errorf("fetch events for calendar %s: %w", cal.ID, err)
		}
		events = append(events, calEvents...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	return events, nil
}

func (c *Client) listCalendars(ctx context.Context) ([]calendarListItem, error) {
	var result calendarListResponse
	if err := c.getJSON(ctx, c.calendarBaseURL+"/users/me/calendarList", nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

func (c *Client) fetchCalendarEvents(ctx context.Context, cal calendarListItem, timeMin, timeMax time.Time) ([]ports.RemoteEvent, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.calendarBaseURL, url.PathEscape(cal.ID))

	calName := cal.Summary
	if calName == "" {
		calName = cal.ID
	}

	var events []ports.RemoteEvent
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("timeMin", timeMin.Format(time.RFC3339))
		params.Set("timeMax", timeMax.Format(time.RFC3339))
		params.Set("singleEvents", "true")
		params.Set("orderBy", "startTime")
		params.Set("maxResults", fmt.Sprintf("%d", eventsPageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page eventsResponse
		if err := c.getJSON(ctx, endpoint, params, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			start, allDay := parseEventTime(item.Start)
			end, _ := parseEventTime(item.End)
			if start.IsZero() {
				c.logger.Warnw("Unparseable event start time, using minimum",
					"event_id", item.ID, "calendar_id", cal.ID)
			}

			title := item.Summary
			if title == "" {
				title = "(No Title)"
			}

			events = append(events, ports.RemoteEvent{
				ID:           item.ID,
				CalendarID:   cal.ID,
				CalendarName: calName,
				Title:        title,
				Start:        start,
				End:          end,
				AllDay:       allDay,
				Location:     optionalString(item.Location),
				Description:  optionalString(item.Description),
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return events, nil
}

// FetchChores returns the tasks of the configured chores list. A missing
// list is empty, not an error; tasks completed before the lookback window
// are filtered out.
func (c *Client) FetchChores(ctx context.Context) ([]ports.RemoteChore, error) {
	listID, err := c.resolveChoresList(ctx)
	if err != nil {
		return nil, err
	}
	if listID == "" {
		c.logger.Warnw("Chores task list not found", "list_name", c.choresListName)
		return []ports.RemoteChore{}, nil
	}

	horizon := time.Now().UTC().Add(48 * time.Hour)

	params := url.Values{}
	params.Set("showCompleted", "true")
	params.Set("showHidden", "true")
	params.Set("dueMax", horizon.Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/lists/%s/tasks", c.tasksBaseURL, url.PathEscape(listID))

	var chores []ports.RemoteChore
	pageToken := ""
	for {
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page tasksResponse
		if err := c.getJSON(ctx, endpoint, params, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if !completedWithinWindow(item.Completed, horizon) {
				continue
			}

			title := item.Title
			if title == "" {
				title = "Unassigned"
			}

			status := entities.ChoreStatus(item.Status)
			if status != entities.ChoreStatusCompleted {
				status = entities.ChoreStatusNeedsAction
			}

			chores = append(chores, ports.RemoteChore{
				ID:          item.ID,
				AssignedTo:  title,
				Description: item.Notes,
				Status:      status,
				Due:         optionalString(item.Due),
			})
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return chores, nil
}

// completedWithinWindow keeps tasks that are still open or were completed
// before the horizon; an unparseable completion stamp keeps the task.
func completedWithinWindow(completed string, horizon time.Time) bool {
	if completed == "" {
		return true
	}
	t, err := time.Parse(time.RFC3339, completed)
	if err != nil {
		return true
	}
	return !t.After(horizon)
}

// CreateChore creates a task on the remote chores list and returns its
// remote-assigned id.
func (c *Client) CreateChore(ctx context.Context, title, notes string) (string, error) {
	listID, err := c.resolveChoresList(ctx)
	if err != nil {
		return "", err
	}
	if listID == "" {
		return "", fmt.Errorf("chores task list %q not found", c.choresListName)
	}

	endpoint := fmt.Sprintf("%s/lists/%s/tasks", c.tasksBaseURL, url.PathEscape(listID))

	body := map[string]string{"title": title, "notes": notes}
	var created taskItem
	if err := c.sendJSON(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return "", fmt.Errorf("create chore: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create chore: remote returned no id")
	}

	return created.ID, nil
}

// UpdateChoreStatus pushes a status change to the remote task. Invisible
// is a local-only state and must never reach the remote API.
func (c *Client) UpdateChoreStatus(ctx context.Context, id string, status entities.ChoreStatus) error {
	if status == entities.ChoreStatusInvisible {
		return fmt.Errorf("status %q is local-only", status)
	}

	listID, err := c.resolveChoresList(ctx)
	if err != nil {
		return err
	}
	if listID == "" {
		return fmt.Errorf("chores task list %q not found", c.choresListName)
	}

	endpoint := fmt.Sprintf("%s/lists/%s/tasks/%s",
		c.tasksBaseURL, url.PathEscape(listID), url.PathEscape(id))

	body := map[string]string{"status": string(status)}
	if err := c.sendJSON(ctx, http.MethodPatch, endpoint, body, nil); err != nil {
		return fmt.Errorf("update chore status: %w", err)
	}

	return nil
}

// resolveChoresList finds the task list whose title matches the configured
// chores list name. The id is cached after the first lookup. An empty id
// with nil error means the list does not exist.
func (c *Client) resolveChoresList(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.choresListID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var lists taskListsResponse
	if err := c.getJSON(ctx, c.tasksBaseURL+"/users/@me/lists", nil, &lists); err != nil {
		return "", fmt.Errorf("list task lists: %w", err)
	}

	for _, item := range lists.Items {
		if item.Title == c.choresListName {
			c.mu.Lock()
			c.choresListID = item.ID
			c.mu.Unlock()
			return item.ID, nil
		}
	}

	return "", nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote returned %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) sendJSON(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote returned %s", resp.Status)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
