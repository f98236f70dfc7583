package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	BaseURL = "https://www.strava.com/api/v3"

	// DefaultTimeout bounds each provider call.
	DefaultTimeout = 10 * time.Second
)

// defaultStreamKeys is what the streams endpoint is asked for when the
// caller does not narrow the set.
var defaultStreamKeys = []string{
	"time", "distance", "latlng", "altitude", "velocity_smooth",
	"heartrate", "cadence", "watts", "temp", "moving", "grade_smooth",
}

// Client calls the provider API. Tokens are supplied per call because every
// request may act for a different athlete; the rate limiter is shared so it
// sees all traffic.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// NewClient creates a provider client. timeout <= 0 selects DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     BaseURL,
		rateLimiter: NewRateLimiter(),
	}
}

// WithBaseURL points the client at an alternate API root.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// GetActivity fetches one activity document.
func (c *Client) GetActivity(ctx context.Context, token string, activityID int64) (*Activity, error) {
	var a Activity
	path := fmt.Sprintf("/activities/%d", activityID)
	if err := c.get(ctx, token, path, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetStreams fetches the activity's streams keyed by type. An empty keys
// slice requests every stream the analytics can use.
func (c *Client) GetStreams(ctx context.Context, token string, activityID int64, keys []string) (*StreamSet, error) {
	if len(keys) == 0 {
		keys = defaultStreamKeys
	}
	params := url.Values{}
	params.Set("keys", strings.Join(keys, ","))
	params.Set("key_by_type", "true")

	var s StreamSet
	path := fmt.Sprintf("/activities/%d/streams", activityID)
	if err := c.get(ctx, token, path, params, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetAthlete fetches the token owner's profile.
func (c *Client) GetAthlete(ctx context.Context, token string) (*Athlete, error) {
	var a Athlete
	if err := c.get(ctx, token, "/athlete", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// RateLimitStatus returns the remaining request budget.
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, token, path string, params url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("provider API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
