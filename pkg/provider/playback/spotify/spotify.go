// Package spotify provides a playback controller backed by the Spotify
// Web API. It implements playback.Controller.
//
// Authentication uses a long-lived OAuth refresh token obtained once via
// the authorization-code flow (see the setup command). Access tokens are
// refreshed lazily about a minute before they expire.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/podtalk/podtalk/pkg/provider/playback"
	"github.com/podtalk/podtalk/pkg/types"
)

const (
	defaultAPIBase  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"

	// Scopes required by the controller, used by the setup flow.
	Scopes = "user-modify-playback-state user-read-playback-state user-read-currently-playing"
)

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAPIBase overrides the Web API base URL, used by tests.
func WithAPIBase(base string) Option {
	return func(c *Controller) {
		c.apiBase = strings.TrimSuffix(base, "/")
	}
}

// WithTokenURL overrides the OAuth token endpoint, used by tests.
func WithTokenURL(u string) Option {
	return func(c *Controller) {
		c.tokenURL = u
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Controller) {
		c.httpClient = hc
	}
}

// Controller implements playback.Controller against the Spotify Web API.
type Controller struct {
	clientID     string
	clientSecret string
	apiBase      string
	tokenURL     string
	httpClient   *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
}

// New creates a Controller using an existing refresh token.
func New(clientID, clientSecret, refreshToken string, opts ...Option) (*Controller, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("spotify: clientID and clientSecret must not be empty")
	}
	if refreshToken == "" {
		return nil, errors.New("spotify: refreshToken must not be empty")
	}
	c := &Controller{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		apiBase:      defaultAPIBase,
		tokenURL:     defaultTokenURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// tokenResponse is the OAuth token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// token returns a valid access token, refreshing when it expires within
// the next minute.
func (c *Controller) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("spotify: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &types.ServiceError{Service: "spotify", Op: "refresh token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &types.ServiceError{
			Service:    "spotify",
			Op:         "refresh token",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(detail))),
		}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &types.ServiceError{Service: "spotify", Op: "refresh token", Err: fmt.Errorf("decode response: %w", err)}
	}
	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	// Spotify occasionally rotates the refresh token.
	if tr.RefreshToken != "" {
		c.refreshToken = tr.RefreshToken
	}
	return c.accessToken, nil
}

// call performs an authenticated API request and returns the response.
// The caller owns the body.
func (c *Controller) call(ctx context.Context, method, path string) (*http.Response, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, nil)
	if err != nil {
		return nil, fmt.Errorf("spotify: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

// playerResponse is the subset of GET /me/player we consume.
type playerResponse struct {
	IsPlaying            bool   `json:"is_playing"`
	ProgressMs           int64  `json:"progress_ms"`
	CurrentlyPlayingType string `json:"currently_playing_type"`
	Device               struct {
		ID string `json:"id"`
	} `json:"device"`
	Item struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		DurationMs int64  `json:"duration_ms"`
		Show       struct {
			Name string `json:"name"`
		} `json:"show"`
	} `json:"item"`
}

// Status implements playback.Controller. A 204 from Spotify means no
// active playback session; that maps to a zero status.
func (c *Controller) Status(ctx context.Context) (types.PlaybackStatus, error) {
	resp, err := c.call(ctx, http.MethodGet, "/me/player?additional_types=episode")
	if err != nil {
		var se *types.ServiceError
		if errors.As(err, &se) {
			return types.PlaybackStatus{}, err
		}
		return types.PlaybackStatus{}, &types.ServiceError{Service: "spotify", Op: "status", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return types.PlaybackStatus{}, nil
	default:
		return types.PlaybackStatus{}, c.statusError("status", resp)
	}

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return types.PlaybackStatus{}, &types.ServiceError{Service: "spotify", Op: "status", Err: fmt.Errorf("decode response: %w", err)}
	}
	return types.PlaybackStatus{
		Playing:     pr.IsPlaying,
		TrackID:     pr.Item.ID,
		TrackName:   pr.Item.Name,
		ShowName:    pr.Item.Show.Name,
		Position:    time.Duration(pr.ProgressMs) * time.Millisecond,
		TrackLength: time.Duration(pr.Item.DurationMs) * time.Millisecond,
		DeviceID:    pr.Device.ID,
	}, nil
}

// Pause implements playback.Controller.
func (c *Controller) Pause(ctx context.Context) error {
	return c.control(ctx, "pause", "/me/player/pause")
}

// Resume implements playback.Controller.
func (c *Controller) Resume(ctx context.Context, deviceID string) error {
	path := "/me/player/play"
	if deviceID != "" {
		path += "?device_id=" + url.QueryEscape(deviceID)
	}
	return c.control(ctx, "resume", path)
}

// Seek implements playback.Controller.
func (c *Controller) Seek(ctx context.Context, pos time.Duration) error {
	path := "/me/player/seek?position_ms=" + strconv.FormatInt(pos.Milliseconds(), 10)
	return c.control(ctx, "seek", path)
}

// control issues a PUT player command and maps failures onto
// PlaybackControlError.
func (c *Controller) control(ctx context.Context, op, path string) error {
	resp, err := c.call(ctx, http.MethodPut, path)
	if err != nil {
		return &types.PlaybackControlError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusForbidden:
		return &types.PlaybackControlError{Op: op, Err: errors.New("spotify: playback control requires a Premium account")}
	case http.StatusNotFound:
		return &types.PlaybackControlError{Op: op, Err: errors.New("spotify: no active device")}
	default:
		return &types.PlaybackControlError{Op: op, Err: c.statusError(op, resp)}
	}
}

func (c *Controller) statusError(op string, resp *http.Response) *types.ServiceError {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &types.ServiceError{
		Service:    "spotify",
		Op:         op,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("%s", strings.TrimSpace(string(detail))),
	}
}

var _ playback.Controller = (*Controller)(nil)
