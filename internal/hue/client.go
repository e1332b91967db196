package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultRateLimit is the command budget the bridge documents for light updates.
const DefaultRateLimit = 10.0

// Client is a thin CRUD layer over the v1 API for lights and groups. Reads go
// through huego; partial state writes are sent directly so unset fields stay
// off the wire.
type Client struct {
	session    Session
	bridge     *huego.Bridge
	httpClient *http.Client
	limiter    *rate.Limiter
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for state writes.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the timeout of the HTTP client used for state writes.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewClient creates a client bound to a paired session.
func NewClient(session Session, opts ...ClientOption) *Client {
	c := &Client{
		session:    session,
		bridge:     huego.New(session.Bridge.Address(), session.Token),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	WithRateLimit(DefaultRateLimit)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client was built from.
func (c *Client) Session() Session {
	return c.session
}

// Close closes idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (c *Client) v1URL(path string) string {
	return fmt.Sprintf("http://%s/api/%s/%s", c.session.Bridge.Address(), c.session.Token, path)
}

func (c *Client) v1Request(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.v1URL(path), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	return resp, nil
}

// write sends a state change and turns bridge-reported errors into *APIError.
func (c *Client) write(ctx context.Context, method, path string, payload any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	resp, err := c.v1Request(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &NetworkError{Op: method + " " + path, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))}
	}

	responses, err := DecodeResponses[map[string]any](method+" "+path, resp.Body)
	if err != nil {
		return err
	}
	return FirstError(responses)
}

// Config returns the bridge configuration. It doubles as a token check: an
// unknown token yields a whitelist-only config without a bridge ID.
func (c *Client) Config(ctx context.Context) (*huego.Config, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	cfg, err := c.bridge.GetConfigContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bridge config: %w", err)
	}
	return cfg, nil
}

// Lights returns all lights known to the bridge.
func (c *Client) Lights(ctx context.Context) ([]huego.Light, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	lights, err := c.bridge.GetLightsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get lights: %w", err)
	}
	return lights, nil
}

// Light returns a single light.
func (c *Client) Light(ctx context.Context, id int) (*huego.Light, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	light, err := c.bridge.GetLightContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get light %d: %w", id, err)
	}
	return light, nil
}

// SetLightState applies a partial state to one light.
func (c *Client) SetLightState(ctx context.Context, id int, cmd LightCommand) error {
	if cmd.Empty() {
		return nil
	}
	if err := c.write(ctx, http.MethodPut, "lights/"+strconv.Itoa(id)+"/state", cmd); err != nil {
		return fmt.Errorf("failed to set light %d state: %w", id, err)
	}
	log.Debug().Int("light", id).Interface("command", cmd).Msg("Light state set")
	return nil
}

// RenameLight changes a light's name.
func (c *Client) RenameLight(ctx context.Context, id int, name string) error {
	payload := map[string]string{"name": name}
	if err := c.write(ctx, http.MethodPut, "lights/"+strconv.Itoa(id), payload); err != nil {
		return fmt.Errorf("failed to rename light %d: %w", id, err)
	}
	return nil
}

// Groups returns all groups known to the bridge.
func (c *Client) Groups(ctx context.Context) ([]huego.Group, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	groups, err := c.bridge.GetGroupsContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get groups: %w", err)
	}
	return groups, nil
}

// Group returns a single group.
func (c *Client) Group(ctx context.Context, id int) (*huego.Group, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	group, err := c.bridge.GetGroupContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	return group, nil
}

// SetGroupState applies a partial state (or a scene recall) to a group.
func (c *Client) SetGroupState(ctx context.Context, id int, cmd LightCommand) error {
	if cmd.Empty() {
		return nil
	}
	if err := c.write(ctx, http.MethodPut, "groups/"+strconv.Itoa(id)+"/action", cmd); err != nil {
		return fmt.Errorf("failed to set group %d action: %w", id, err)
	}
	log.Debug().Int("group", id).Interface("command", cmd).Msg("Group action set")
	return nil
}

// CreateGroup creates a group and returns the ID the bridge assigned.
func (c *Client) CreateGroup(ctx context.Context, cmd GroupCommand) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	resp, err := c.bridge.CreateGroupContext(ctx, huego.Group{
		Name:   cmd.Name,
		Lights: cmd.Lights,
		Type:   cmd.Type,
		Class:  cmd.Class,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create group %q: %w", cmd.Name, err)
	}
	id, _ := resp.Success["id"].(string)
	return id, nil
}

// DeleteGroup removes a group.
func (c *Client) DeleteGroup(ctx context.Context, id int) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := c.bridge.DeleteGroupContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	return nil
}
