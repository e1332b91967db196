// Package pairing implements the link-button registration handshake that
// yields a Hue application key.
//
// A Session issues one registration request per Attempt call. The caller owns
// the retry cadence; Pair is a small wrapper for callers that just want to
// poll on an interval.
package pairing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/hue"
)

const (
	// DefaultDeadline is how long a user gets to press the link button.
	DefaultDeadline = 30 * time.Second
	// DefaultInterval is the pause between attempts in Pair.
	DefaultInterval = 2 * time.Second
	// MaxDeviceNameLength is the longest devicetype the bridge accepts.
	MaxDeviceNameLength = 40
)

var (
	// ErrSessionClosed is returned by Attempt once the session is terminal.
	ErrSessionClosed = errors.New("pairing session is closed")
	// ErrInvalidDeviceName is returned for an empty or over-long device name.
	ErrInvalidDeviceName = errors.New("invalid device name")
)

// Request describes the application asking for a key.
type Request struct {
	// DeviceName is sent as devicetype, conventionally "<app>#<device>".
	DeviceName string
	// GenerateClientKey also asks for an entertainment client key.
	GenerateClientKey bool
}

// Validate checks the device name against the bridge's limits.
func (r Request) Validate() error {
	if strings.TrimSpace(r.DeviceName) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDeviceName)
	}
	if len(r.DeviceName) > MaxDeviceNameLength {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidDeviceName, r.DeviceName, MaxDeviceNameLength)
	}
	return nil
}

// DefaultDeviceName builds "<app>#<host>", falling back to a random instance
// name when the hostname is unavailable.
func DefaultDeviceName(app string) string {
	if len(app) > 20 {
		app = app[:20]
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()[:8]
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	if len(host) > 19 {
		host = host[:19]
	}
	return app + "#" + host
}

type registerBody struct {
	DeviceType        string `json:"devicetype"`
	GenerateClientKey bool   `json:"generateclientkey,omitempty"`
}

type registerSuccess struct {
	Username  string `json:"username"`
	ClientKey string `json:"clientkey,omitempty"`
}

// Session is a single pairing run against one bridge. Attempts on the same
// session are serialized; independent sessions share nothing.
type Session struct {
	bridge     hue.Bridge
	req        Request
	httpClient *http.Client
	deadline   time.Time
	timeout    time.Duration
	now        func() time.Time

	mu    sync.Mutex
	state Outcome
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient replaces the HTTP client used for registration requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) {
		s.httpClient = hc
	}
}

// WithDeadline sets the point after which a still pending session times out.
func WithDeadline(t time.Time) Option {
	return func(s *Session) {
		s.deadline = t
		s.timeout = 0
	}
}

// WithTimeout is WithDeadline relative to the session's creation, read from
// its clock once every option has been applied.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
		s.deadline = time.Time{}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession prepares a pairing session. No request is sent until Attempt.
func NewSession(bridge hue.Bridge, req Request, opts ...Option) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if bridge.Host == "" {
		return nil, errors.New("bridge address is empty")
	}
	s := &Session{
		bridge:     bridge,
		req:        req,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
		state:      Outcome{Status: StatusNotStarted},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timeout > 0 {
		s.deadline = s.now().Add(s.timeout)
	}
	return s, nil
}

// Bridge returns the bridge being paired with.
func (s *Session) Bridge() hue.Bridge {
	return s.bridge
}

// Deadline returns the configured deadline, zero if none.
func (s *Session) Deadline() time.Time {
	return s.deadline
}

// State returns the latest outcome.
func (s *Session) State() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the bootstrap session once the bridge granted a key.
func (s *Session) Result() (hue.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusGranted {
		return hue.Session{}, false
	}
	return hue.Session{Bridge: s.bridge, Token: s.state.Token, ClientKey: s.state.ClientKey}, true
}

// Expire moves a session that is not yet terminal to TimedOut. It is for
// callers that run their own deadline timer.
func (s *Session) Expire() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Status.Terminal() {
		s.state = timedOut()
	}
	return s.state
}

// Attempt sends one registration request.
//
// The bridge's answer moves the session to Pending, Granted or Denied. A
// session past its deadline becomes TimedOut without a request being sent,
// and so does one whose ctx deadline expires mid-request. Network and parse
// failures are returned as errors and leave the state as it was, so the same
// call can be retried. Once terminal, Attempt returns the final outcome with
// ErrSessionClosed.
func (s *Session) Attempt(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status.Terminal() {
		return s.state, ErrSessionClosed
	}
	if !s.deadline.IsZero() && !s.now().Before(s.deadline) {
		s.state = timedOut()
		log.Debug().Str("bridge", s.bridge.String()).Msg("Pairing deadline passed")
		return s.state, nil
	}

	outcome, err := s.register(ctx)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.state = timedOut()
			return s.state, nil
		}
		return s.state, err
	}

	s.state = outcome
	log.Debug().
		Str("bridge", s.bridge.String()).
		Str("status", outcome.Status.String()).
		Msg("Pairing attempt answered")
	return outcome, nil
}

func (s *Session) register(ctx context.Context) (Outcome, error) {
	payload, err := json.Marshal(registerBody{
		DeviceType:        s.req.DeviceName,
		GenerateClientKey: s.req.GenerateClientKey,
	})
	if err != nil {
		return Outcome{}, err
	}

	url := fmt.Sprintf("http://%s/api", s.bridge.Address())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Outcome{}, &hue.NetworkError{Op: "pairing", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Outcome{}, &hue.NetworkError{Op: "pairing", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Outcome{}, &hue.NetworkError{
			Op:  "pairing",
			Err: fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body)),
		}
	}

	responses, err := hue.DecodeResponses[registerSuccess]("pairing", resp.Body)
	if err != nil {
		return Outcome{}, err
	}

	first := responses[0]
	if first.Error != nil {
		if first.Error.Type == hue.ErrLinkButtonNotPressed {
			return pending(), nil
		}
		return denied(first.Error), nil
	}
	if first.Success.Username == "" {
		return Outcome{}, &hue.ParseError{Op: "pairing", Err: errors.New("success without username")}
	}
	return granted(first.Success.Username, first.Success.ClientKey), nil
}

// Pair calls Attempt every interval until the session is terminal. The
// session's deadline and ctx's deadline both end the loop with TimedOut;
// cancelling ctx returns the current outcome with ctx's error. Network
// failures are returned, not retried. onPending, if set, is called after
// each Pending answer.
func Pair(ctx context.Context, s *Session, interval time.Duration, onPending func(Outcome)) (Outcome, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if d := s.Deadline(); !d.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, d)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		outcome, err := s.Attempt(ctx)
		if err != nil {
			return outcome, err
		}
		if outcome.Status.Terminal() {
			return outcome, nil
		}
		if onPending != nil {
			onPending(outcome)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return s.Expire(), nil
			}
			return s.State(), ctx.Err()
		case <-ticker.C:
		}
	}
}
