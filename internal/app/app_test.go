package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/discovery"
	"github.com/dokzlo13/huelink/internal/hue"
	"github.com/dokzlo13/huelink/internal/ledger"
	"github.com/dokzlo13/huelink/internal/pairing"
)

func boolPtr(b bool) *bool {
	return &b
}

func testConfig(t *testing.T, cloudURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Discovery.Timeout = config.Duration(time.Second)
	cfg.Discovery.Cloud.URL = cloudURL
	cfg.Discovery.SSDP.Enabled = boolPtr(false)
	cfg.Discovery.MDNS.Enabled = boolPtr(false)
	cfg.Pairing.Interval = config.Duration(10 * time.Millisecond)
	cfg.Database.Path = filepath.Join(t.TempDir(), "huelink.sqlite")
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func bridgeFor(t *testing.T, srv *httptest.Server) hue.Bridge {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return hue.Bridge{ID: "001788fffe23bfa7", Host: u.Hostname(), Port: port}
}

func TestTransports(t *testing.T) {
	cfg := config.Default()
	transports, opts := Transports(cfg)
	require.Len(t, transports, 3)
	assert.Len(t, opts, 3)

	cfg.Discovery.Cloud.Enabled = boolPtr(false)
	cfg.Discovery.MDNS.Enabled = boolPtr(false)
	transports, _ = Transports(cfg)
	require.Len(t, transports, 1)
	assert.Equal(t, "ssdp", transports[0].Name())
}

func TestDiscoverRecordsRun(t *testing.T) {
	cloud := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"001788FFFE23BFA7","internalipaddress":"192.168.1.10"}]`)
	}))
	defer cloud.Close()

	a := newTestApp(t, testConfig(t, cloud.URL))

	result, err := a.Discover(context.Background())
	require.NoError(t, err)
	c, ok := result.Get("001788fffe23bfa7")
	require.True(t, ok)
	assert.Equal(t, "192.168.1.10", c.Host)

	history, err := a.History(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.EventDiscoveryCompleted, history[0].EventType)
	assert.Equal(t, []any{"001788fffe23bfa7"}, history[0].Payload["bridges"])
}

func TestDiscoverAllTransportsFailed(t *testing.T) {
	cloud := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer cloud.Close()

	a := newTestApp(t, testConfig(t, cloud.URL))

	result, err := a.Discover(context.Background())
	assert.ErrorIs(t, err, discovery.ErrNoTransportAvailable)
	assert.Contains(t, result.Failures, "cloud")
}

func TestPairGranted(t *testing.T) {
	var calls atomic.Int32
	bridgeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			_, _ = io.WriteString(w, `[{"error":{"type":101,"address":"","description":"link button not pressed"}}]`)
			return
		}
		_, _ = io.WriteString(w, `[{"success":{"username":"secret-app-key"}}]`)
	}))
	defer bridgeSrv.Close()

	a := newTestApp(t, testConfig(t, ""))
	bridge := bridgeFor(t, bridgeSrv)

	var prompts int
	sess, outcome, err := a.Pair(context.Background(), bridge, "huelink#test", func(pairing.Outcome) { prompts++ })
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusGranted, outcome.Status)
	assert.Equal(t, "secret-app-key", sess.Token)
	assert.Equal(t, bridge, sess.Bridge)
	assert.Equal(t, 2, prompts)

	history, err := a.History(10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, ledger.EventPairingFinished, history[0].EventType)
	assert.Equal(t, "granted", history[0].Payload["status"])
	for _, e := range history {
		assert.Equal(t, bridge.ID, e.BridgeID)
		assert.NotContains(t, e.Payload, "token")
		for _, v := range e.Payload {
			assert.NotEqual(t, "secret-app-key", v)
		}
	}
}

func TestPairDenied(t *testing.T) {
	bridgeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[{"error":{"type":7,"address":"/devicetype","description":"invalid value"}}]`)
	}))
	defer bridgeSrv.Close()

	a := newTestApp(t, testConfig(t, ""))

	sess, outcome, err := a.Pair(context.Background(), bridgeFor(t, bridgeSrv), "huelink#test", nil)
	require.NoError(t, err)
	assert.Equal(t, pairing.StatusDenied, outcome.Status)
	assert.Empty(t, sess.Token)
}

func TestPairInvalidDeviceName(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""))

	_, _, err := a.Pair(context.Background(), hue.Bridge{Host: "192.168.1.10"}, "this-device-name-is-far-too-long-for-the-bridge", nil)
	assert.ErrorIs(t, err, pairing.ErrInvalidDeviceName)
}

func TestHistoryDisabled(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Database.Enabled = boolPtr(false)
	a := newTestApp(t, cfg)

	_, err := a.History(10)
	assert.ErrorIs(t, err, ErrLedgerDisabled)
}

func TestPruneHistory(t *testing.T) {
	a := newTestApp(t, testConfig(t, ""))
	a.record(ledger.EventDiscoveryCompleted, ledger.NewRunID(), "", nil)

	deleted, err := a.PruneHistory(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	history, err := a.History(10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
