package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huelink/internal/config"
	"github.com/dokzlo13/huelink/internal/discovery"
	"github.com/dokzlo13/huelink/internal/hue"
	"github.com/dokzlo13/huelink/internal/ledger"
	"github.com/dokzlo13/huelink/internal/pairing"
)

// ErrLedgerDisabled is returned by History when no database is configured.
var ErrLedgerDisabled = errors.New("activity ledger is disabled")

// App ties discovery, pairing and the bridge client to configuration and the
// activity ledger.
type App struct {
	cfg      *config.Config
	services *Services
}

// New creates a new App instance with all services initialized.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Discover runs every enabled transport and records the run.
func (a *App) Discover(ctx context.Context) (*discovery.Result, error) {
	runID := ledger.NewRunID()
	start := time.Now()

	result, err := a.services.Locator.Locate(ctx)

	ids := make([]string, 0, result.Len())
	for _, c := range result.Candidates() {
		ids = append(ids, c.ID)
	}
	failed := make(map[string]string, len(result.Failures))
	for name, ferr := range result.Failures {
		failed[name] = ferr.Error()
	}

	log.Info().
		Int("bridges", result.Len()).
		Int("failed_transports", len(failed)).
		Dur("elapsed", time.Since(start)).
		Msg("Discovery finished")

	a.record(ledger.EventDiscoveryCompleted, runID, "", map[string]any{
		"bridges":  ids,
		"failures": failed,
	})

	return result, err
}

// Pair runs the link-button handshake against bridge until a terminal outcome.
// onPending is called after each Pending answer, e.g. to prompt the user.
func (a *App) Pair(ctx context.Context, bridge hue.Bridge, deviceName string, onPending func(pairing.Outcome)) (hue.Session, pairing.Outcome, error) {
	if deviceName == "" {
		deviceName = a.cfg.Pairing.DeviceName
	}
	if deviceName == "" {
		deviceName = pairing.DefaultDeviceName("huelink")
	}

	session, err := pairing.NewSession(bridge, pairing.Request{
		DeviceName:        deviceName,
		GenerateClientKey: a.cfg.Pairing.ClientKey,
	}, pairing.WithTimeout(a.cfg.Pairing.Deadline.Duration()))
	if err != nil {
		return hue.Session{}, pairing.Outcome{}, err
	}

	runID := ledger.NewRunID()
	log.Info().
		Str("bridge", bridge.String()).
		Str("device", deviceName).
		Time("deadline", session.Deadline()).
		Msg("Pairing started")

	outcome, err := pairing.Pair(ctx, session, a.cfg.Pairing.Interval.Duration(), func(o pairing.Outcome) {
		a.record(ledger.EventPairingAttempted, runID, bridge.ID, map[string]any{"status": o.Status.String()})
		if onPending != nil {
			onPending(o)
		}
	})

	payload := map[string]any{
		"status": outcome.Status.String(),
		"device": deviceName,
	}
	if outcome.Status == pairing.StatusDenied {
		payload["code"] = int(outcome.Code)
		payload["reason"] = outcome.Reason
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	a.record(ledger.EventPairingFinished, runID, bridge.ID, payload)

	if err != nil {
		return hue.Session{}, outcome, fmt.Errorf("pairing with %s: %w", bridge, err)
	}

	sess, ok := session.Result()
	if !ok {
		return hue.Session{}, outcome, nil
	}
	log.Info().Str("bridge", bridge.String()).Msg("Pairing granted")
	return sess, outcome, nil
}

// Client returns a bridge client for a paired session.
func (a *App) Client(sess hue.Session) *hue.Client {
	return hue.NewClient(sess,
		hue.WithTimeout(a.cfg.Bridge.Timeout.Duration()),
		hue.WithRateLimit(a.cfg.Bridge.RateLimitRPS),
	)
}

// History returns the newest ledger entries.
func (a *App) History(limit int) ([]*ledger.Entry, error) {
	if a.services.Ledger == nil {
		return nil, ErrLedgerDisabled
	}
	return a.services.Ledger.Recent(limit)
}

// PruneHistory drops ledger entries older than retention.
func (a *App) PruneHistory(retention time.Duration) (int64, error) {
	if a.services.Ledger == nil {
		return 0, ErrLedgerDisabled
	}
	deleted, err := a.services.Ledger.DeleteOlderThan(retention)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Activity ledger pruned")
	return deleted, nil
}

func (a *App) record(eventType ledger.EventType, runID, bridgeID string, payload map[string]any) {
	if a.services.Ledger == nil {
		return
	}
	if err := a.services.Ledger.Append(eventType, runID, bridgeID, payload); err != nil {
		log.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to record activity")
	}
}

// Close releases all resources.
func (a *App) Close() error {
	if a.services != nil {
		a.services.Close()
	}
	return nil
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
