package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport reports a fixed set of candidates, optionally after a delay,
// then returns err.
type fakeTransport struct {
	name       string
	candidates []Candidate
	delay      time.Duration
	err        error
	block      bool
}

func (f *fakeTransport) Name() string {
	return f.name
}

func (f *fakeTransport) Discover(ctx context.Context, timeout time.Duration, found func(Candidate)) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil
		}
	}
	for _, c := range f.candidates {
		found(c)
	}
	if f.block {
		<-ctx.Done()
	}
	return f.err
}

func TestCandidateMerge(t *testing.T) {
	r := NewResult()
	r.Add(NewCandidate("001788FFFE23BFA7", "192.168.1.10", 0, "cloud"))
	r.Add(NewCandidate("001788fffe23bfa7", "192.168.1.11", 80, "ssdp"))
	r.Add(NewCandidate("001788fffe23bfa7", "192.168.1.10", 80, "mdns"))

	require.Equal(t, 1, r.Len())
	c, ok := r.Get("001788FFFE23BFA7")
	require.True(t, ok)
	assert.Equal(t, "192.168.1.10", c.Host)
	assert.Equal(t, "mdns", c.Source)
	assert.Equal(t, []string{"192.168.1.11"}, c.Alternates)
}

func TestResultIgnoresEmptyID(t *testing.T) {
	r := NewResult()
	r.Add(NewCandidate("", "192.168.1.10", 80, "ssdp"))
	assert.Equal(t, 0, r.Len())
}

func TestResultCandidatesSorted(t *testing.T) {
	r := NewResult()
	r.Add(NewCandidate("b", "10.0.0.2", 80, "cloud"))
	r.Add(NewCandidate("a", "10.0.0.1", 80, "cloud"))

	cands := r.Candidates()
	require.Len(t, cands, 2)
	assert.Equal(t, "a", cands[0].ID)
	assert.Equal(t, "b", cands[1].ID)
}

func TestLocate(t *testing.T) {
	bridgeA := NewCandidate("001788fffe23bfa7", "192.168.1.10", 80, "")
	bridgeB := NewCandidate("001788fffe4a21c0", "192.168.1.20", 80, "")
	netErr := errors.New("network unreachable")

	tests := []struct {
		name         string
		transports   []Transport
		wantIDs      []string
		wantFailures []string
		wantNoTransp bool
	}{
		{
			name:         "none_configured",
			wantNoTransp: true,
		},
		{
			name: "all_fail",
			transports: []Transport{
				&fakeTransport{name: "cloud", err: netErr},
				&fakeTransport{name: "ssdp", err: netErr},
			},
			wantFailures: []string{"cloud", "ssdp"},
			wantNoTransp: true,
		},
		{
			name: "one_fails_one_finds",
			transports: []Transport{
				&fakeTransport{name: "cloud", err: netErr},
				&fakeTransport{name: "ssdp", candidates: []Candidate{bridgeA}},
			},
			wantIDs:      []string{bridgeA.ID},
			wantFailures: []string{"cloud"},
		},
		{
			name: "overlap_is_merged",
			transports: []Transport{
				&fakeTransport{name: "cloud", candidates: []Candidate{bridgeA, bridgeB}},
				&fakeTransport{name: "ssdp", candidates: []Candidate{bridgeA}},
			},
			wantIDs: []string{bridgeA.ID, bridgeB.ID},
		},
		{
			name: "empty_is_not_failure",
			transports: []Transport{
				&fakeTransport{name: "cloud"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Locate(context.Background(), tt.transports, time.Second)
			require.NotNil(t, result)

			if tt.wantNoTransp {
				assert.ErrorIs(t, err, ErrNoTransportAvailable)
			} else {
				assert.NoError(t, err)
			}

			var ids []string
			for _, c := range result.Candidates() {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)

			var failed []string
			for name := range result.Failures {
				failed = append(failed, name)
			}
			assert.ElementsMatch(t, tt.wantFailures, failed)
		})
	}
}

func TestLocateAllFailWrapsCauses(t *testing.T) {
	cause := errors.New("no route to host")
	_, err := Locate(context.Background(), []Transport{&fakeTransport{name: "cloud", err: cause}}, time.Second)

	assert.ErrorIs(t, err, ErrNoTransportAvailable)
	assert.ErrorIs(t, err, cause)
}

func TestLocateReturnsWithinTimeout(t *testing.T) {
	bridge := NewCandidate("001788fffe23bfa7", "192.168.1.10", 80, "")
	stalled := &fakeTransport{name: "stalled", candidates: []Candidate{bridge}, block: true}
	late := &fakeTransport{name: "late", delay: time.Hour}

	start := time.Now()
	result, err := Locate(context.Background(), []Transport{stalled, late}, 100*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, result.Len())
	assert.Empty(t, result.Failures)

	c, _ := result.Get(bridge.ID)
	assert.Equal(t, "stalled", c.Source)
}

func TestLocateHonorsTransportOverride(t *testing.T) {
	slow := &fakeTransport{name: "slow", delay: 200 * time.Millisecond, candidates: []Candidate{
		NewCandidate("001788fffe23bfa7", "192.168.1.10", 80, ""),
	}}
	fast := &fakeTransport{name: "fast", candidates: []Candidate{
		NewCandidate("001788fffe4a21c0", "192.168.1.20", 80, ""),
	}}

	l := NewLocator([]Transport{slow, fast}, time.Second, WithTransportTimeout("slow", 20*time.Millisecond))
	result, err := l.Locate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Len())
	_, ok := result.Get("001788fffe4a21c0")
	assert.True(t, ok)
}

func TestLocateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Locate(ctx, []Transport{&fakeTransport{name: "blocked", block: true}}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Len())
}
