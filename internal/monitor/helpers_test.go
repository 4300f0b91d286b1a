package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal/certstore"
)

// baseTime is the observation instant used throughout the tests.
var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// entry builds a chain entry valid from validFrom to validTo relative to
// baseTime.
func entry(cn, fingerprint string, validFrom, validTo time.Duration) certwatch.ChainEntry {
	return certwatch.ChainEntry{
		Subject:     fmt.Sprintf("CN=%s,O=Example Inc,C=US", cn),
		ValidFrom:   baseTime.Add(validFrom),
		ValidTo:     baseTime.Add(validTo),
		Fingerprint: fingerprint,
	}
}

// mapInspector serves chains from a map keyed by request ID.
type mapInspector struct {
	chains map[string][]certwatch.ChainEntry
}

func (i *mapInspector) SecurityInfo(_ context.Context, requestID string) (*SecurityInfo, error) {
	chain, ok := i.chains[requestID]
	if !ok {
		return nil, errors.New("no security info")
	}
	return &SecurityInfo{Certificates: chain}, nil
}

// gatedInspector blocks each request until its gate channel is closed.
type gatedInspector struct {
	mapInspector
	started chan string
	gates   map[string]chan struct{}
}

func (i *gatedInspector) SecurityInfo(ctx context.Context, requestID string) (*SecurityInfo, error) {
	i.started <- requestID
	select {
	case <-i.gates[requestID]:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return i.mapInspector.SecurityInfo(ctx, requestID)
}

// recordingIndicator keeps the last state set per tab.
type recordingIndicator struct {
	mu     sync.Mutex
	states map[int]certwatch.TabState
	calls  int
}

func newRecordingIndicator() *recordingIndicator {
	return &recordingIndicator{states: make(map[int]certwatch.TabState)}
}

func (r *recordingIndicator) SetState(tabID int, state certwatch.TabState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[tabID] = state
	r.calls++
}

func (r *recordingIndicator) get(tabID int) (certwatch.TabState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[tabID]
	return s, ok
}

// failingNameStore rejects every save.
type failingNameStore struct{}

func (failingNameStore) LoadNames(context.Context) ([]string, error) { return nil, nil }
func (failingNameStore) SaveNames(context.Context, []string) error {
	return errors.New("disk full")
}

// newTestMonitor wires a Monitor around a map inspector and a recording
// indicator with the default policy.
func newTestMonitor(t *testing.T, chains map[string][]certwatch.ChainEntry) (*Monitor, *recordingIndicator) {
	t.Helper()
	ind := newRecordingIndicator()
	m := New(Config{
		Hidden:    certstore.NewHiddenNames(nil),
		Inspector: &mapInspector{chains: chains},
		Indicator: ind,
		Policy:    certwatch.DefaultPolicy(),
	})
	return m, ind
}

func observe(t *testing.T, m *Monitor, tabID int, requestID string) {
	t.Helper()
	if err := m.Begin(Observation{TabID: tabID, RequestID: requestID, Timestamp: baseTime}).Complete(t.Context()); err != nil {
		t.Fatalf("observe(%d, %q): %v", tabID, requestID, err)
	}
}

func dispatch(t *testing.T, m *Monitor, req Request) any {
	t.Helper()
	resp, err := m.Dispatch(t.Context(), req)
	if err != nil {
		t.Fatalf("Dispatch(%+v): %v", req, err)
	}
	return resp
}
