// Package monitor coordinates observations, tab lifecycle events and user
// commands over a TabStore and a HiddenNames set, and pushes the resulting
// tab state to an Indicator.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal/certstore"
)

// NoTab is the tab ID hosts use for requests that do not belong to a tab.
const NoTab = -1

// Observation announces a completed request whose certificate chain can be
// fetched from the Inspector by RequestID.
type Observation struct {
	TabID     int       `json:"tabId"`
	RequestID string    `json:"requestId"`
	Timestamp time.Time `json:"timeStamp"`
}

// SecurityInfo is the host's security inspection result for one request.
type SecurityInfo struct {
	Certificates []certwatch.ChainEntry `json:"certificates"`
}

// Inspector fetches the certificate chain of a completed request. It may
// block; the Monitor does not hold its lock while waiting.
type Inspector interface {
	SecurityInfo(ctx context.Context, requestID string) (*SecurityInfo, error)
}

// Indicator receives the icon and badge to show for a tab.
type Indicator interface {
	SetState(tabID int, state certwatch.TabState)
}

// Config holds the collaborators of a Monitor.
type Config struct {
	Tabs      *certstore.TabStore    // nil creates an empty store
	Hidden    *certstore.HiddenNames // nil creates an unpersisted set
	Inspector Inspector
	Indicator Indicator
	Policy    certwatch.Policy
}

// Monitor runs every event to completion under one lock, so the store and
// the hidden set never see concurrent mutation.
type Monitor struct {
	mu        sync.Mutex
	tabs      *certstore.TabStore
	hidden    *certstore.HiddenNames
	inspector Inspector
	indicator Indicator
	policy    certwatch.Policy

	// seq orders events. A close records its sequence number so that an
	// observation that started before it is dropped when it completes.
	seq      uint64
	closedAt map[int]uint64
	inflight map[int]int
}

// New creates a Monitor from cfg.
func New(cfg Config) *Monitor {
	m := &Monitor{
		tabs:      cfg.Tabs,
		hidden:    cfg.Hidden,
		inspector: cfg.Inspector,
		indicator: cfg.Indicator,
		policy:    cfg.Policy,
		closedAt:  make(map[int]uint64),
		inflight:  make(map[int]int),
	}
	if m.tabs == nil {
		m.tabs = certstore.NewTabStore()
	}
	if m.hidden == nil {
		m.hidden = certstore.NewHiddenNames(nil)
	}
	return m
}

// Pending is an observation that has been ordered against the tab's close
// events but whose chain has not been fetched yet.
type Pending struct {
	m       *Monitor
	obs     Observation
	started uint64
	active  bool
}

// Begin registers obs as in flight and returns it for completion. A tab close
// handled after Begin returns discards the observation, so callers that fetch
// chains in the background must call Begin before reading the next event.
// Complete must be called exactly once on the result.
func (m *Monitor) Begin(obs Observation) *Pending {
	p := &Pending{m: m, obs: obs}
	if obs.TabID == NoTab {
		return p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.started = m.seq
	p.active = true
	m.inflight[obs.TabID]++
	return p
}

// Complete fetches the chain of a begun observation, classifies it and merges
// the records into the tab's set, then refreshes the tab's indicator.
// Observations without a tab are ignored. An inspection failure is logged and
// returned, and leaves all state untouched. If the tab was closed after Begin,
// the result is discarded.
func (p *Pending) Complete(ctx context.Context) error {
	if !p.active {
		return nil
	}
	p.active = false
	m, obs := p.m, p.obs

	var (
		info *SecurityInfo
		err  error
	)
	if m.inspector == nil {
		err = errors.New("no inspector configured")
	} else {
		info, err = m.inspector.SecurityInfo(ctx, obs.RequestID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.finish(obs.TabID)

	if err != nil {
		slog.Warn("security inspection failed", "tab", obs.TabID, "request", obs.RequestID, "error", err)
		return fmt.Errorf("inspecting request %s: %w", obs.RequestID, err)
	}
	if closed, ok := m.closedAt[obs.TabID]; ok && closed > p.started {
		slog.Debug("dropping observation for closed tab", "tab", obs.TabID, "request", obs.RequestID)
		return nil
	}

	observedAt := obs.Timestamp
	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	var entries []certwatch.ChainEntry
	if info != nil {
		entries = info.Certificates
	}
	records := certwatch.ClassifyChain(entries, observedAt, m.policy)
	m.tabs.Merge(obs.TabID, records)
	slog.Debug("merged observation", "tab", obs.TabID, "request", obs.RequestID, "records", len(records))

	m.refresh(obs.TabID)
	return nil
}

// finish releases the in-flight slot of an observation. The close marker of a
// tab is only needed while observations that predate it are pending.
func (m *Monitor) finish(tabID int) {
	m.inflight[tabID]--
	if m.inflight[tabID] <= 0 {
		delete(m.inflight, tabID)
		delete(m.closedAt, tabID)
	}
}

// TabClosed drops the tab's set and reports whether it had one. Any
// observation for the tab still in flight is discarded when it completes.
func (m *Monitor) TabClosed(tabID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	if m.inflight[tabID] > 0 {
		m.closedAt[tabID] = m.seq
	}
	existed := m.tabs.Clear(tabID)
	slog.Debug("tab closed", "tab", tabID, "had_data", existed)
	return existed
}

// State returns the aggregate state of a tab. ok is false for a tab with no
// observations, for which no indicator state is defined.
func (m *Monitor) State(tabID int) (certwatch.TabState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state(tabID)
}

func (m *Monitor) state(tabID int) (certwatch.TabState, bool) {
	set, ok := m.tabs.Get(tabID)
	if !ok {
		return certwatch.TabState{}, false
	}
	return certwatch.Aggregate(set, m.hidden, m.policy), true
}

// refresh recomputes the tab's state and pushes it to the indicator. Tabs
// without a set are left alone.
func (m *Monitor) refresh(tabID int) {
	state, ok := m.state(tabID)
	if !ok {
		return
	}
	m.setIndicator(tabID, state)
}

func (m *Monitor) setIndicator(tabID int, state certwatch.TabState) {
	if m.indicator == nil {
		return
	}
	m.indicator.SetState(tabID, state)
}
