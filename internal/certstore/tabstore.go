package certstore

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/sensiblebit/certwatch"
)

// TabStore maps tab IDs to the certificates observed on them. Records are
// keyed by fingerprint within a tab, so re-observing a certificate replaces
// its record instead of adding another.
type TabStore struct {
	tabs map[int]certwatch.TabCertificateSet
}

// NewTabStore creates an empty TabStore.
func NewTabStore() *TabStore {
	return &TabStore{tabs: make(map[int]certwatch.TabCertificateSet)}
}

// Merge inserts or replaces each record by fingerprint within the tab's set,
// creating the set if the tab has none (including a tab cleared earlier).
func (s *TabStore) Merge(tabID int, records []certwatch.CertificateRecord) {
	set, ok := s.tabs[tabID]
	if !ok {
		set = make(certwatch.TabCertificateSet, len(records))
		s.tabs[tabID] = set
	}
	for _, rec := range records {
		set[rec.Fingerprint] = rec
	}
}

// Get returns a copy of the tab's set. ok is false if the tab has never been
// observed or was cleared.
func (s *TabStore) Get(tabID int) (certwatch.TabCertificateSet, bool) {
	set, ok := s.tabs[tabID]
	if !ok {
		return certwatch.TabCertificateSet{}, false
	}
	return maps.Clone(set), true
}

// Len returns the number of records held for the tab.
func (s *TabStore) Len(tabID int) int {
	return len(s.tabs[tabID])
}

// Clear removes the tab's entire set and reports whether one existed.
func (s *TabStore) Clear(tabID int) bool {
	if _, ok := s.tabs[tabID]; !ok {
		return false
	}
	delete(s.tabs, tabID)
	return true
}

// Tabs returns the IDs of all tabs with a set, sorted ascending.
func (s *TabStore) Tabs() []int {
	return slices.Sorted(maps.Keys(s.tabs))
}

// DumpDebug logs every record at debug level.
func (s *TabStore) DumpDebug() {
	slog.Debug("dumping tab certificates")
	for _, tabID := range s.Tabs() {
		for fp, rec := range s.tabs[tabID] {
			slog.Debug("certificate record",
				"tab", tabID,
				"fingerprint", fp,
				"cn", rec.CommonName,
				"not_before", rec.ValidFrom.Format(time.RFC3339),
				"expiry", rec.ValidTo.Format(time.RFC3339),
				"observed", rec.ObservedAt.Format(time.RFC3339),
				"status", rec.Status())
		}
	}
	slog.Debug("total tabs", "count", len(s.tabs))
}
