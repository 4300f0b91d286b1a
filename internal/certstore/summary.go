package certstore

import "github.com/sensiblebit/certwatch"

// TabSummary holds per-state counts for one tab.
type TabSummary struct {
	Total         int `json:"total"`
	Early         int `json:"early"`
	Expired       int `json:"expired"`
	AlmostExpired int `json:"almost_expired"`
	Hidden        int `json:"hidden"`
}

// Summarize counts the records of set by state. Early and expired records are
// not also counted as almost expired. Records whose common name is in hidden
// are counted only under Hidden; a nil hidden set hides nothing.
func Summarize(set certwatch.TabCertificateSet, hidden certwatch.HiddenSet) TabSummary {
	var summary TabSummary
	for _, rec := range set {
		summary.Total++
		if hidden != nil && hidden.Contains(rec.CommonName) {
			summary.Hidden++
			continue
		}
		switch {
		case rec.IsEarly:
			summary.Early++
		case rec.IsExpired:
			summary.Expired++
		case rec.IsAlmostExpired:
			summary.AlmostExpired++
		}
	}
	return summary
}

// Summary counts the tab's records by state. An unknown tab has an empty
// summary.
func (s *TabStore) Summary(tabID int, hidden *HiddenNames) TabSummary {
	return Summarize(s.tabs[tabID], hidden)
}
