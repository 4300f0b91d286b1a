package certwatch

import "strconv"

// Icon is the indicator colour shown for a tab.
type Icon string

const (
	IconGreen  Icon = "green"
	IconOrange Icon = "orange"
	IconRed    Icon = "red"
)

// ClearedBadge marks a tab whose data the user removed explicitly.
const ClearedBadge = "!"

// TabState is the single icon and badge derived for a tab.
type TabState struct {
	Icon  Icon   `json:"icon"`
	Badge string `json:"badge"`
}

// Cleared is the fixed state shown after a tab's data was removed. It is
// distinct from both a healthy tab and a tab that was never observed.
var Cleared = TabState{Icon: IconRed, Badge: ClearedBadge}

// TabCertificateSet maps certificate fingerprints to their latest record for
// one tab.
type TabCertificateSet map[string]CertificateRecord

// HiddenSet reports whether a common name has been hidden by the user.
type HiddenSet interface {
	Contains(name string) bool
}

// Aggregate reduces the visible records of a tab to one state. Records whose
// common name is hidden are ignored. Early and expired certificates dominate
// everything else; otherwise the soonest almost-expired certificate turns the
// tab orange with its remaining whole days as the badge.
//
// A nil hidden set hides nothing.
func Aggregate(set TabCertificateSet, hidden HiddenSet, policy Policy) TabState {
	window := policy.Window()

	var anyEarly, anyExpired bool
	minRemaining := window
	for _, rec := range set {
		if hidden != nil && hidden.Contains(rec.CommonName) {
			continue
		}
		anyEarly = anyEarly || rec.IsEarly
		anyExpired = anyExpired || rec.IsExpired
		if rec.IsAlmostExpired && rec.TimeRemaining < minRemaining {
			minRemaining = rec.TimeRemaining
		}
	}

	switch {
	case anyEarly:
		return TabState{Icon: IconRed}
	case anyExpired:
		return TabState{Icon: IconRed}
	case minRemaining < window:
		return TabState{Icon: IconOrange, Badge: strconv.Itoa(int(minRemaining / Day))}
	default:
		return TabState{Icon: IconGreen}
	}
}
