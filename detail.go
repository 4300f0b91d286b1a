package certwatch

import (
	"cmp"
	"slices"
	"strconv"
)

// Status classes used by the detail view.
const (
	StatusError   = "error"
	StatusWarning = "warning"
	StatusGood    = "good"
)

// Status returns the display class of a record: "error" for early or expired
// certificates, "warning" inside the almost-expired window, "good" otherwise.
func (r CertificateRecord) Status() string {
	switch {
	case r.IsEarly || r.IsExpired:
		return StatusError
	case r.IsAlmostExpired:
		return StatusWarning
	default:
		return StatusGood
	}
}

// Label returns the short note shown next to a certificate: "Early",
// "Expired" or "<n> days".
func (r CertificateRecord) Label() string {
	switch {
	case r.IsEarly:
		return "Early"
	case r.IsExpired:
		return "Expired"
	default:
		return strconv.Itoa(r.DaysRemaining()) + " days"
	}
}

// SortedRecords returns the records of a set in display order: early or
// expired certificates first, then by time remaining ascending, ties broken
// by common name in descending order.
func SortedRecords(set TabCertificateSet) []CertificateRecord {
	records := make([]CertificateRecord, 0, len(set))
	for _, rec := range set {
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b CertificateRecord) int {
		aBad := a.IsEarly || a.IsExpired
		bBad := b.IsEarly || b.IsExpired
		if aBad != bBad {
			if aBad {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.TimeRemaining, b.TimeRemaining); c != 0 {
			return c
		}
		if c := cmp.Compare(b.CommonName, a.CommonName); c != 0 {
			return c
		}
		return cmp.Compare(a.Fingerprint, b.Fingerprint)
	})
	return records
}
