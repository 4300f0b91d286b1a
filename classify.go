package certwatch

import (
	"crypto/x509"
	"time"
)

// Day is the unit used for badge day counts.
const Day = 24 * time.Hour

// DefaultAlmostExpiredWindow is how long before expiry a certificate starts
// producing a warning.
const DefaultAlmostExpiredWindow = 28 * Day

// Policy holds the classification threshold. The almost-expired window is the
// only tunable.
type Policy struct {
	AlmostExpiredWindow time.Duration
}

// DefaultPolicy returns the 28-day policy.
func DefaultPolicy() Policy {
	return Policy{AlmostExpiredWindow: DefaultAlmostExpiredWindow}
}

// Window returns the configured window, falling back to the default for a
// zero or negative value.
func (p Policy) Window() time.Duration {
	if p.AlmostExpiredWindow <= 0 {
		return DefaultAlmostExpiredWindow
	}
	return p.AlmostExpiredWindow
}

// ChainEntry is one certificate of a chain as supplied by the host's security
// inspection.
type ChainEntry struct {
	Subject       string    `json:"subject"`
	ValidFrom     time.Time `json:"validFrom"`
	ValidTo       time.Time `json:"validTo"`
	IsBuiltInRoot bool      `json:"isBuiltInRoot"`
	Fingerprint   string    `json:"fingerprint"`
}

// ChainEntryFromCertificate builds a ChainEntry from a parsed certificate.
// The caller decides whether the certificate is a platform-trusted anchor.
func ChainEntryFromCertificate(cert *x509.Certificate, builtInRoot bool) ChainEntry {
	return ChainEntry{
		Subject:       cert.Subject.String(),
		ValidFrom:     cert.NotBefore,
		ValidTo:       cert.NotAfter,
		IsBuiltInRoot: builtInRoot,
		Fingerprint:   CertFingerprintColonSHA256(cert),
	}
}

// CertificateRecord is the classification of one certificate as observed on
// a tab at a given instant.
type CertificateRecord struct {
	Fingerprint     string        `json:"fingerprint"`
	CommonName      string        `json:"commonName"`
	Subject         string        `json:"subject"`
	ValidFrom       time.Time     `json:"validFrom"`
	ValidTo         time.Time     `json:"validTo"`
	ObservedAt      time.Time     `json:"observedAt"`
	TimeRemaining   time.Duration `json:"timeRemaining"`
	IsEarly         bool          `json:"isEarly"`
	IsExpired       bool          `json:"isExpired"`
	IsAlmostExpired bool          `json:"isAlmostExpired"`
}

// DaysRemaining returns the whole days left before expiry, truncated toward
// zero.
func (r CertificateRecord) DaysRemaining() int {
	return int(r.TimeRemaining / Day)
}

// Classify produces the record for one chain entry observed at observedAt.
// Built-in roots are never recorded and report false.
func Classify(entry ChainEntry, observedAt time.Time, policy Policy) (CertificateRecord, bool) {
	if entry.IsBuiltInRoot {
		return CertificateRecord{}, false
	}

	remaining := entry.ValidTo.Sub(observedAt)
	return CertificateRecord{
		Fingerprint:     entry.Fingerprint,
		CommonName:      ParseCommonName(entry.Subject),
		Subject:         entry.Subject,
		ValidFrom:       entry.ValidFrom,
		ValidTo:         entry.ValidTo,
		ObservedAt:      observedAt,
		TimeRemaining:   remaining,
		IsEarly:         observedAt.Before(entry.ValidFrom),
		IsExpired:       remaining < 0,
		IsAlmostExpired: remaining < policy.Window(),
	}, true
}

// ClassifyChain classifies every non-anchor entry of a chain, keeping chain
// order.
func ClassifyChain(entries []ChainEntry, observedAt time.Time, policy Policy) []CertificateRecord {
	records := make([]CertificateRecord, 0, len(entries))
	for _, entry := range entries {
		if rec, ok := Classify(entry, observedAt, policy); ok {
			records = append(records, rec)
		}
	}
	return records
}
