package internal

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"

	"github.com/breml/rootcerts/embedded"
	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal/certstore"
)

// Trust store names accepted by NewAnchorSet.
const (
	TrustStoreMozilla = "mozilla"
	TrustStoreSystem  = "system"
	TrustStoreNone    = "none"
)

// AnchorSet holds the platform-trusted root certificates. Chain entries that
// are anchors are marked as built-in roots and never classified.
type AnchorSet struct {
	fingerprints map[string]struct{}
	system       *x509.CertPool
}

// NewAnchorSet loads the named trust store. "mozilla" uses the embedded
// Mozilla root program, "system" the operating system pool, "none" starts
// empty for anchors added from files only.
func NewAnchorSet(trustStore string) (*AnchorSet, error) {
	a := &AnchorSet{fingerprints: make(map[string]struct{})}

	switch trustStore {
	case TrustStoreMozilla, "":
		certs, err := certwatch.ParsePEMCertificates([]byte(embedded.MozillaCACertificatesPEM()))
		if err != nil {
			return nil, fmt.Errorf("parsing embedded Mozilla root certificates: %w", err)
		}
		for _, cert := range certs {
			a.Add(cert)
		}
	case TrustStoreSystem:
		pool, err := x509.SystemCertPool()
		if err != nil {
			return nil, fmt.Errorf("loading system cert pool: %w", err)
		}
		a.system = pool
	case TrustStoreNone:
	default:
		return nil, fmt.Errorf("unknown trust store: %q", trustStore)
	}

	slog.Debug("loaded trust store", "store", trustStore, "anchors", len(a.fingerprints))
	return a, nil
}

// Add registers cert as an anchor.
func (a *AnchorSet) Add(cert *x509.Certificate) {
	a.fingerprints[certwatch.CertFingerprintColonSHA256(cert)] = struct{}{}
}

// HandleCertificate implements certstore.CertHandler so anchor files can be
// loaded through the processing pipeline.
func (a *AnchorSet) HandleCertificate(cert *x509.Certificate, source string) error {
	a.Add(cert)
	slog.Debug("added anchor", "cn", certstore.DisplayName(cert.Subject.CommonName), "source", source)
	return nil
}

// AddFile loads every certificate in the file at path as an anchor. PEM, DER,
// PKCS#7, JKS and PKCS#12 trust stores are accepted; store passwords are tried
// in order.
func (a *AnchorSet) AddFile(path string, passwords []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading anchor file: %w", err)
	}
	if err := certstore.ProcessData(certstore.ProcessInput{
		Data:      data,
		Path:      path,
		Passwords: certstore.DeduplicatePasswords(passwords),
		Handler:   a,
	}); err != nil {
		return fmt.Errorf("loading anchors: %w", err)
	}
	return nil
}

// Len returns the number of anchors known by fingerprint. Anchors of the
// system pool are not counted.
func (a *AnchorSet) Len() int {
	return len(a.fingerprints)
}

// IsAnchor reports whether cert is a trusted root. A certificate matches when
// its fingerprint is registered, or, for the system store, when it is
// self-signed and verifies against the system pool on its own.
func (a *AnchorSet) IsAnchor(cert *x509.Certificate) bool {
	if a == nil {
		return false
	}
	if _, ok := a.fingerprints[certwatch.CertFingerprintColonSHA256(cert)]; ok {
		return true
	}
	if a.system == nil || !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
		return false
	}
	_, err := cert.Verify(x509.VerifyOptions{
		Roots:       a.system,
		CurrentTime: cert.NotBefore,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	return err == nil
}
