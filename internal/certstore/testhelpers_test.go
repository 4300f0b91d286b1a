package certstore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/sensiblebit/certwatch"
)

// testCert holds a self-signed certificate and its encodings.
type testCert struct {
	cert    *x509.Certificate
	certPEM []byte
	certDER []byte
}

// newSelfSigned generates a self-signed ECDSA certificate for testing.
func newSelfSigned(t *testing.T, cn string, serial int64) testCert {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ECDSA key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"TestOrg"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	return testCert{cert: cert, certPEM: certPEM, certDER: certDER}
}

// record builds a classified record that expires in the given duration from
// a fixed observation instant.
func record(fingerprint, cn string, remaining time.Duration) certwatch.CertificateRecord {
	observed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, _ := certwatch.Classify(certwatch.ChainEntry{
		Subject:     "CN=" + cn + ",O=TestOrg",
		ValidFrom:   observed.Add(-30 * certwatch.Day),
		ValidTo:     observed.Add(remaining),
		Fingerprint: fingerprint,
	}, observed, certwatch.DefaultPolicy())
	return rec
}

// collectingHandler records every certificate it receives.
type collectingHandler struct {
	certs   []*x509.Certificate
	sources []string
}

func (h *collectingHandler) HandleCertificate(cert *x509.Certificate, source string) error {
	h.certs = append(h.certs, cert)
	h.sources = append(h.sources, source)
	return nil
}

// memNameStore is an in-memory NameStore that can be told to fail.
type memNameStore struct {
	names   []string
	saves   int
	failErr error
}

func (m *memNameStore) LoadNames(_ context.Context) ([]string, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	return append([]string(nil), m.names...), nil
}

func (m *memNameStore) SaveNames(_ context.Context, names []string) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	m.names = append([]string(nil), names...)
	return nil
}

var errStoreDown = errors.New("store down")
