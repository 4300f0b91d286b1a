package certwatch

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
)

// DecodeJKSTrustedCerts decodes a Java KeyStore (JKS) and returns the
// certificates of its TrustedCertificateEntry entries. Private key entries are
// ignored. Individual entry errors are skipped; an error is returned only if
// the store cannot be loaded or holds no usable certificates.
func DecodeJKSTrustedCerts(data []byte, password string) ([]*x509.Certificate, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return nil, fmt.Errorf("loading JKS: %w", err)
	}

	var certs []*x509.Certificate
	for _, alias := range ks.Aliases() {
		if !ks.IsTrustedCertificateEntry(alias) {
			continue
		}
		entry, err := ks.GetTrustedCertificateEntry(alias)
		if err != nil {
			continue
		}
		cert, err := x509.ParseCertificate(entry.Certificate.Content)
		if err != nil {
			continue
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, errors.New("JKS contains no trusted certificates")
	}
	return certs, nil
}

// EncodeJKSTrustStore creates a Java KeyStore holding one trusted certificate
// entry per certificate, aliased by its SHA-256 fingerprint.
func EncodeJKSTrustStore(certs []*x509.Certificate, password string) ([]byte, error) {
	if len(certs) == 0 {
		return nil, errors.New("no certificates to encode")
	}

	ks := keystore.New()
	for _, cert := range certs {
		err := ks.SetTrustedCertificateEntry(CertFingerprintColonSHA256(cert), keystore.TrustedCertificateEntry{
			CreationTime: time.Now(),
			Certificate: keystore.Certificate{
				Type:    "X.509",
				Content: cert.Raw,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("setting JKS trusted certificate entry: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := ks.Store(&buf, []byte(password)); err != nil {
		return nil, fmt.Errorf("storing JKS: %w", err)
	}
	return buf.Bytes(), nil
}
