package certstore

import (
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sensiblebit/certwatch"
)

// ErrNoCertificates is returned by ProcessData when the input held nothing
// that parsed as a certificate.
var ErrNoCertificates = errors.New("no certificates found")

// ProcessData parses certificates from in-memory data and dispatches them to
// the handler in file order. PEM input is detected by content; binary input
// is tried as DER, PKCS#7 and, for recognized store extensions, JKS and
// PKCS#12 trust stores with each password in turn.
func ProcessData(input ProcessInput) error {
	if len(input.Data) == 0 {
		return fmt.Errorf("%s: %w", input.Path, ErrNoCertificates)
	}

	certs, err := parseCertificates(input)
	if err != nil {
		return err
	}

	var handled int
	for _, cert := range certs {
		if err := input.Handler.HandleCertificate(cert, input.Path); err != nil {
			slog.Debug("handler rejected certificate", "path", input.Path, "error", err)
			continue
		}
		handled++
	}
	slog.Debug("processed certificates", "path", input.Path, "count", handled)
	return nil
}

func parseCertificates(input ProcessInput) ([]*x509.Certificate, error) {
	if certwatch.IsPEM(input.Data) {
		slog.Debug("processing as PEM format", "path", input.Path)
		certs, err := certwatch.ParsePEMCertificates(input.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w (%v)", input.Path, ErrNoCertificates, err)
		}
		return certs, nil
	}

	if certs, err := certwatch.ParseCertificatesAny(input.Data); err == nil {
		return certs, nil
	}

	if HasKeystoreExtension(input.Path) {
		for _, pw := range input.Passwords {
			if certs, err := certwatch.DecodeJKSTrustedCerts(input.Data, pw); err == nil {
				return certs, nil
			}
			if certs, err := certwatch.DecodePKCS12TrustStore(input.Data, pw); err == nil {
				return certs, nil
			}
		}
	}

	return nil, fmt.Errorf("%s: %w", input.Path, ErrNoCertificates)
}
