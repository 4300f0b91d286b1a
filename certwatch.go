// Package certwatch classifies the TLS certificates observed on browser tabs
// and reduces them to a single icon and badge per tab. It also provides the
// certificate parsing and fingerprint helpers used to turn raw chain files
// into observations.
package certwatch

import (
	"bytes"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ParsePEMCertificates parses all certificates from a PEM bundle.
func ParsePEMCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("no certificates found in PEM data")
	}
	return certs, nil
}

// ParseCertificatesAny attempts to parse certificates from raw bytes, trying
// PEM first (chain files are usually PEM), then concatenated DER, then
// PKCS#7/P7B.
func ParseCertificatesAny(data []byte) ([]*x509.Certificate, error) {
	if IsPEM(data) {
		certs, err := ParsePEMCertificates(data)
		if err != nil {
			return nil, err
		}
		return certs, nil
	}
	certs, derErr := x509.ParseCertificates(data)
	if derErr == nil && len(certs) > 0 {
		return certs, nil
	}
	certs, p7Err := DecodePKCS7(data)
	if p7Err == nil {
		return certs, nil
	}
	return nil, fmt.Errorf("not PEM, DER (%v) or PKCS#7 (%v)", derErr, p7Err)
}

// IsPEM returns true if the data appears to contain PEM-encoded content.
func IsPEM(data []byte) bool {
	return bytes.Contains(data, []byte("-----BEGIN"))
}

// ColonHex formats a byte slice as colon-separated lowercase hex.
func ColonHex(b []byte) string {
	h := hex.EncodeToString(b)
	parts := make([]string, 0, len(h)/2)
	for i := 0; i < len(h); i += 2 {
		parts = append(parts, h[i:i+2])
	}
	return strings.Join(parts, ":")
}

// CertFingerprintColonSHA256 returns the SHA-256 fingerprint of a certificate
// in uppercase colon-separated hex format (AA:BB:CC:...), matching the format
// browsers report in their security info.
func CertFingerprintColonSHA256(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return strings.ToUpper(ColonHex(hash[:]))
}

var commonNamePattern = regexp.MustCompile(`(?i)CN=(.*?)(?:,|$)`)

// ParseCommonName extracts the first CN attribute from a subject string such
// as "CN=example.com,O=Example,C=US". Matching is case-insensitive and the
// value runs to the next comma or the end of the string. Subjects without a
// CN attribute yield "".
//
// Subjects carrying several CN attributes resolve to the first one.
func ParseCommonName(subject string) string {
	m := commonNamePattern.FindStringSubmatch(subject)
	if m == nil {
		return ""
	}
	return m[1]
}
