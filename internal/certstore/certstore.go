// Package certstore holds the per-tab certificate records, the persisted set
// of hidden common names, and the ingestion pipeline that turns certificate
// files into parsed certificates. None of its types synchronize access;
// callers serialize events (see the monitor package).
package certstore

import (
	"context"
	"crypto/x509"
)

// CertHandler receives parsed certificates from the processing pipeline.
type CertHandler interface {
	HandleCertificate(cert *x509.Certificate, source string) error
}

// ProcessInput holds parameters for ProcessData.
type ProcessInput struct {
	Data      []byte      // raw file content
	Path      string      // path for logging and extension detection
	Passwords []string    // passwords to try for JKS and PKCS#12 stores
	Handler   CertHandler // receives parsed certificates
}

// NameStore persists the hidden common-name set. Save always receives the
// complete set.
type NameStore interface {
	LoadNames(ctx context.Context) ([]string, error)
	SaveNames(ctx context.Context, names []string) error
}
