package internal

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sensiblebit/certwatch"
	"github.com/sensiblebit/certwatch/internal/certstore"
	"github.com/sensiblebit/certwatch/internal/monitor"
)

// chainExtensions are tried, in order, when resolving a request ID to a chain
// file.
var chainExtensions = []string{"", ".pem", ".crt", ".cer", ".der", ".p7b", ".p7c"}

// ErrChainNotFound is returned when no chain file exists for a request.
var ErrChainNotFound = errors.New("chain not found")

// chainCollector keeps certificates in the order the file lists them.
type chainCollector struct {
	certs []*x509.Certificate
}

func (c *chainCollector) HandleCertificate(cert *x509.Certificate, _ string) error {
	c.certs = append(c.certs, cert)
	return nil
}

// ReadChainFile parses the certificate chain in the file at path and returns
// one entry per certificate, marking anchors as built-in roots.
func ReadChainFile(path string, passwords []string, anchors *AnchorSet) ([]certwatch.ChainEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var collector chainCollector
	if err := certstore.ProcessData(certstore.ProcessInput{
		Data:      data,
		Path:      path,
		Passwords: certstore.DeduplicatePasswords(passwords),
		Handler:   &collector,
	}); err != nil {
		return nil, err
	}

	entries := make([]certwatch.ChainEntry, 0, len(collector.certs))
	for _, cert := range collector.certs {
		entries = append(entries, certwatch.ChainEntryFromCertificate(cert, anchors.IsAnchor(cert)))
	}
	return entries, nil
}

// InspectChainFile classifies the chain in the file at path as observed at
// now and returns the records keyed by fingerprint.
func InspectChainFile(path string, passwords []string, anchors *AnchorSet, now time.Time, policy certwatch.Policy) (certwatch.TabCertificateSet, error) {
	entries, err := ReadChainFile(path, passwords, anchors)
	if err != nil {
		return nil, err
	}
	set := make(certwatch.TabCertificateSet, len(entries))
	for _, rec := range certwatch.ClassifyChain(entries, now, policy) {
		set[rec.Fingerprint] = rec
	}
	return set, nil
}

// ChainDirInspector serves security info from a directory holding one chain
// file per request, named by request ID with an optional certificate
// extension.
type ChainDirInspector struct {
	Dir       string
	Passwords []string
	Anchors   *AnchorSet
}

// SecurityInfo implements monitor.Inspector.
func (i *ChainDirInspector) SecurityInfo(ctx context.Context, requestID string) (*monitor.SecurityInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := i.resolve(requestID)
	if err != nil {
		return nil, err
	}
	entries, err := ReadChainFile(path, i.Passwords, i.Anchors)
	if err != nil {
		return nil, err
	}
	slog.Debug("read chain", "request", requestID, "path", path, "certificates", len(entries))
	return &monitor.SecurityInfo{Certificates: entries}, nil
}

func (i *ChainDirInspector) resolve(requestID string) (string, error) {
	if requestID == "" || requestID == "." || requestID == ".." ||
		strings.ContainsAny(requestID, `/\`) {
		return "", fmt.Errorf("invalid request ID %q", requestID)
	}
	for _, ext := range chainExtensions {
		path := filepath.Join(i.Dir, requestID+ext)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("request %s: %w", requestID, ErrChainNotFound)
}
