package certstore

import (
	"path/filepath"
	"strings"
)

// keystoreExtensions contains file extensions for Java KeyStore and PKCS#12
// trust stores. Only files with these extensions are tried as password
// protected stores.
var keystoreExtensions = map[string]bool{
	".jks":        true,
	".keystore":   true,
	".truststore": true,
	".p12":        true,
	".pfx":        true,
}

// HasKeystoreExtension reports whether the file path has a recognized JKS or
// PKCS#12 extension, matched case-insensitively.
func HasKeystoreExtension(path string) bool {
	return keystoreExtensions[strings.ToLower(filepath.Ext(path))]
}

// DefaultPasswords returns the passwords tried by default when opening trust
// stores. Returns a fresh copy each call.
func DefaultPasswords() []string {
	return []string{"", "changeit", "password"}
}

// DeduplicatePasswords merges additional passwords with the defaults and
// removes duplicates while preserving order. Defaults come first.
func DeduplicatePasswords(extra []string) []string {
	all := append(DefaultPasswords(), extra...)
	seen := make(map[string]bool, len(all))
	result := make([]string, 0, len(all))
	for _, p := range all {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}

// DisplayName returns a common name for display, substituting a placeholder
// for certificates whose subject carried no CN.
func DisplayName(cn string) string {
	if cn == "" {
		return "(no common name)"
	}
	return cn
}
