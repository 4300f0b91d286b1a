package internal

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sensiblebit/certwatch/internal/certstore"
)

// LoadPasswordsFromFile loads trust store passwords from a file, one per
// line. Blank lines are skipped.
func LoadPasswordsFromFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var passwords []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			passwords = append(passwords, pwd)
		}
	}
	return passwords, scanner.Err()
}

// ProcessPasswords merges the default trust store passwords, the configured
// ones and those from passwordFile, in that order and without duplicates.
func ProcessPasswords(configured []string, passwordFile string) ([]string, error) {
	extra := append([]string(nil), configured...)
	if passwordFile != "" {
		filePasswords, err := LoadPasswordsFromFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("loading passwords from file: %w", err)
		}
		extra = append(extra, filePasswords...)
	}
	return certstore.DeduplicatePasswords(extra), nil
}
