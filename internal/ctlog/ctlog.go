// Package ctlog holds certificate-transparency log data and verifies
// the signed certificate timestamps (RFC 6962) a server staples during
// the TLS handshake.
package ctlog

import (
	"bytes"
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Log is a single CT log trusted for SCT verification.
type Log struct {
	Operator    string
	Description string
	URL         string

	// ID is the SHA-256 of the DER-encoded SubjectPublicKeyInfo.
	ID  [32]byte
	Key crypto.PublicKey
}

// NewLog builds a Log from a DER-encoded SubjectPublicKeyInfo.
func NewLog(description string, keyDER []byte) (Log, error) {
	key, err := x509.ParsePKIXPublicKey(keyDER)
	if err != nil {
		return Log{}, fmt.Errorf("log %q: parsing key: %w", description, err)
	}
	return Log{
		Description: description,
		ID:          sha256.Sum256(keyDER),
		Key:         key,
	}, nil
}

// logList mirrors the published v3 log list JSON.  JSON is valid YAML,
// so the same decoder serves both the upstream file and hand-written
// YAML lists.
type logList struct {
	Operators []struct {
		Name string `yaml:"name"`
		Logs []struct {
			Description string `yaml:"description"`
			LogID       string `yaml:"log_id"`
			Key         string `yaml:"key"`
			URL         string `yaml:"url"`
		} `yaml:"logs"`
	} `yaml:"operators"`
}

// ParseList decodes a log list.  Every entry must carry a valid key;
// when log_id is present it must match the key.
func ParseList(r io.Reader) ([]Log, error) {
	var list logList
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&list); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding log list: %w", err)
	}

	var out []Log
	for _, op := range list.Operators {
		for _, l := range op.Logs {
			der, err := base64.StdEncoding.DecodeString(l.Key)
			if err != nil {
				return nil, fmt.Errorf("log %q: key is not base64: %w", l.Description, err)
			}
			lg, err := NewLog(l.Description, der)
			if err != nil {
				return nil, err
			}
			if l.LogID != "" {
				id, err := base64.StdEncoding.DecodeString(l.LogID)
				if err != nil {
					return nil, fmt.Errorf("log %q: log_id is not base64: %w", l.Description, err)
				}
				if !bytes.Equal(id, lg.ID[:]) {
					return nil, fmt.Errorf("log %q: log_id does not match key", l.Description)
				}
			}
			lg.Operator = op.Name
			lg.URL = l.URL
			out = append(out, lg)
		}
	}
	return out, nil
}

// LoadFile reads a log list from path.
func LoadFile(path string) ([]Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	logs, err := ParseList(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return logs, nil
}

func findLog(logs []Log, id []byte) int {
	for i := range logs {
		if bytes.Equal(logs[i].ID[:], id) {
			return i
		}
	}
	return -1
}
