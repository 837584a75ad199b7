// Package ctlogtest creates throwaway CT logs that can sign SCTs, for
// tests that exercise stapled-SCT verification.
package ctlogtest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"time"

	"httpsconn/internal/ctlog"
)

// TestLog is a CT log whose private key is available to sign SCTs.
type TestLog struct {
	Log    ctlog.Log
	KeyDER []byte

	signer crypto.Signer
	sigAlg uint8
}

// NewECDSALog generates a P-256 log.
func NewECDSALog(description string) (*TestLog, error) {
	k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ecdsa key: %w", err)
	}
	return newLog(description, k, 3)
}

// NewRSALog generates a 2048-bit RSA log.
func NewRSALog(description string) (*TestLog, error) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate rsa key: %w", err)
	}
	return newLog(description, k, 1)
}

func newLog(description string, signer crypto.Signer, sigAlg uint8) (*TestLog, error) {
	der, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	l, err := ctlog.NewLog(description, der)
	if err != nil {
		return nil, err
	}
	return &TestLog{Log: l, KeyDER: der, signer: signer, sigAlg: sigAlg}, nil
}

// SignSCT returns a serialized SCT over leafDER issued at ts.
func (l *TestLog) SignSCT(leafDER []byte, ts time.Time) ([]byte, error) {
	msg, err := ctlog.SignedData(leafDER, uint64(ts.UnixMilli()), nil)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(msg)
	sig, err := l.signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return nil, fmt.Errorf("failed to sign SCT: %w", err)
	}

	sct := &ctlog.SCT{
		LogID:     l.Log.ID,
		Timestamp: uint64(ts.UnixMilli()),
		HashAlg:   4,
		SigAlg:    l.sigAlg,
		Signature: sig,
	}
	return sct.Marshal()
}

// ListJSON renders logs in the published v3 log list format.
func ListJSON(operator string, logs ...*TestLog) []byte {
	out := fmt.Sprintf(`{"version":"test","operators":[{"name":%q,"logs":[`, operator)
	for i, l := range logs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"description":%q,"log_id":%q,"key":%q,"url":"https://ct.example.test/%d/"}`,
			l.Log.Description,
			base64.StdEncoding.EncodeToString(l.Log.ID[:]),
			base64.StdEncoding.EncodeToString(l.KeyDER),
			i)
	}
	return []byte(out + "]}]}")
}
