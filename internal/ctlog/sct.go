package ctlog

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"time"

	"golang.org/x/crypto/cryptobyte"
)

var (
	ErrMalformedSCT                  = errors.New("ctlog: malformed SCT")
	ErrUnsupportedVersion            = errors.New("ctlog: unsupported SCT version")
	ErrUnknownLog                    = errors.New("ctlog: SCT from unknown log")
	ErrUnsupportedSignatureAlgorithm = errors.New("ctlog: unsupported signature algorithm")
	ErrInvalidSignature              = errors.New("ctlog: invalid SCT signature")
	ErrTimestampInFuture             = errors.New("ctlog: SCT timestamp in the future")
)

// IsFatal reports whether an SCT verification error must fail the
// handshake.  SCTs from unknown logs or in unknown versions are skipped.
func IsFatal(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrUnknownLog) &&
		!errors.Is(err, ErrUnsupportedVersion)
}

const (
	hashSHA256 = 4
	sigRSA     = 1
	sigECDSA   = 3

	sctVersionV1 = 0
)

// SCT is a decoded v1 signed certificate timestamp.
type SCT struct {
	LogID      [32]byte
	Timestamp  uint64 // milliseconds since the Unix epoch
	Extensions []byte
	HashAlg    uint8
	SigAlg     uint8
	Signature  []byte
}

// ParseSCT decodes a single serialized SCT.
func ParseSCT(raw []byte) (*SCT, error) {
	s := cryptobyte.String(raw)

	var version uint8
	if !s.ReadUint8(&version) {
		return nil, ErrMalformedSCT
	}
	if version != sctVersionV1 {
		return nil, ErrUnsupportedVersion
	}

	var (
		sct      SCT
		logID    []byte
		ext, sig cryptobyte.String
	)
	if !s.ReadBytes(&logID, 32) ||
		!s.ReadUint64(&sct.Timestamp) ||
		!s.ReadUint16LengthPrefixed(&ext) ||
		!s.ReadUint8(&sct.HashAlg) ||
		!s.ReadUint8(&sct.SigAlg) ||
		!s.ReadUint16LengthPrefixed(&sig) ||
		!s.Empty() {
		return nil, ErrMalformedSCT
	}
	copy(sct.LogID[:], logID)
	sct.Extensions = []byte(ext)
	sct.Signature = []byte(sig)
	return &sct, nil
}

// Marshal serializes the SCT.
func (s *SCT) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint8(sctVersionV1)
	b.AddBytes(s.LogID[:])
	b.AddUint64(s.Timestamp)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(s.Extensions) })
	b.AddUint8(s.HashAlg)
	b.AddUint8(s.SigAlg)
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(s.Signature) })
	return b.Bytes()
}

// SignedData returns the bytes a log signs for an x509_entry SCT over
// the DER-encoded leaf certificate.
func SignedData(leafDER []byte, timestamp uint64, extensions []byte) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint8(sctVersionV1)
	b.AddUint8(0) // signature_type: certificate_timestamp
	b.AddUint64(timestamp)
	b.AddUint16(0) // entry_type: x509_entry
	b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(leafDER) })
	b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) { b.AddBytes(extensions) })
	return b.Bytes()
}

// Verify checks one serialized SCT for leafDER against logs and returns
// the index of the log that issued it.
func Verify(leafDER, raw []byte, logs []Log, now time.Time) (int, error) {
	sct, err := ParseSCT(raw)
	if err != nil {
		return -1, err
	}

	idx := findLog(logs, sct.LogID[:])
	if idx < 0 {
		return -1, ErrUnknownLog
	}

	if sct.HashAlg != hashSHA256 {
		return -1, ErrUnsupportedSignatureAlgorithm
	}
	msg, err := SignedData(leafDER, sct.Timestamp, sct.Extensions)
	if err != nil {
		return -1, ErrMalformedSCT
	}
	digest := sha256.Sum256(msg)

	switch key := logs[idx].Key.(type) {
	case *ecdsa.PublicKey:
		if sct.SigAlg != sigECDSA {
			return -1, ErrUnsupportedSignatureAlgorithm
		}
		if !ecdsa.VerifyASN1(key, digest[:], sct.Signature) {
			return -1, ErrInvalidSignature
		}
	case *rsa.PublicKey:
		if sct.SigAlg != sigRSA {
			return -1, ErrUnsupportedSignatureAlgorithm
		}
		if rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sct.Signature) != nil {
			return -1, ErrInvalidSignature
		}
	default:
		return -1, ErrUnsupportedSignatureAlgorithm
	}

	if sct.Timestamp > uint64(now.UnixMilli()) {
		return -1, ErrTimestampInFuture
	}
	return idx, nil
}

// VerifyAll checks every stapled SCT and returns how many verified.
// Non-fatal results are skipped; when logs and SCTs are both present
// but none verified, the last error is returned.
func VerifyAll(leafDER []byte, scts [][]byte, logs []Log, now time.Time) (int, error) {
	var (
		valid   int
		lastErr error
	)
	for _, raw := range scts {
		if _, err := Verify(leafDER, raw, logs, now); err != nil {
			if IsFatal(err) {
				return valid, err
			}
			lastErr = err
			continue
		}
		valid++
	}

	if len(logs) > 0 && len(scts) > 0 && valid == 0 {
		return 0, lastErr
	}
	return valid, nil
}
