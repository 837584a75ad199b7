// Package tlstest generates throwaway certificate authorities and leaf
// certificates, and runs local TLS servers for connector tests.
package tlstest

import (
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

// CA is a certificate authority.
type CA struct {
	Cert    *x509.Certificate
	PrivKey ed25519.PrivateKey

	// Counter for the next generated certificate.
	prevSerial int64
}

// Leaf is a server certificate issued by a [CA].
type Leaf struct {
	Cert    *x509.Certificate
	PrivKey ed25519.PrivateKey

	// Chain is the DER chain presented during the handshake.
	Chain [][]byte
}

// GenerateCA generates a new self-signed CA valid for an hour.
func GenerateCA(commonName string) (*CA, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	template := &x509.Certificate{
		// Fixed at 1; the CA keeps a counter for subsequent serials.
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test CA"},
			CommonName:   commonName,
		},
		NotBefore: time.Now().Add(-15 * time.Second),
		NotAfter:  time.Now().Add(time.Hour),

		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	der, err := x509.CreateCertificate(nil, template, template, pub, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate from DER: %w", err)
	}

	return &CA{Cert: cert, PrivKey: priv, prevSerial: 1}, nil
}

// Pool returns a fresh pool trusting only ca.
func (ca *CA) Pool() *x509.CertPool {
	p := x509.NewCertPool()
	p.AddCert(ca.Cert)
	return p
}

// PEM returns the CA certificate in PEM form.
func (ca *CA) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ca.Cert.Raw})
}

// CreateLeaf issues a server certificate for dnsNames.  127.0.0.1 is
// always included as an IP SAN so tests can also dial by address.
func (ca *CA) CreateLeaf(dnsNames ...string) (*Leaf, error) {
	if len(dnsNames) == 0 {
		panic(errors.New("BUG: CreateLeaf needs at least one DNS name"))
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	ca.prevSerial++
	template := &x509.Certificate{
		SerialNumber: big.NewInt(ca.prevSerial),
		Subject: pkix.Name{
			Organization: []string{"Test Leaf Cert"},
			CommonName:   dnsNames[0],
		},
		NotBefore:   time.Now().Add(-15 * time.Second),
		NotAfter:    time.Now().Add(time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    dnsNames,
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1)},
	}

	der, err := x509.CreateCertificate(nil, template, ca.Cert, pub, ca.PrivKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate from DER: %w", err)
	}

	return &Leaf{
		Cert:    cert,
		PrivKey: priv,
		Chain:   [][]byte{der, ca.Cert.Raw},
	}, nil
}

// TLSCertificate returns the leaf as a server certificate, stapling
// scts when given.
func (l *Leaf) TLSCertificate(scts ...[]byte) tls.Certificate {
	return tls.Certificate{
		Certificate:                 l.Chain,
		PrivateKey:                  l.PrivKey,
		Leaf:                        l.Cert,
		SignedCertificateTimestamps: scts,
	}
}
