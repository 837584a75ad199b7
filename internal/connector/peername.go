package connector

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"

	ncerr "httpsconn/internal/errors"
)

const (
	maxNameLen  = 253
	maxLabelLen = 63
)

// peerNames checks label lengths and the contents of punycode labels.
// No mapping is applied: names must already be ASCII.  "--" in the third
// and fourth positions is legal in a hostname, so hyphen placement is
// checked by hand instead.
var peerNames = idna.New( //nolint:gochecknoglobals
	idna.ValidateLabels(true),
	idna.CheckHyphens(false),
	idna.StrictDomainName(false),
	idna.VerifyDNSLength(true),
)

// ValidatePeerName reports whether name can be used as the TLS server
// name for a secure session.  IP literals are accepted; DNS names must
// be ASCII, with labels of letters, digits, hyphens and underscores.
// A single trailing dot is allowed.
func ValidatePeerName(name string) error {
	if name == "" {
		return ncerr.ErrEmptyPeerName
	}
	if net.ParseIP(name) != nil {
		return nil
	}
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			return fmt.Errorf("%w: %q is not ASCII", ncerr.ErrInvalidPeerName, name)
		}
	}

	fqdn := strings.TrimSuffix(name, ".")
	if fqdn == "" || len(fqdn) > maxNameLen {
		return fmt.Errorf("%w: %q has bad length", ncerr.ErrInvalidPeerName, name)
	}
	for _, label := range strings.Split(fqdn, ".") {
		if len(label) == 0 || len(label) > maxLabelLen {
			return fmt.Errorf("%w: %q has a bad label length", ncerr.ErrInvalidPeerName, name)
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return fmt.Errorf("%w: label %q starts or ends with a hyphen", ncerr.ErrInvalidPeerName, label)
		}
		for i := 0; i < len(label); i++ {
			if !isHostByte(label[i]) {
				return fmt.Errorf("%w: %q contains %q", ncerr.ErrInvalidPeerName, name, label[i])
			}
		}
	}

	if _, err := peerNames.ToASCII(fqdn); err != nil {
		return fmt.Errorf("%w: %v", ncerr.ErrInvalidPeerName, err)
	}
	return nil
}

func isHostByte(b byte) bool {
	switch {
	case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9':
		return true
	case b == '-' || b == '_':
		return true
	}
	return false
}
