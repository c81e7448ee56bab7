package transport

import (
	"encoding/base32"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	onionSuffix    = ".onion"
	onionV3Version = 0x03
)

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	checksumPrefix = []byte(".onion checksum")
)

// IsOnionHost reports whether host ends in ".onion".
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), onionSuffix)
}

// IsValidV3Address checks the format and the SHA3-256 checksum of a v3
// onion address such as "xxxx...xxxx.onion".
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, onionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	// pubkey(32) || checksum(2) || version(1)
	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}
	expected := computeV3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)
	hash := sha3.Sum256(data)
	return hash[:2]
}

// CheckSeed validates an onion seed URL before any request is made.
// Non-onion seeds are always accepted; onion seeds require a proxy.
func CheckSeed(seed string, proxied bool) (bool, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return false, fmt.Errorf("invalid seed URL %q: %w", seed, err)
	}
	if !IsOnionHost(u.Hostname()) {
		return false, nil
	}
	if !IsValidV3Address(u.Hostname()) {
		return true, fmt.Errorf("%w: %s", ErrInvalidOnionAddress, u.Hostname())
	}
	if !proxied {
		return true, fmt.Errorf("%s requires --tor or --proxy", u.Hostname())
	}
	return true, nil
}
