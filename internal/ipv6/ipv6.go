// Package ipv6 provides the address arithmetic behind prefix-delegation
// DDNS: splitting addresses at the 64-bit boundary and recombining a
// volatile PD prefix with a host's stable interface identifier.
package ipv6

import (
	"fmt"
	"net/netip"
	"strings"
)

// Parse parses s as an IPv6 address. IPv4 and IPv4-mapped addresses are
// rejected: every address handled by this service lives in the IPv6
// address plan.
func Parse(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid IPv6 address %q: %w", s, err)
	}
	if !addr.Is6() || addr.Is4In6() {
		return netip.Addr{}, fmt.Errorf("invalid IPv6 address %q: not an IPv6 address", s)
	}
	return addr, nil
}

// Explode returns the full zero-padded 8-hextet form of addr,
// e.g. "2001:0db8:0000:0000:0000:0000:0000:0001".
func Explode(addr netip.Addr) string {
	b := addr.As16()
	hextets := make([]string, 8)
	for i := 0; i < 8; i++ {
		hextets[i] = fmt.Sprintf("%02x%02x", b[2*i], b[2*i+1])
	}
	return strings.Join(hextets, ":")
}

// PDPrefix returns the first 4 hextets of s in exploded form — the
// delegated /64 prefix assigned by the upstream network.
func PDPrefix(s string) (string, error) {
	addr, err := Parse(s)
	if err != nil {
		return "", err
	}
	parts := strings.Split(Explode(addr), ":")
	return strings.Join(parts[:4], ":"), nil
}

// Suffix returns the last 4 hextets of s in exploded form — the host's
// interface identifier, stable across prefix changes.
func Suffix(s string) (string, error) {
	addr, err := Parse(s)
	if err != nil {
		return "", err
	}
	parts := strings.Split(Explode(addr), ":")
	return strings.Join(parts[4:8], ":"), nil
}

// Recombine joins a PD prefix and a host suffix into a full global
// address. Both sides are expected to already be validated 4-hextet
// groups; no further checking happens here.
func Recombine(prefix, suffix string) string {
	return prefix + ":" + suffix
}
