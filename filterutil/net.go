package filterutil

import "net"

// isAddrRune returns true if r is a valid rune of string representation of an
// IP address or a CIDR prefix built from one (used for $client and $denyallow
// network identifiers, which accept either a bare address or a subnet).
func isAddrRune(r rune) (ok bool) {
	switch {
	case r == '.', r == ':', r == '/',
		r >= '0' && r <= '9',
		r >= 'A' && r <= 'F',
		r >= 'a' && r <= 'f',
		r == '[', r == ']':
		return true
	default:
		return false
	}
}

// IsProbablyIP returns true if s only contains characters that can be part of
// an IP address.  It's needed to avoid unnecessary allocations when parsing
// with [netip.ParseAddr].
func IsProbablyIP(s string) (ok bool) {
	for _, r := range s {
		if r == '/' {
			return false
		}

		if !isAddrRune(r) {
			return false
		}
	}

	return len(s) >= len("::")
}

// ParseIP is a fast-fail wrapper around net.ParseIP: it only calls into
// net.ParseIP for strings that could possibly be an address, so a flood of
// plainly-non-IP hostnames (the common case when checking a HostRule's
// leading field) doesn't pay for net.ParseIP's fuller parse attempt.
func ParseIP(s string) net.IP {
	if !IsProbablyIP(s) {
		return nil
	}

	return net.ParseIP(s)
}

// IsProbablyIPOrCIDR is like IsProbablyIP but also accepts the "/" that
// separates a subnet's address from its prefix length, so callers parsing a
// $client value don't need a second, separate substring check before trying
// netip.ParsePrefix.
func IsProbablyIPOrCIDR(s string) (ok bool) {
	for _, r := range s {
		if !isAddrRune(r) {
			return false
		}
	}

	return len(s) >= len("::")
}
