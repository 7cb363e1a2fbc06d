package filterutil

import (
	"strings"

	"golang.org/x/net/idna"
)

// Subdomains splits hostname into itself and every parent domain, from most
// specific to the TLD, e.g. "a.b.example.com" yields ["a.b.example.com",
// "b.example.com", "example.com", "com"]. Used by lookup tables and the
// cosmetic engine to probe an exact-match hash index at every level a
// domain-restricted rule could have been registered under.
func Subdomains(hostname string) (subdomains []string) {
	parts := strings.Split(hostname, ".")
	for i := range parts {
		subdomains = append(subdomains, strings.Join(parts[i:], "."))
	}
	return subdomains
}

// ExtractHostname quickly retrieves the hostname from url and normalizes it
// to its ASCII/Punycode form, so a rule written against "xn--..." and a
// request carrying the Unicode form of the same internationalized domain
// compare equal.
func ExtractHostname(url string) string {
	if url == "" {
		return ""
	}

	firstIdx := strings.Index(url, "//")
	if firstIdx == -1 {
		// This is a non hierarchical structured URL (e.g. stun: or turn:)
		// https://tools.ietf.org/html/rfc4395#section-2.2
		// https://tools.ietf.org/html/draft-nandakumar-rtcweb-stun-uri-08#appendix-B
		firstIdx = strings.Index(url, ":")
		if firstIdx <= 0 {
			return ""
		}
		firstIdx = firstIdx - 1
	} else {
		firstIdx = firstIdx + 2
	}

	nextIdx := 0
	for i := firstIdx; i < len(url); i++ {
		c := url[i]
		if c == '/' || c == ':' || c == '?' {
			nextIdx = i
			break
		}
	}

	if nextIdx == 0 {
		nextIdx = len(url)
	}

	if nextIdx <= firstIdx {
		return ""
	}

	return NormalizeHostname(url[firstIdx:nextIdx])
}

// NormalizeHostname converts an internationalized hostname to its ASCII
// form. Non-IDN hostnames, and anything idna can't confidently convert
// (including hostnames with underscores, common in DNS TXT/SRV records),
// pass through unchanged rather than being rejected.
func NormalizeHostname(host string) string {
	ascii, err := idna.ToASCII(host)
	if err != nil {
		return host
	}

	return ascii
}

// IsDomainName - check if input string is a valid domain name
// Syntax: [label.]... label.label
//
// Each label is 1 to 63 characters long, and may contain:
//   . ASCII letters a-z and A-Z
//   . digits 0-9
//   . hyphen ('-')
// . labels cannot start or end with hyphens (RFC 952)
// . max length of ascii hostname including dots is 253 characters
// . TLD is >=2 characters
// . TLD is [a-zA-Z]+ or "xn--[a-zA-Z0-9]+"
//nolint:gocyclo
func IsDomainName(name string) bool {
	if len(name) > 253 {
		return false
	}

	st := 0
	nLabel := 0
	nLevel := 1
	var prevChar byte
	charOnly := true
	xn := 0

	for _, c := range []byte(name) {

		switch st {
		case 0:
			fallthrough
		case 1:
			if !((c >= 'a' && c <= 'z') ||
				(c >= 'A' && c <= 'Z')) {
				charOnly = false
				if !(c >= '0' && c <= '9') {
					return false
				}
			} else if c == 'x' || c == 'X' {
				xn = 1
			}
			st = 2
			nLabel = 1

		case 2:
			if c == '.' {
				if prevChar == '-' {
					return false
				}
				nLevel++
				st = 0
				charOnly = true
				xn = 0
				continue
			}

			if nLabel == 63 {
				return false
			}

			if !((c >= 'a' && c <= 'z') ||
				(c >= 'A' && c <= 'Z')) {
				charOnly = false
				if !((c >= '0' && c <= '9') ||
					c == '-') {
					return false
				}
			}

			if xn > 0 {
				if xn < len("xn--") {
					if c == "xn--"[xn] {
						xn++
					} else {
						xn = 0
					}
				} else {
					xn++
				}
			}

			prevChar = c
			nLabel++
		}
	}

	if st != 2 ||
		nLabel == 1 ||
		(!charOnly && xn < len("xn--wwww")) {
		return false
	}

	return true
}
