package rules

import (
	"strings"

	"github.com/filterwall/blockengine/filterutil"
	"golang.org/x/net/publicsuffix"
)

// splitWithEscapeCharacter splits string by the specified separator if it is not escaped
func splitWithEscapeCharacter(str string, sep, escapeCharacter byte, preserveAllTokens bool) []string {
	parts := make([]string, 0)

	if str == "" {
		return parts
	}

	var sb strings.Builder
	escaped := false
	for i := range str {
		c := str[i]

		if c == escapeCharacter {
			escaped = true
		} else if c == sep {
			if escaped {
				sb.WriteByte(c)
				escaped = false
			} else {
				if preserveAllTokens || sb.Len() > 0 {
					parts = append(parts, sb.String())
					sb.Reset()
				}
			}
		} else {
			if escaped {
				escaped = false
				sb.WriteByte(escapeCharacter)
			}
			sb.WriteByte(c)
		}
	}

	if preserveAllTokens || sb.Len() > 0 {
		parts = append(parts, sb.String())
	}

	return parts
}

// stringArraysEquals checks if arrays are equal
func stringArraysEquals(l, r []string) bool {
	if len(l) != len(r) {
		return false
	}

	for i := range l {
		if l[i] != r[i] {
			return false
		}
	}

	return true
}

// isWildcardDomainPattern reports whether d is one of the two wildcard
// domain forms a $domain/cosmetic domain list may contain: a trailing
// TLD wildcard ("google.*") or a leading label wildcard ("*.example.com").
// Any other use of "*" in a domain entry is a syntax error.
func isWildcardDomainPattern(d string) bool {
	if strings.HasSuffix(d, ".*") {
		return true
	}

	if rest, ok := strings.CutPrefix(d, "*."); ok {
		return filterutil.IsDomainName(rest)
	}

	return false
}

// isDomainOrSubdomainOfAny checks if "domain" is domain or subdomain or any of the "domains"
func isDomainOrSubdomainOfAny(domain string, domains []string) bool {
	for _, d := range domains {
		if matchesDomainPattern(domain, d) {
			return true
		}
	}
	return false
}

// matchesDomainPattern checks a single permitted/restricted domain entry
// against domain, handling both wildcard forms accepted by
// isWildcardDomainPattern in addition to the plain domain-or-subdomain case.
func matchesDomainPattern(domain, pattern string) bool {
	switch {
	case strings.HasSuffix(pattern, ".*"):
		return matchesTLDWildcard(domain, pattern)
	case strings.HasPrefix(pattern, "*."):
		return matchesLeadingWildcard(domain, pattern)
	default:
		return domain == pattern ||
			(strings.HasSuffix(domain, pattern) && strings.HasSuffix(domain, "."+pattern))
	}
}

// matchesTLDWildcard matches the teacher's "google.*" form: the base label
// followed by any public-suffix TLD, as a domain or subdomain.
func matchesTLDWildcard(domain, pattern string) bool {
	// A pattern like "google.*" will match any "google.TLD" domain or subdomain
	withoutWildcard := pattern[0 : len(pattern)-1]

	if strings.HasPrefix(domain, withoutWildcard) ||
		(strings.Index(domain, withoutWildcard) > 0 &&
			strings.Index(domain, "."+withoutWildcard) > 0) {
		tld, icann := publicsuffix.PublicSuffix(domain)

		// Let's check that the domain's TLD is one of the public suffixes
		if tld != "" && icann &&
			strings.HasSuffix(domain, withoutWildcard+tld) {
			return true
		}
	}

	return false
}

// matchesLeadingWildcard matches "*.example.com" style patterns: one or
// more extra labels ahead of the suffix after the wildcard, so
// "a.example.com" matches but bare "example.com" does not.
func matchesLeadingWildcard(domain, pattern string) bool {
	suffix := pattern[1:] // ".example.com"

	return strings.HasSuffix(domain, suffix) && len(domain) > len(suffix)
}
