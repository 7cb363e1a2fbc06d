package rules

import "strings"

// Basic rule masks, as understood by patternToRegexp.
const (
	// MaskStartURL matches the beginning of an address, including any
	// protocol and an optional "www."-like subdomain.
	MaskStartURL = "||"
	// MaskPipe matches the beginning or the end of the address, depending
	// on where it appears in the pattern.
	MaskPipe = "|"
	// MaskSeparator matches a single character that is not a letter, a
	// digit, or one of "_-.%", or the end of the string.
	MaskSeparator = "^"
	// MaskAnyCharacter matches any number of arbitrary characters.
	MaskAnyCharacter = "*"

	// RegexStartURL is the regular expression equivalent of MaskStartURL.
	RegexStartURL = `^(http|https|ws|wss):\/\/([a-z0-9-]+\.)?`
	// RegexSeparator is the regular expression equivalent of MaskSeparator.
	RegexSeparator = `([^ a-zA-Z0-9.%_-]|$)`
	// RegexStartString anchors a pattern to the start of the string.
	RegexStartString = `^`
	// RegexAnyCharacter is the regular expression equivalent of
	// MaskAnyCharacter.
	RegexAnyCharacter = `.*`
	// RegexEndString anchors a pattern to the end of the string.
	RegexEndString = `$`

	regexSpecialCharacters = "\\/$.|?*+()[]{}^"
)

// patternToRegexp converts a basic (non-regex) rule pattern into the regular
// expression it denotes.
func patternToRegexp(pattern string) string {
	if pattern == MaskStartURL || pattern == MaskPipe ||
		pattern == MaskAnyCharacter || pattern == "" {
		return RegexAnyCharacter
	}

	if strings.HasPrefix(pattern, maskRegexRule) &&
		strings.HasSuffix(pattern, maskRegexRule) &&
		len(pattern) > 1 {
		return pattern[1 : len(pattern)-1]
	}

	rest := pattern

	var prefix string
	switch {
	case strings.HasPrefix(rest, MaskStartURL):
		prefix = RegexStartURL
		rest = rest[len(MaskStartURL):]
	case strings.HasPrefix(rest, MaskPipe):
		prefix = RegexStartString
		rest = rest[len(MaskPipe):]
	}

	var suffix string
	switch {
	case strings.HasSuffix(rest, MaskSeparator):
		suffix = RegexSeparator
		rest = rest[:len(rest)-len(MaskSeparator)]
	case strings.HasSuffix(rest, MaskPipe):
		suffix = RegexEndString
		rest = rest[:len(rest)-len(MaskPipe)]
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	for _, c := range rest {
		switch {
		case c == '*':
			sb.WriteString(RegexAnyCharacter)
		case strings.ContainsRune(regexSpecialCharacters, c):
			sb.WriteByte('\\')
			sb.WriteRune(c)
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteString(suffix)

	return sb.String()
}
