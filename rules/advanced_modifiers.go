package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// AdvancedModifier is implemented by rule modifiers that carry their own
// internal structure, as opposed to the plain enable/disable options stored
// in NetworkRuleOption.
type AdvancedModifier interface {
	// String returns the modifier in the form it appeared in the rule text,
	// without the leading option name.
	String() string
}

// CSPModifier is the $csp modifier. It carries the Content-Security-Policy
// header value that should be applied to a matched response.
type CSPModifier struct {
	Value string
}

// String implements the AdvancedModifier interface for *CSPModifier.
func (m *CSPModifier) String() string {
	return m.Value
}

// RedirectModifier is the $redirect modifier. Title names one of a fixed set
// of locally served resources (a 1x1 transparent gif, an empty script, etc.)
// that the matched request should be answered with instead of being blocked
// outright.
type RedirectModifier struct {
	Title string
}

// String implements the AdvancedModifier interface for *RedirectModifier.
func (m *RedirectModifier) String() string {
	return m.Title
}

// ReplaceModifier is the $replace modifier. It rewrites a response body by
// applying Pattern.ReplaceAll with Replacement, the same way sed's "s///"
// works.
type ReplaceModifier struct {
	Pattern     *regexp.Regexp
	Replacement string

	text string
}

// String implements the AdvancedModifier interface for *ReplaceModifier.
func (m *ReplaceModifier) String() string {
	return m.text
}

// Apply runs the replacement against body and returns the result.
func (m *ReplaceModifier) Apply(body []byte) []byte {
	return m.Pattern.ReplaceAll(body, []byte(m.Replacement))
}

// newReplaceModifier parses a $replace modifier value of the form
// /pattern/replacement/modifiers.
func newReplaceModifier(value string) (*ReplaceModifier, error) {
	parts := splitWithEscapeCharacter(value, '/', '\\', true)

	// The value is wrapped in slashes, so splitting "/a/b/gi" on "/" yields
	// ["", "a", "b", "gi"].
	if len(parts) < 3 || parts[0] != "" {
		return nil, fmt.Errorf("invalid $replace value: %s", value)
	}

	pattern := parts[1]
	replacement := parts[2]

	flags := ""
	if len(parts) > 3 {
		flags = parts[3]
	}

	reFlags := ""
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			reFlags += string(f)
		case 'g':
			// Go's regexp.ReplaceAll already replaces every match; there is
			// no non-global mode to opt out of.
		default:
			return nil, fmt.Errorf("unsupported $replace flag: %c", f)
		}
	}

	exprText := pattern
	if reFlags != "" {
		exprText = "(?" + reFlags + ")" + pattern
	}

	re, err := regexp.Compile(exprText)
	if err != nil {
		return nil, fmt.Errorf("invalid $replace regexp: %w", err)
	}

	return &ReplaceModifier{
		Pattern:     re,
		Replacement: replacement,
		text:        value,
	}, nil
}

// CookieModifier is the $cookie modifier. It matches cookies by name (or
// name regex) and optionally rewrites their SameSite/MaxAge attributes.
type CookieModifier struct {
	// NamePattern matches the cookie name. Nil means "match every cookie".
	NamePattern *regexp.Regexp
	// SameSite overrides the cookie's SameSite attribute when non-empty.
	SameSite string
	// MaxAge, in seconds, replaces the cookie's MaxAge when positive and
	// the cookie has no positive MaxAge or a longer one; it never extends
	// a shorter MaxAge.
	MaxAge int

	text string
}

// String implements the AdvancedModifier interface for *CookieModifier.
func (m *CookieModifier) String() string {
	return m.text
}

// IsModifying reports whether the rule rewrites matched cookies rather than
// simply using them as a request-blocking trigger.
func (m *CookieModifier) IsModifying() bool {
	return m.SameSite != "" || m.MaxAge > 0
}

// Matches reports whether the cookie named name is governed by this
// modifier.
func (m *CookieModifier) Matches(name string) bool {
	if m.NamePattern == nil {
		return true
	}
	return m.NamePattern.MatchString(name)
}

// newCookieModifier parses a $cookie modifier value, which may be empty (any
// cookie), a bare name, a /regex/, or a ";"-separated list such as
// "sessionid;maxAge=3600;sameSite=lax". In such a list an element without
// "=", or whose key is neither maxAge nor sameSite, sets the name pattern.
// A value that starts with "/" is read whole as a single name pattern.
func newCookieModifier(value string) (*CookieModifier, error) {
	m := &CookieModifier{text: value}

	if value == "" {
		return m, nil
	}

	if !strings.Contains(value, "=") || strings.HasPrefix(value, "/") {
		pattern, err := compileCookieNamePattern(value)
		if err != nil {
			return nil, err
		}
		m.NamePattern = pattern
		return m, nil
	}

	for _, p := range strings.Split(value, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 1 {
			pattern, err := compileCookieNamePattern(kv[0])
			if err != nil {
				return nil, err
			}
			m.NamePattern = pattern
			continue
		}

		switch strings.ToLower(kv[0]) {
		case "maxage":
			age, err := strconv.Atoi(kv[1])
			if err != nil {
				return nil, fmt.Errorf("invalid $cookie maxAge: %s", kv[1])
			}
			m.MaxAge = age
		case "samesite":
			m.SameSite = kv[1]
		default:
			pattern, err := compileCookieNamePattern(kv[0])
			if err != nil {
				return nil, err
			}
			m.NamePattern = pattern
		}
	}

	return m, nil
}

func compileCookieNamePattern(name string) (*regexp.Regexp, error) {
	if strings.HasPrefix(name, "/") && strings.HasSuffix(name, "/") && len(name) > 1 {
		return regexp.Compile(name[1 : len(name)-1])
	}
	return regexp.Compile("^" + regexp.QuoteMeta(name) + "$")
}
