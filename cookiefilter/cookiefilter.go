// Package cookiefilter implements the two-phase $cookie modifier state
// machine: cookies are inspected and stripped from the request headers
// before the request is sent on, then the surviving cookies set by the
// response are reconciled against the same rules once the response
// actually sets them in the browser.
package cookiefilter

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/filterwall/blockengine/rules"
	"github.com/google/uuid"
)

// BrowserCookie is the shape CookieApi exchanges cookies in. It is
// decoupled from net/http.Cookie so that CookieApi can be implemented
// against any browser-extension or native cookie store.
type BrowserCookie struct {
	Name     string
	Domain   string
	Path     string
	Value    string
	SameSite string
	MaxAge   int
	Expires  int64
}

// CookieApi is the host-supplied collaborator that actually touches
// browser cookie storage. CookieFilter never stores cookies itself; it
// only decides what CookieApi should do.
type CookieApi interface {
	RemoveCookie(name, url string) error
	ModifyCookie(cookie *BrowserCookie, url string) error
	GetCookies(name, url string) ([]*BrowserCookie, error)
}

// scheduledChange is one pending action against a single named cookie,
// produced by RequestHeadersPhase and drained by ResponsePhase.
type scheduledChange struct {
	name   string
	url    string
	remove bool
	rules  []*rules.NetworkRule
}

// CookieFilter runs the $cookie modifier state machine for a set of
// in-flight requests, keyed by an opaque request ID supplied by the
// caller.
type CookieFilter struct {
	api CookieApi

	mu       sync.Mutex
	schedule map[string][]*scheduledChange
}

// New returns a CookieFilter that drives cookie removal/modification
// through api.
func New(api CookieApi) *CookieFilter {
	return &CookieFilter{
		api:      api,
		schedule: map[string][]*scheduledChange{},
	}
}

// NewRequestID returns an opaque request identifier suitable for
// correlating a RequestHeadersPhase call with its matching ResponsePhase
// call. Callers that already have a request ID (say, one a proxy assigns)
// don't need this; it exists for hosts that don't track one themselves.
func NewRequestID() string {
	return uuid.NewString()
}

func cookieModifier(r *rules.NetworkRule) *rules.CookieModifier {
	m, _ := r.AdvancedModifier().(*rules.CookieModifier)
	return m
}

func isModifying(r *rules.NetworkRule) bool {
	m := cookieModifier(r)
	return m != nil && m.IsModifying()
}

// RequestHeadersPhase parses the Cookie header (found case-insensitively
// among headers), drops or schedules modification of each cookie against
// cookieRules, and returns the rewritten Cookie header value plus whether
// anything changed. It must be called exactly once per requestID, before
// the matching ResponsePhase call.
func (f *CookieFilter) RequestHeadersPhase(
	requestID string,
	url string,
	headers map[string]string,
	cookieRules []*rules.NetworkRule,
) (newCookieHeader string, modified bool) {
	headerName, headerValue, ok := findCookieHeader(headers)
	if !ok {
		return "", false
	}

	cookies := parseCookieHeader(headerValue)

	var entries []*scheduledChange

	for i := len(cookies) - 1; i >= 0; i-- {
		c := cookies[i]

		blocking := firstBlockingRule(c.name, cookieRules)
		if blocking != nil {
			if blocking.Whitelist {
				entries = append(entries, &scheduledChange{
					name: c.name, url: url, remove: false,
					rules: []*rules.NetworkRule{blocking},
				})
				continue
			}

			cookies = append(cookies[:i], cookies[i+1:]...)
			modified = true
			entries = append(entries, &scheduledChange{
				name: c.name, url: url, remove: true,
				rules: []*rules.NetworkRule{blocking},
			})
			continue
		}

		modifying := modifyingRules(c.name, cookieRules)
		if len(modifying) > 0 {
			entries = append(entries, &scheduledChange{
				name: c.name, url: url, remove: false,
				rules: modifying,
			})
		}
	}

	if len(entries) > 0 {
		f.mu.Lock()
		f.schedule[requestID] = append(f.schedule[requestID], entries...)
		f.mu.Unlock()
	}

	if !modified {
		return headerValue, false
	}

	_ = headerName

	return renderCookieHeader(cookies), true
}

// ResponsePhase drains every change scheduled for requestID by
// RequestHeadersPhase, applying removals and SameSite/MaxAge
// modifications through CookieApi. The schedule for requestID is
// cleared afterward regardless of whether any CookieApi call failed.
func (f *CookieFilter) ResponsePhase(requestID string) {
	f.mu.Lock()
	entries := f.schedule[requestID]
	delete(f.schedule, requestID)
	f.mu.Unlock()

	for _, e := range entries {
		if e.remove {
			if err := f.api.RemoveCookie(e.name, e.url); err != nil {
				slog.Debug("removing cookie", "name", e.name, slogutil.KeyError, err)
			}

			continue
		}

		f.applyModifyingRules(e)
	}
}

func (f *CookieFilter) applyModifyingRules(e *scheduledChange) {
	stored, err := f.api.GetCookies(e.name, e.url)
	if err != nil {
		slog.Debug("fetching cookies", "name", e.name, slogutil.KeyError, err)

		return
	}

	for _, c := range stored {
		changed := false

		for _, r := range e.rules {
			m := cookieModifier(r)
			if m == nil {
				continue
			}

			if m.SameSite != "" && c.SameSite != m.SameSite {
				c.SameSite = m.SameSite
				changed = true
			}

			if m.MaxAge > 0 && (c.MaxAge <= 0 || m.MaxAge < c.MaxAge) {
				c.MaxAge = m.MaxAge
				changed = true
			}
		}

		if !changed {
			continue
		}

		if err = f.api.ModifyCookie(c, e.url); err != nil {
			slog.Debug("modifying cookie", "name", c.Name, slogutil.KeyError, err)
		}
	}
}

type parsedCookie struct {
	name  string
	value string
}

func findCookieHeader(headers map[string]string) (name, value string, ok bool) {
	for k, v := range headers {
		if strings.EqualFold(k, "Cookie") {
			return k, v, true
		}
	}

	return "", "", false
}

func parseCookieHeader(header string) []parsedCookie {
	var out []parsedCookie

	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		name := strings.TrimSpace(kv[0])
		value := ""
		if len(kv) == 2 {
			value = kv[1]
		}

		out = append(out, parsedCookie{name: name, value: value})
	}

	return out
}

func renderCookieHeader(cookies []parsedCookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.name+"="+c.value)
	}

	return strings.Join(parts, "; ")
}

func firstBlockingRule(name string, cookieRules []*rules.NetworkRule) *rules.NetworkRule {
	for _, r := range cookieRules {
		m := cookieModifier(r)
		if m == nil || !m.Matches(name) || m.IsModifying() {
			continue
		}

		return r
	}

	return nil
}

func modifyingRules(name string, cookieRules []*rules.NetworkRule) []*rules.NetworkRule {
	var out []*rules.NetworkRule

	for _, r := range cookieRules {
		m := cookieModifier(r)
		if m == nil || !m.Matches(name) || !m.IsModifying() {
			continue
		}

		out = append(out, r)
	}

	return out
}
