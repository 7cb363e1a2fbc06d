package urlfilter

import "github.com/filterwall/blockengine/rules"

// FilteringLog is an optional collaborator that records filtering
// decisions for diagnostics or UI purposes. Implementations are never
// called while holding engine locks.
type FilteringLog interface {
	// AddHTMLEvent reports that rule was applied while filtering an HTML
	// document body.
	AddHTMLEvent(rule *rules.NetworkRule, elementName string)

	// AddReplaceRulesEvent reports that the given $replace rules were
	// applied to a response body.
	AddReplaceRulesEvent(rules []*rules.NetworkRule)

	// AddCookieEvent reports a cookie removal or modification decision
	// made for cookieName.
	AddCookieEvent(rule *rules.NetworkRule, cookieName string, isModified bool)
}
