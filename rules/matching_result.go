package rules

// CosmeticOption is a bitmask controlling which kinds of cosmetic rules
// should be applied to a particular page.
type CosmeticOption uint8

const (
	// CosmeticOptionCSS enables element-hiding and CSS-injection rules.
	CosmeticOptionCSS CosmeticOption = 1 << iota
	// CosmeticOptionJS enables JS-injection rules.
	CosmeticOptionJS
	// CosmeticOptionGenericCSS enables domain-unrestricted (generic)
	// CSS/element-hiding rules, on top of CosmeticOptionCSS.
	CosmeticOptionGenericCSS

	// CosmeticOptionNone disables every kind of cosmetic rule.
	CosmeticOptionNone CosmeticOption = 0
	// CosmeticOptionAll enables every kind of cosmetic rule.
	CosmeticOptionAll = CosmeticOptionCSS | CosmeticOptionJS | CosmeticOptionGenericCSS
)

// MatchingResult contains every rule that matched a request and exposes the
// methods that decide how the request should be handled.
type MatchingResult struct {
	// BasicRule is the rule that matched the request itself. It may block,
	// unblock, or otherwise modify how the request is processed.
	BasicRule *NetworkRule

	// DocumentRule is a rule matching the request's referrer with one of
	// $document, $urlblock, or $genericblock. Other document-level
	// modifiers such as $jsinject or $content have no effect here, since
	// they only matter for cosmetic filtering.
	DocumentRule *NetworkRule

	// CspRules modify the response's Content-Security-Policy header. See
	// the $csp modifier.
	CspRules []*NetworkRule

	// CookieRules modify the request's and response's cookies. See the
	// $cookie modifier.
	CookieRules []*NetworkRule

	// ReplaceRules modify the response body. See the $replace modifier.
	ReplaceRules []*NetworkRule

	// RedirectRule, if set, redirects the request to a locally served
	// resource instead of blocking it outright. See the $redirect modifier.
	RedirectRule *NetworkRule

	// StealthRule is a whitelist rule that disables stealth-mode features.
	// It may come from either rules or sourceRules.
	StealthRule *NetworkRule
}

// NewMatchingResult builds a MatchingResult out of the rules matching the
// request (rules) and the rules matching its referrer (sourceRules).
func NewMatchingResult(matchedRules []*NetworkRule, sourceRules []*NetworkRule) MatchingResult {
	matchedRules = removeBadfilterRules(matchedRules)
	matchedRules = removeDNSRewriteRules(matchedRules)
	sourceRules = removeBadfilterRules(sourceRules)

	result := MatchingResult{}

	for _, rule := range sourceRules {
		if rule.isDocumentWhitelistRule() {
			if result.DocumentRule == nil || rule.IsHigherPriority(result.DocumentRule) {
				result.DocumentRule = rule
			}
		}

		if rule.IsOptionEnabled(OptionStealth) {
			result.StealthRule = rule
		}
	}

	genericAllowed := true
	basicAllowed := true
	if result.DocumentRule != nil {
		if result.DocumentRule.IsOptionEnabled(OptionUrlblock) {
			basicAllowed = false
		} else if result.DocumentRule.IsOptionEnabled(OptionGenericblock) {
			genericAllowed = false
		}
	}

	for _, rule := range matchedRules {
		switch {
		case rule.IsOptionEnabled(OptionCookie):
			result.CookieRules = append(result.CookieRules, rule)
		case rule.IsOptionEnabled(OptionReplace):
			result.ReplaceRules = append(result.ReplaceRules, rule)
		case rule.IsOptionEnabled(OptionCsp):
			result.CspRules = append(result.CspRules, rule)
		case rule.IsOptionEnabled(OptionRedirect):
			if result.RedirectRule == nil || rule.IsHigherPriority(result.RedirectRule) {
				result.RedirectRule = rule
			}
		case rule.IsOptionEnabled(OptionStealth):
			result.StealthRule = rule
		default:
			if !rule.Whitelist {
				if !basicAllowed {
					continue
				}
				if !genericAllowed && rule.IsGeneric() {
					continue
				}
			}

			if result.BasicRule == nil || rule.IsHigherPriority(result.BasicRule) {
				result.BasicRule = rule
			}
		}
	}

	return result
}

// GetBasicResult returns the rule that determines whether the request is
// blocked: the DocumentRule if one is present, otherwise the BasicRule.
func (m *MatchingResult) GetBasicResult() *NetworkRule {
	if m.DocumentRule != nil {
		return m.DocumentRule
	}

	return m.BasicRule
}

// GetCosmeticOption computes which kinds of cosmetic rules should be applied
// given the rules that matched this request.
func (m *MatchingResult) GetCosmeticOption() CosmeticOption {
	option := CosmeticOptionAll

	if rule := m.BasicRule; rule != nil && rule.Whitelist {
		if rule.IsOptionEnabled(OptionGenerichide) {
			option &^= CosmeticOptionGenericCSS
		}
		if rule.IsOptionEnabled(OptionElemhide) {
			option &^= CosmeticOptionCSS
			option &^= CosmeticOptionGenericCSS
		}
		if rule.IsOptionEnabled(OptionJsinject) {
			option &^= CosmeticOptionJS
		}
	}

	if m.DocumentRule != nil {
		return CosmeticOptionNone
	}

	return option
}

// removeBadfilterRules drops every rule carrying the $badfilter modifier, as
// well as every rule one of them negates.
func removeBadfilterRules(rulesList []*NetworkRule) []*NetworkRule {
	var badfilters []*NetworkRule
	for _, r := range rulesList {
		if r.IsOptionEnabled(OptionBadfilter) {
			badfilters = append(badfilters, r)
		}
	}

	if len(badfilters) == 0 {
		return rulesList
	}

	result := make([]*NetworkRule, 0, len(rulesList))
	for _, r := range rulesList {
		if r.IsOptionEnabled(OptionBadfilter) {
			continue
		}

		negated := false
		for _, b := range badfilters {
			if b.negatesBadfilter(r) {
				negated = true
				break
			}
		}

		if !negated {
			result = append(result, r)
		}
	}

	return result
}

// removeDNSRewriteRules filters out every rule carrying a $dnsrewrite
// modifier, leaving only plain blocking/whitelisting rules.
func removeDNSRewriteRules(rulesList []*NetworkRule) []*NetworkRule {
	result := make([]*NetworkRule, 0, len(rulesList))
	for _, r := range rulesList {
		if r.DNSRewrite == nil {
			result = append(result, r)
		}
	}

	return result
}
