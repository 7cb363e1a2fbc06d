package urlfilter

import (
	"github.com/filterwall/blockengine/filterlist"
	"github.com/filterwall/blockengine/filterutil"
	"github.com/filterwall/blockengine/rules"
)

// ElemhideResult contains the element-hiding selectors that apply to a page,
// split by whether they are domain-unrestricted ("generic") and whether they
// use the ExtendedCSS syntax.
type ElemhideResult struct {
	Generic        []string `json:"generic,omitempty"`
	Specific       []string `json:"specific,omitempty"`
	GenericExtCSS  []string `json:"genericExtCss,omitempty"`
	SpecificExtCSS []string `json:"specificExtCss,omitempty"`
}

// CosmeticResult is everything a page needs to apply cosmetic filtering:
// element-hiding selectors, injected CSS and scripts, and HTML filtering
// rules.
type CosmeticResult struct {
	ElementHiding ElemhideResult `json:"elementHiding"`
	CSS           []string       `json:"css,omitempty"`
	JS            []string       `json:"js,omitempty"`
	HTML          []string       `json:"html,omitempty"`
}

// cosmeticBucket groups the cosmetic rules of one CosmeticRuleType into the
// four sets described by the cosmetic engine's insertion algorithm:
// domain-unrestricted ("generic"), indexed by exact permitted domain
// ("byHostname"), restricted to a wildcard domain pattern that can't be
// hashed exactly ("wildcard"), and whitelist rules that suppress the others.
type cosmeticBucket struct {
	generic    []*rules.CosmeticRule
	byHostname map[string][]*rules.CosmeticRule
	wildcard   []*rules.CosmeticRule
	whitelist  []*rules.CosmeticRule
}

// add places a non-whitelist rule into the generic, wildcard, or
// byHostname set according to its permitted domains.
func (b *cosmeticBucket) add(r *rules.CosmeticRule) {
	switch {
	case r.IsGeneric():
		b.generic = append(b.generic, r)
	case r.HasWildcardDomain():
		b.wildcard = append(b.wildcard, r)
	default:
		if b.byHostname == nil {
			b.byHostname = make(map[string][]*rules.CosmeticRule)
		}

		for _, domain := range r.PermittedDomains() {
			b.byHostname[domain] = append(b.byHostname[domain], r)
		}
	}
}

// specificCandidates collects every specific (non-generic) rule that could
// possibly apply to hostname: the byHostname entries for hostname and each
// of its parent domains, plus any wildcard rule whose pattern matches.
// A rule with restricted domains still needs its own r.Match check by the
// caller; this only narrows the set down from "every specific rule" to
// "every specific rule plausibly relevant to hostname".
func (b *cosmeticBucket) specificCandidates(hostname string) []*rules.CosmeticRule {
	var out []*rules.CosmeticRule

	for _, domain := range filterutil.Subdomains(hostname) {
		out = append(out, b.byHostname[domain]...)
	}

	for _, r := range b.wildcard {
		if r.Match(hostname) {
			out = append(out, r)
		}
	}

	return out
}

// whitelistedContent returns the set of rule Content strings that a
// whitelist rule in this bucket disables for hostname.
func (b *cosmeticBucket) whitelistedContent(hostname string) map[string]bool {
	out := make(map[string]bool, len(b.whitelist))
	for _, r := range b.whitelist {
		if r.Match(hostname) {
			out[r.Content] = true
		}
	}

	return out
}

// CosmeticEngine resolves which cosmetic rules apply to a given hostname.
type CosmeticEngine struct {
	ruleStorage *filterlist.RuleStorage

	elemhide cosmeticBucket
	css      cosmeticBucket
	js       cosmeticBucket
	html     cosmeticBucket
}

// NewCosmeticEngine scans ruleStorage and builds a CosmeticEngine out of
// every cosmetic rule it contains.
func NewCosmeticEngine(ruleStorage *filterlist.RuleStorage) (e *CosmeticEngine) {
	e = &CosmeticEngine{ruleStorage: ruleStorage}

	scanner := ruleStorage.NewRuleStorageScanner()
	for scanner.Scan() {
		r, _ := scanner.Rule()

		cr, ok := r.(*rules.CosmeticRule)
		if !ok {
			continue
		}

		bucket := e.bucketFor(cr.Type)

		if cr.Whitelist {
			bucket.whitelist = append(bucket.whitelist, cr)
		} else {
			bucket.add(cr)
		}
	}

	return e
}

func (e *CosmeticEngine) bucketFor(t rules.CosmeticRuleType) *cosmeticBucket {
	switch t {
	case rules.CosmeticCSS:
		return &e.css
	case rules.CosmeticJS:
		return &e.js
	case rules.CosmeticHTML:
		return &e.html
	default:
		return &e.elemhide
	}
}

// Match resolves the cosmetic rules that apply to hostname. includeCSS
// controls element-hiding and CSS-injection rules, includeJS controls
// JS-injection rules, and includeGeneric controls whether domain-unrestricted
// rules are included at all.
func (e *CosmeticEngine) Match(hostname string, includeCSS, includeJS, includeGeneric bool) *CosmeticResult {
	result := &CosmeticResult{}

	if includeCSS {
		result.ElementHiding = matchElemhide(&e.elemhide, hostname, includeGeneric)
		result.CSS = matchFlat(&e.css, hostname, includeGeneric)
	}

	if includeJS {
		result.JS = matchFlat(&e.js, hostname, includeGeneric)
	}

	result.HTML = matchFlat(&e.html, hostname, includeGeneric)

	return result
}

// matchElemhide resolves the element-hiding rules applying to hostname,
// splitting specific from generic and ExtendedCSS from plain CSS.
func matchElemhide(b *cosmeticBucket, hostname string, includeGeneric bool) ElemhideResult {
	var out ElemhideResult

	whitelisted := b.whitelistedContent(hostname)

	for _, r := range b.specificCandidates(hostname) {
		if whitelisted[r.Content] || !r.Match(hostname) {
			continue
		}
		if r.ExtendedCSS {
			out.SpecificExtCSS = append(out.SpecificExtCSS, r.Content)
		} else {
			out.Specific = append(out.Specific, r.Content)
		}
	}

	if includeGeneric {
		for _, r := range b.generic {
			if whitelisted[r.Content] || !r.Match(hostname) {
				continue
			}
			if r.ExtendedCSS {
				out.GenericExtCSS = append(out.GenericExtCSS, r.Content)
			} else {
				out.Generic = append(out.Generic, r.Content)
			}
		}
	}

	return out
}

// matchFlat resolves a flat (non ExtendedCSS-split) list of rule content for
// the CSS/JS/HTML buckets.
func matchFlat(b *cosmeticBucket, hostname string, includeGeneric bool) []string {
	var out []string

	whitelisted := b.whitelistedContent(hostname)

	for _, r := range b.specificCandidates(hostname) {
		if whitelisted[r.Content] || !r.Match(hostname) {
			continue
		}
		out = append(out, r.Content)
	}

	if includeGeneric {
		for _, r := range b.generic {
			if whitelisted[r.Content] || !r.Match(hostname) {
				continue
			}
			out = append(out, r.Content)
		}
	}

	return out
}
