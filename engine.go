package urlfilter

import (
	"github.com/filterwall/blockengine/filterlist"
	"github.com/filterwall/blockengine/rules"
)

// Engine is the main filtering facade. It owns a rule storage and drives
// both network-rule matching and cosmetic-rule matching over it.
type Engine struct {
	ruleStorage    *filterlist.RuleStorage
	networkEngine  *NetworkEngine
	cosmeticEngine *CosmeticEngine
	config         Configuration
}

// NewEngine scans ruleStorage and builds an Engine ready to match requests
// against every rule it contains. config is optional; when omitted, the
// engine runs with a zero Configuration (not verbose, no engine/version
// identification).
func NewEngine(ruleStorage *filterlist.RuleStorage, config ...Configuration) (e *Engine) {
	e = &Engine{
		ruleStorage:    ruleStorage,
		networkEngine:  NewNetworkEngine(ruleStorage),
		cosmeticEngine: NewCosmeticEngine(ruleStorage),
	}

	if len(config) > 0 {
		e.config = config[0]
	}

	return e
}

// Config returns the Configuration the engine was built with.
func (e *Engine) Config() Configuration {
	return e.config
}

// RulesCount returns the number of network rules loaded into the engine.
func (e *Engine) RulesCount() int {
	return e.networkEngine.RulesCount
}

// MatchRequest finds every network rule applying to request, plus every
// rule applying to its referrer, and reduces them to a single
// MatchingResult.
func (e *Engine) MatchRequest(request *rules.Request) *rules.MatchingResult {
	matched := e.networkEngine.MatchAll(request)

	var sourceRules []*rules.NetworkRule
	if request.SourceURL != "" {
		sourceRequest := rules.NewRequest(request.SourceURL, "", rules.TypeDocument)
		sourceRules = e.networkEngine.MatchAll(sourceRequest)
	}

	result := rules.NewMatchingResult(matched, sourceRules)

	return &result
}

// TableStats reports how many network rules ended up in each internal
// lookup table, for diagnostics and filter-list quality checks.
func (e *Engine) TableStats() map[string]int {
	return e.networkEngine.TableStats()
}

// MatchCookieRules finds every $cookie rule applying to request, ready to
// hand to a cookiefilter.CookieFilter's RequestHeadersPhase.
func (e *Engine) MatchCookieRules(request *rules.Request) []*rules.NetworkRule {
	return e.MatchRequest(request).CookieRules
}

// MatchHostname finds every network rule applying to a bare hostname, with
// no surrounding URL or referrer context. It's meant for DNS- or
// SNI-level filtering, where only the hostname is known.
func (e *Engine) MatchHostname(hostname string) *rules.MatchingResult {
	request := rules.NewRequestForHostname(hostname)

	result := rules.NewMatchingResult(e.networkEngine.MatchAll(request), nil)

	return &result
}

// GetCosmeticResult resolves the cosmetic rules that apply to hostname,
// honoring the given CosmeticOption.
func (e *Engine) GetCosmeticResult(hostname string, option rules.CosmeticOption) *CosmeticResult {
	return e.cosmeticEngine.Match(
		hostname,
		option&rules.CosmeticOptionCSS != 0,
		option&rules.CosmeticOptionJS != 0,
		option&rules.CosmeticOptionGenericCSS != 0,
	)
}

// Close releases the underlying rule storage.
func (e *Engine) Close() error {
	return e.ruleStorage.Close()
}
