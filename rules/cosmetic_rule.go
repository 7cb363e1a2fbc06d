package rules

import (
	"fmt"
	"slices"
	"strings"
)

// CosmeticRuleType is the enumeration of the various kinds of cosmetic rule
// content.
type CosmeticRuleType int

const (
	// CosmeticElementHiding hides a matched element by injecting
	// "selector { display: none !important; }".
	CosmeticElementHiding CosmeticRuleType = iota
	// CosmeticCSS injects an arbitrary CSS rule.
	CosmeticCSS
	// CosmeticJS injects an arbitrary script.
	CosmeticJS
	// CosmeticHTML removes elements matching an HTML filtering rule.
	CosmeticHTML
)

// cosmeticRulesMarkers lists every marker a cosmetic rule may start with,
// sorted by descending length so that a marker that is a prefix of another
// (e.g. "##" is a prefix of none, but "#@#" and "#@$#" share "#@") is always
// matched against its longest form first.
var cosmeticRulesMarkers = []string{
	// HTML filtering
	"$$", "$@$",
	// Script rules
	"#%#", "#@%#",
	// ExtCSS injection rules
	"#$?#", "#@$?#",
	// CSS injection
	"#$#", "#@$#",
	// ExtCSS hiding rules
	"#?#", "#@?#",
	// Element hiding rules
	"##", "#@#",
}

func init() {
	slices.SortFunc(cosmeticRulesMarkers, func(a, b string) int {
		return len(b) - len(a)
	})
}

// cosmeticMarkerInfo describes the kind and flags a cosmetic rule marker
// carries.
type cosmeticMarkerInfo struct {
	ruleType    CosmeticRuleType
	whitelist   bool
	extendedCSS bool
}

var cosmeticMarkerInfos = map[string]cosmeticMarkerInfo{
	"$$":    {CosmeticHTML, false, false},
	"$@$":   {CosmeticHTML, true, false},
	"#%#":   {CosmeticJS, false, false},
	"#@%#":  {CosmeticJS, true, false},
	"#$#":   {CosmeticCSS, false, false},
	"#@$#":  {CosmeticCSS, true, false},
	"#?#":   {CosmeticElementHiding, false, true},
	"#@?#":  {CosmeticElementHiding, true, true},
	"#$?#":  {CosmeticCSS, false, true},
	"#@$?#": {CosmeticCSS, true, true},
	"##":    {CosmeticElementHiding, false, false},
	"#@#":   {CosmeticElementHiding, true, false},
}

// isCosmetic reports whether line looks like a cosmetic rule.
func isCosmetic(line string) bool {
	_, _, ok := findCosmeticMarker(line)
	return ok
}

// findCosmeticMarker looks for the first cosmetic rule marker in line and
// returns its start index and text.
func findCosmeticMarker(line string) (idx int, marker string, ok bool) {
	for _, firstChar := range [2]byte{'#', '$'} {
		start := strings.IndexByte(line, firstChar)
		if start == -1 {
			continue
		}

		for _, m := range cosmeticRulesMarkers {
			if startsAtIndexWith(line, start, m) {
				return start, m, true
			}
		}
	}

	return 0, "", false
}

// startsAtIndexWith checks if str starts with substr at the specified index.
func startsAtIndexWith(str string, startIndex int, substr string) bool {
	if len(str)-startIndex < len(substr) {
		return false
	}

	for i := 0; i < len(substr); i++ {
		if str[startIndex+i] != substr[i] {
			return false
		}
	}

	return true
}

// CosmeticRule represents a cosmetic (element-hiding, CSS, JS, or HTML
// filtering) rule.
type CosmeticRule struct {
	RuleText     string
	FilterListID int
	Type         CosmeticRuleType
	Whitelist    bool
	ExtendedCSS  bool
	Content      string

	permittedDomains  []string
	restrictedDomains []string
}

// NewCosmeticRule parses ruleText as a cosmetic rule.
func NewCosmeticRule(ruleText string, filterListID int) (*CosmeticRule, error) {
	idx, marker, ok := findCosmeticMarker(ruleText)
	if !ok {
		return nil, fmt.Errorf("not a cosmetic rule: %s", ruleText)
	}

	info := cosmeticMarkerInfos[marker]

	f := &CosmeticRule{
		RuleText:     ruleText,
		FilterListID: filterListID,
		Type:         info.ruleType,
		Whitelist:    info.whitelist,
		ExtendedCSS:  info.extendedCSS,
	}

	domainsStr := ruleText[:idx]
	if domainsStr != "" {
		permitted, restricted, err := loadDomains(domainsStr, ",")
		if err != nil {
			return nil, err
		}
		f.permittedDomains = permitted
		f.restrictedDomains = restricted
	}

	if f.Whitelist && len(f.permittedDomains) == 0 {
		return nil, fmt.Errorf("whitelist cosmetic rule must specify a domain: %s", ruleText)
	}

	content := ruleText[idx+len(marker):]
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("cosmetic rule has no content: %s", ruleText)
	}
	f.Content = content

	return f, nil
}

// Text returns the original rule text. Implements the Rule interface.
func (f *CosmeticRule) Text() string {
	return f.RuleText
}

// GetFilterListID returns the ID of the filter list this rule belongs to.
func (f *CosmeticRule) GetFilterListID() int {
	return f.FilterListID
}

// Match reports whether this rule applies on the given hostname.
func (f *CosmeticRule) Match(hostname string) bool {
	if len(f.restrictedDomains) > 0 && isDomainOrSubdomainOfAny(hostname, f.restrictedDomains) {
		return false
	}

	if len(f.permittedDomains) == 0 {
		return true
	}

	return isDomainOrSubdomainOfAny(hostname, f.permittedDomains)
}

// IsGeneric reports whether the rule is not restricted to a specific set of
// domains.
func (f *CosmeticRule) IsGeneric() bool {
	return len(f.permittedDomains) == 0
}

// HasWildcardDomain reports whether any of the rule's permitted domains is
// a wildcard pattern ("*.example.com" or "google.*"), meaning it cannot be
// placed in an exact-match hostname index and must be matched by scanning.
func (f *CosmeticRule) HasWildcardDomain() bool {
	for _, d := range f.permittedDomains {
		if strings.Contains(d, "*") {
			return true
		}
	}

	return false
}

// PermittedDomains returns the rule's permitted domains, for callers (such
// as the cosmetic engine's hostname index) that need to bucket a rule by
// each of its domains individually.
func (f *CosmeticRule) PermittedDomains() []string {
	return f.permittedDomains
}
