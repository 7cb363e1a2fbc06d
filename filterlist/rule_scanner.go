package filterlist

import (
	"bufio"
	"io"
	"strings"

	"github.com/filterwall/blockengine/rules"
)

// RuleScanner reads filtering rules one at a time out of an underlying
// io.Reader, tracking the byte offset each rule started at so that it can
// later be addressed again through RuleList.RetrieveRule.
type RuleScanner struct {
	scanner        *bufio.Scanner
	listID         int
	ignoreCosmetic bool

	offset int

	currentRule rules.Rule
	currentIdx  int
}

// NewRuleScanner creates a RuleScanner that reads rules for list listID out
// of r. When ignoreCosmetic is true, cosmetic rules are skipped.
func NewRuleScanner(r io.Reader, listID int, ignoreCosmetic bool) *RuleScanner {
	return &RuleScanner{
		scanner:        bufio.NewScanner(r),
		listID:         listID,
		ignoreCosmetic: ignoreCosmetic,
	}
}

// Scan reads the next valid rule, returning false once the input is
// exhausted.
func (s *RuleScanner) Scan() bool {
	for s.scanner.Scan() {
		line := s.scanner.Text()
		startIdx := s.offset
		s.offset += len(line) + 1

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		rule, err := rules.NewRule(trimmed, s.listID)
		if err != nil || rule == nil {
			continue
		}

		if s.ignoreCosmetic {
			if _, ok := rule.(*rules.CosmeticRule); ok {
				continue
			}
		}

		s.currentRule = rule
		s.currentIdx = startIdx

		return true
	}

	return false
}

// Rule returns the rule found by the most recent call to Scan, along with
// its byte offset inside the scanned list.
func (s *RuleScanner) Rule() (rule rules.Rule, idx int) {
	return s.currentRule, s.currentIdx
}
