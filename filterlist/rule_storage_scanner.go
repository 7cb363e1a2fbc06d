package filterlist

import (
	"github.com/filterwall/blockengine/rules"
)

// ruleListIdxToStorageIdx packs a rule list ID and a rule's offset inside
// that list into the single int64 index RuleStorage uses as a rule's
// identity.
func ruleListIdxToStorageIdx(listID, ruleIdx int) int64 {
	return (int64(listID) << 32) | (int64(ruleIdx) & 0xFFFFFFFF)
}

// storageIdxToRuleListIdx reverses ruleListIdxToStorageIdx.
func storageIdxToRuleListIdx(storageIdx int64) (listID, ruleIdx int32) {
	listID = int32(storageIdx >> 32)
	ruleIdx = int32(storageIdx & 0xFFFFFFFF)

	return listID, ruleIdx
}

// RuleStorageScanner scans over several rule lists at once, returning each
// rule along with its storage-wide index.
type RuleStorageScanner struct {
	Scanners []*RuleScanner

	currentScanner int
}

// Scan advances the scanner to the next rule, skipping over exhausted
// sub-scanners, and reports whether a rule was found.
func (s *RuleStorageScanner) Scan() bool {
	for s.currentScanner < len(s.Scanners) {
		if s.Scanners[s.currentScanner].Scan() {
			return true
		}

		s.currentScanner++
	}

	return false
}

// Rule returns the rule found by the last call to Scan, and its storage-wide
// index.
func (s *RuleStorageScanner) Rule() (rule rules.Rule, storageIdx int64) {
	if s.currentScanner >= len(s.Scanners) {
		return nil, 0
	}

	scanner := s.Scanners[s.currentScanner]
	rule, idx := scanner.Rule()

	return rule, ruleListIdxToStorageIdx(scanner.listID, idx)
}
