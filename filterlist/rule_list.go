package filterlist

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/filterwall/blockengine/rules"
)

// RuleList is a source of filtering rules that can be scanned from the start
// and whose rules can later be retrieved again by the byte offset a scan
// reported for them.
type RuleList interface {
	// GetID returns this list's identifier.
	GetID() int

	// NewScanner returns a scanner that reads this list's rules from the
	// beginning.
	NewScanner() *RuleScanner

	// RetrieveRule parses and returns the single rule starting at ruleIdx.
	RetrieveRule(ruleIdx int) (rules.Rule, error)

	// Close releases any resources held by the list.
	Close() error
}

// StringRuleList is a RuleList backed by an in-memory string.
type StringRuleList struct {
	ID             int
	RulesText      string
	IgnoreCosmetic bool
}

// GetID implements the RuleList interface for *StringRuleList.
func (l *StringRuleList) GetID() int {
	return l.ID
}

// NewScanner implements the RuleList interface for *StringRuleList.
func (l *StringRuleList) NewScanner() *RuleScanner {
	return NewRuleScanner(strings.NewReader(l.RulesText), l.ID, l.IgnoreCosmetic)
}

// RetrieveRule implements the RuleList interface for *StringRuleList.
func (l *StringRuleList) RetrieveRule(ruleIdx int) (rules.Rule, error) {
	if ruleIdx < 0 || ruleIdx >= len(l.RulesText) {
		return nil, fmt.Errorf("list %d: rule index %d out of range", l.ID, ruleIdx)
	}

	scanner := NewRuleScanner(strings.NewReader(l.RulesText[ruleIdx:]), l.ID, l.IgnoreCosmetic)
	if !scanner.Scan() {
		return nil, fmt.Errorf("list %d: no rule at offset %d", l.ID, ruleIdx)
	}

	rule, _ := scanner.Rule()

	return rule, nil
}

// Close implements the RuleList interface for *StringRuleList. There is
// nothing to release since the list owns no external resource.
func (l *StringRuleList) Close() error {
	return nil
}

// FileRuleList is a RuleList backed by a filter list file on disk. It keeps
// a single open file handle for its lifetime and seeks it before every scan
// or retrieval, rather than loading the file contents into memory.
type FileRuleList struct {
	ID             int
	IgnoreCosmetic bool

	file *os.File
}

// NewFileRuleList opens path and returns a RuleList reading rules from it.
func NewFileRuleList(id int, path string, ignoreCosmetic bool) (*FileRuleList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rule list file: %w", err)
	}

	return &FileRuleList{ID: id, IgnoreCosmetic: ignoreCosmetic, file: f}, nil
}

// GetID implements the RuleList interface for *FileRuleList.
func (l *FileRuleList) GetID() int {
	return l.ID
}

// NewScanner implements the RuleList interface for *FileRuleList.
func (l *FileRuleList) NewScanner() *RuleScanner {
	_, _ = l.file.Seek(0, io.SeekStart)

	return NewRuleScanner(l.file, l.ID, l.IgnoreCosmetic)
}

// RetrieveRule implements the RuleList interface for *FileRuleList.
func (l *FileRuleList) RetrieveRule(ruleIdx int) (rules.Rule, error) {
	if _, err := l.file.Seek(int64(ruleIdx), io.SeekStart); err != nil {
		return nil, fmt.Errorf("list %d: seeking to offset %d: %w", l.ID, ruleIdx, err)
	}

	scanner := NewRuleScanner(l.file, l.ID, l.IgnoreCosmetic)
	if !scanner.Scan() {
		return nil, fmt.Errorf("list %d: no rule at offset %d", l.ID, ruleIdx)
	}

	rule, _ := scanner.Rule()

	return rule, nil
}

// Close implements the RuleList interface for *FileRuleList.
func (l *FileRuleList) Close() error {
	return l.file.Close()
}
