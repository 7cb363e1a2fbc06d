// Package lookup implements index structures used to speed up rule matching
// in the network and DNS engines.
package lookup

import "github.com/filterwall/blockengine/rules"

// Table is a common interface for all lookup tables.
type Table interface {
	// TryAdd attempts to add the rule to the lookup table. It returns
	// true/false depending on whether the rule is eligible for this lookup
	// table.
	TryAdd(f *rules.NetworkRule, storageIdx int64) (ok bool)

	// MatchAll finds all matching rules from this lookup table.
	MatchAll(r *rules.Request) (result []*rules.NetworkRule)

	// Len returns the number of rules currently held by this lookup table.
	// It is used to report per-table load so callers can tell which table
	// a rule set actually landed in without re-scanning the storage.
	Len() int
}
