package ratelimit

import "strings"

// DefaultCost applies to any API path without a table entry.
const DefaultCost = 3

type CostEntry struct {
	Prefix string
	Cost   int
}

// CostTable maps route prefixes to admission cost. First matching prefix
// wins, so dynamic suffixes like /api/records/123 hit their parent entry.
// Immutable after construction.
type CostTable struct {
	entries []CostEntry
	def     int
}

func NewCostTable(entries []CostEntry, def int) *CostTable {
	return &CostTable{entries: entries, def: def}
}

// DefaultCosts reflects how expensive each endpoint actually is: cached
// config is nearly free, report generation dominates a whole window.
func DefaultCosts() *CostTable {
	return NewCostTable([]CostEntry{
		{Prefix: "/api/config", Cost: 1},
		{Prefix: "/api/auth", Cost: 2},
		{Prefix: "/api/employees", Cost: 5},
		{Prefix: "/api/current-locations", Cost: 5},
		{Prefix: "/api/user/today-status", Cost: 3},
		{Prefix: "/api/address", Cost: 10},
		{Prefix: "/api/records", Cost: 10},
		{Prefix: "/api/reports/discipline", Cost: 50},
	}, DefaultCost)
}

func (t *CostTable) Lookup(path string) int {
	for _, e := range t.entries {
		if strings.HasPrefix(path, e.Prefix) {
			return e.Cost
		}
	}
	return t.def
}
