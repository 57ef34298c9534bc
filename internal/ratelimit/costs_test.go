package ratelimit

import "testing"

func TestCostTable_Lookup(t *testing.T) {
	costs := DefaultCosts()

	cases := []struct {
		path string
		want int
	}{
		{"/api/config", 1},
		{"/api/auth", 2},
		{"/api/employees", 5},
		{"/api/employees/42", 5},
		{"/api/current-locations", 5},
		{"/api/user/today-status", 3},
		{"/api/address", 10},
		{"/api/records", 10},
		{"/api/records/123", 10},
		{"/api/reports/discipline", 50},
		{"/api/reports/discipline/2024-01", 50},
		{"/api/unknown-route", DefaultCost},
		{"/api/", DefaultCost},
	}

	for _, tc := range cases {
		if got := costs.Lookup(tc.path); got != tc.want {
			t.Errorf("Lookup(%q) = %d, want %d", tc.path, got, tc.want)
		}
	}
}

func TestCostTable_FirstMatchWins(t *testing.T) {
	costs := NewCostTable([]CostEntry{
		{Prefix: "/api/reports", Cost: 7},
		{Prefix: "/api/reports/discipline", Cost: 50},
	}, DefaultCost)

	// the broader prefix is listed first, so it wins even for the
	// more specific path
	if got := costs.Lookup("/api/reports/discipline"); got != 7 {
		t.Fatalf("Lookup = %d, want 7", got)
	}
}
