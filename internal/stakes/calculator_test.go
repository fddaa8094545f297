package stakes

import (
	"errors"
	"testing"
)

func playerTotals(pairs []StakePair) map[string]int {
	totals := make(map[string]int)
	for _, p := range pairs {
		totals[p.PlayerAID] += p.Amount
		totals[p.PlayerBID] += p.Amount
	}
	return totals
}

// assertInvariants checks the properties every valid result must hold:
// positive consolidated pairs with side A on team A, equal team
// totals, and no player committed beyond their declared maximum.
func assertInvariants(t *testing.T, teamA, teamB []string, declared map[string]int, res *Result) {
	t.Helper()

	inA := make(map[string]bool, len(teamA))
	for _, id := range teamA {
		inA[id] = true
	}
	inB := make(map[string]bool, len(teamB))
	for _, id := range teamB {
		inB[id] = true
	}

	seen := make(map[[2]string]bool)
	var totalA, totalB int
	for _, p := range res.Pairs {
		if p.Amount <= 0 {
			t.Errorf("pair %v has non-positive amount", p)
		}
		if !inA[p.PlayerAID] {
			t.Errorf("pair %v: side A player %s is not on team A", p, p.PlayerAID)
		}
		if !inB[p.PlayerBID] {
			t.Errorf("pair %v: side B player %s is not on team B", p, p.PlayerBID)
		}
		key := [2]string{p.PlayerAID, p.PlayerBID}
		if seen[key] {
			t.Errorf("pair key %v appears more than once after consolidation", key)
		}
		seen[key] = true
		totalA += p.Amount
		totalB += p.Amount
	}
	if totalA != totalB {
		t.Errorf("team totals differ: A=%d B=%d", totalA, totalB)
	}

	for id, total := range playerTotals(res.Pairs) {
		if total > declared[id] {
			t.Errorf("player %s committed %d above declared max %d", id, total, declared[id])
		}
	}
}

// assertMinTeamSatisfied checks that every player on the given team is
// committed for exactly their declared stake.
func assertMinTeamSatisfied(t *testing.T, team []string, declared map[string]int, res *Result) {
	t.Helper()
	totals := playerTotals(res.Pairs)
	for _, id := range team {
		if totals[id] != declared[id] {
			t.Errorf("min team player %s committed %d, want full stake %d", id, totals[id], declared[id])
		}
	}
}

func TestCalculateSinglePair(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"P1"}
	teamB := []string{"P2"}
	stakes := map[string]int{"P1": 100, "P2": 100}

	res, err := c.Calculate(teamA, teamB, stakes, DefaultConfig(), Options{})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Method != MethodTiered {
		t.Fatalf("Method = %v, want %v", res.Method, MethodTiered)
	}
	if len(res.Pairs) != 1 {
		t.Fatalf("got %d pairs, want 1: %v", len(res.Pairs), res.Pairs)
	}
	want := StakePair{PlayerAID: "P1", PlayerBID: "P2", Amount: 100}
	if res.Pairs[0] != want {
		t.Errorf("pair = %v, want %v", res.Pairs[0], want)
	}
	assertInvariants(t, teamA, teamB, stakes, res)
}

func TestCalculateBalancedTeams(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"P1", "P2"}
	teamB := []string{"P3", "P4"}
	stakes := map[string]int{"P1": 30, "P2": 30, "P3": 20, "P4": 40}

	res, err := c.Calculate(teamA, teamB, stakes, DefaultConfig(), Options{})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Method != MethodTiered {
		t.Fatalf("Method = %v, want %v", res.Method, MethodTiered)
	}
	if res.Total() != 60 {
		t.Errorf("total = %d, want 60", res.Total())
	}
	for _, p := range res.Pairs {
		if p.Amount < 10 {
			t.Errorf("pair %v below minimum stake", p)
		}
	}
	assertInvariants(t, teamA, teamB, stakes, res)
	assertMinTeamSatisfied(t, teamA, stakes, res)
	assertMinTeamSatisfied(t, teamB, stakes, res)
}

func TestMTMBCapsWhale(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"M1", "M2", "M3"} // min team, total 100
	teamB := []string{"W", "X", "Y"}    // whale plus small teammates
	stakes := map[string]int{
		"M1": 40, "M2": 30, "M3": 30,
		"W": 500, "X": 20, "Y": 30,
	}

	// Reserved = 20 + 30 low tier, whale is the single high bettor, so
	// MTMB = max(100 - 50, 50) = 50.
	res, err := c.Calculate(teamA, teamB, stakes, DefaultConfig(), Options{})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Method != MethodTiered {
		t.Fatalf("Method = %v, want %v", res.Method, MethodTiered)
	}

	totals := playerTotals(res.Pairs)
	if totals["W"] > 50 {
		t.Errorf("whale committed %d, want at most MTMB of 50", totals["W"])
	}
	assertInvariants(t, teamA, teamB, stakes, res)
	assertMinTeamSatisfied(t, teamA, stakes, res)
}

func TestHighTierProportionalAllocation(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"M1", "M2"} // min team, total 200
	teamB := []string{"H1", "H2", "L1"}
	stakes := map[string]int{
		"M1": 100, "M2": 100,
		"H1": 150, "H2": 100, "L1": 50,
	}

	// MTMB caps H1 to 100. Low tier L1 keeps 50, the remaining pool of
	// 150 is spread over the two capped high bettors at 75% and floor
	// rounded, and the leftover multiple goes to the highest declared
	// stake first.
	res, err := c.Calculate(teamA, teamB, stakes, DefaultConfig(), Options{})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Method != MethodTiered {
		t.Fatalf("Method = %v, want %v", res.Method, MethodTiered)
	}

	totals := playerTotals(res.Pairs)
	want := map[string]int{"M1": 100, "M2": 100, "H1": 80, "H2": 70, "L1": 50}
	for id, w := range want {
		if totals[id] != w {
			t.Errorf("player %s committed %d, want %d", id, totals[id], w)
		}
	}
	assertInvariants(t, teamA, teamB, stakes, res)
}

func TestFallbackWhenInfeasible(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"P1"}
	teamB := []string{"Q1", "Q2", "Q3"}
	stakes := map[string]int{"P1": 40, "Q1": 50, "Q2": 60, "Q3": 70}

	res, err := c.Calculate(teamA, teamB, stakes, DefaultConfig(), Options{})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Method != MethodFallback {
		t.Fatalf("Method = %v, want %v", res.Method, MethodFallback)
	}
	if res.FallbackReason == "" {
		t.Error("FallbackReason is empty")
	}
	if len(res.Pairs) == 0 {
		t.Fatal("fallback returned no pairs")
	}
	assertInvariants(t, teamA, teamB, stakes, res)
}

func TestForcedAllocationBelowMinimum(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"P1", "P2"}
	teamB := []string{"Q1", "Q2"}
	stakes := map[string]int{"P1": 45, "P2": 30, "Q1": 35, "Q2": 40}

	res, err := c.Calculate(teamA, teamB, stakes, DefaultConfig(), Options{})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if res.Method != MethodTiered {
		t.Fatalf("Method = %v, want %v", res.Method, MethodTiered)
	}
	// Both teams total 75; the min team must still be satisfied in
	// full even though a 5-unit remainder cannot clear the minimum
	// stake on its own.
	assertInvariants(t, teamA, teamB, stakes, res)
	assertMinTeamSatisfied(t, teamA, stakes, res)
	assertMinTeamSatisfied(t, teamB, stakes, res)
}

func TestPermutationInvariance(t *testing.T) {
	stakes := map[string]int{
		"A1": 120, "A2": 50, "A3": 30,
		"B1": 80, "B2": 60, "B3": 40,
	}
	orders := [][2][]string{
		{{"A1", "A2", "A3"}, {"B1", "B2", "B3"}},
		{{"A3", "A1", "A2"}, {"B2", "B3", "B1"}},
		{{"A2", "A3", "A1"}, {"B3", "B1", "B2"}},
	}

	c := NewCalculator(nil)
	var baseline map[string]int
	for i, o := range orders {
		res, err := c.Calculate(o[0], o[1], stakes, DefaultConfig(), Options{})
		if err != nil {
			t.Fatalf("order %d: Calculate() error = %v", i, err)
		}
		totals := playerTotals(res.Pairs)
		if baseline == nil {
			baseline = totals
			continue
		}
		for id, want := range baseline {
			if totals[id] != want {
				t.Errorf("order %d: player %s committed %d, want %d", i, id, totals[id], want)
			}
		}
	}
}

func TestCalculateDoesNotMutateInput(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"P1"}
	teamB := []string{"P2", "P3"}
	stakes := map[string]int{"P1": 300, "P2": 100, "P3": 40}
	snapshot := map[string]int{"P1": 300, "P2": 100, "P3": 40}

	_, err := c.Calculate(teamA, teamB, stakes, DefaultConfig(), Options{
		CapPreference: map[string]bool{"P1": true},
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	for id, want := range snapshot {
		if stakes[id] != want {
			t.Errorf("caller stake for %s mutated: got %d, want %d", id, stakes[id], want)
		}
	}
}

func TestCapPreference(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"P1"}
	teamB := []string{"P2"}
	stakes := map[string]int{"P1": 200, "P2": 100}

	res, err := c.Calculate(teamA, teamB, stakes, DefaultConfig(), Options{
		CapPreference: map[string]bool{"P1": true},
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	totals := playerTotals(res.Pairs)
	if totals["P1"] != 100 {
		t.Errorf("capped player committed %d, want 100", totals["P1"])
	}
	assertInvariants(t, teamA, teamB, stakes, res)
}

func TestCalculateValidation(t *testing.T) {
	c := NewCalculator(nil)
	stakes := map[string]int{"P1": 50, "P2": 50}

	tests := []struct {
		name    string
		teamA   []string
		teamB   []string
		stakes  map[string]int
		wantErr error
	}{
		{
			name:    "empty team",
			teamA:   nil,
			teamB:   []string{"P2"},
			stakes:  stakes,
			wantErr: ErrEmptyTeam,
		},
		{
			name:    "overlapping teams",
			teamA:   []string{"P1"},
			teamB:   []string{"P1"},
			stakes:  stakes,
			wantErr: ErrTeamOverlap,
		},
		{
			name:    "missing stake",
			teamA:   []string{"P1"},
			teamB:   []string{"P9"},
			stakes:  stakes,
			wantErr: ErrMissingStake,
		},
		{
			name:    "negative stake",
			teamA:   []string{"P1"},
			teamB:   []string{"P2"},
			stakes:  map[string]int{"P1": 50, "P2": -10},
			wantErr: ErrNegativeStake,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Calculate(tt.teamA, tt.teamB, tt.stakes, DefaultConfig(), Options{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Calculate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestComputeMTMB(t *testing.T) {
	tests := []struct {
		name     string
		maxTeam  []entry
		minTotal int
		want     int
	}{
		{
			name:     "single whale with low teammates",
			maxTeam:  []entry{{"W", 500}, {"X", 20}, {"Y", 30}},
			minTotal: 100,
			want:     50,
		},
		{
			name:     "two high bettors reserve the ceiling for the second",
			maxTeam:  []entry{{"H1", 150}, {"H2", 100}, {"L1", 50}},
			minTotal: 200,
			want:     100,
		},
		{
			name:     "floor at the tier ceiling",
			maxTeam:  []entry{{"H1", 300}, {"L1", 50}, {"L2", 50}},
			minTotal: 110,
			want:     50,
		},
		{
			name:     "no reservation for a lone high bettor",
			maxTeam:  []entry{{"H1", 400}},
			minTotal: 120,
			want:     120,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeMTMB(tt.maxTeam, tt.minTotal); got != tt.want {
				t.Errorf("computeMTMB() = %d, want %d", got, tt.want)
			}
		})
	}
}
