package stakes

import (
	"reflect"
	"testing"
)

func TestFallbackPairsByPosition(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"A1", "A2"}
	teamB := []string{"B1", "B2"}
	stakes := map[string]int{"A1": 100, "A2": 50, "B1": 80, "B2": 60}

	got := c.fallbackPairs(teamA, teamB, copyStakes(stakes), DefaultConfig())
	// Sorted by stake: A1/B1 and A2/B2 pair first, then A1's leftover
	// 20 meets B2's leftover 10.
	want := []StakePair{
		{PlayerAID: "A1", PlayerBID: "B1", Amount: 80},
		{PlayerAID: "A1", PlayerBID: "B2", Amount: 10},
		{PlayerAID: "A2", PlayerBID: "B2", Amount: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallbackPairs() = %v, want %v", got, want)
	}
}

func TestFallbackDiscardsBelowMinimum(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"A1"}
	teamB := []string{"B1"}
	stakes := map[string]int{"A1": 45, "B1": 40}

	got := c.fallbackPairs(teamA, teamB, copyStakes(stakes), DefaultConfig())
	// The 5-unit leftover on A1 has no partner above the minimum.
	want := []StakePair{{PlayerAID: "A1", PlayerBID: "B1", Amount: 40}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallbackPairs() = %v, want %v", got, want)
	}
}

func TestFallbackUnevenTeams(t *testing.T) {
	c := NewCalculator(nil)
	teamA := []string{"A1"}
	teamB := []string{"B1", "B2", "B3"}
	stakes := map[string]int{"A1": 100, "B1": 50, "B2": 40, "B3": 30}

	got := c.fallbackPairs(teamA, teamB, copyStakes(stakes), DefaultConfig())

	totals := playerTotals(got)
	if totals["A1"] != 100 {
		t.Errorf("A1 committed %d, want 100", totals["A1"])
	}
	var sum int
	for _, p := range got {
		if p.PlayerAID != "A1" {
			t.Errorf("pair %v: side A player should be A1", p)
		}
		sum += p.Amount
	}
	if sum != 100 {
		t.Errorf("total = %d, want 100", sum)
	}
}
