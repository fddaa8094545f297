package stakes

import "testing"

func TestCapOutliers(t *testing.T) {
	stakes := map[string]int{
		"P1": 10, "P2": 20, "P3": 30, "P4": 40, "P5": 500,
	}

	// Sorted values give Q1=20, Q3=40, IQR=20, bound 70.
	got := CapOutliers(stakes)
	if got["P5"] != 70 {
		t.Errorf("outlier capped to %d, want 70", got["P5"])
	}
	for _, id := range []string{"P1", "P2", "P3", "P4"} {
		if got[id] != stakes[id] {
			t.Errorf("player %s changed to %d, want %d", id, got[id], stakes[id])
		}
	}
	if stakes["P5"] != 500 {
		t.Errorf("input map mutated: P5 = %d", stakes["P5"])
	}
}

func TestCapOutliersNoOp(t *testing.T) {
	stakes := map[string]int{"P1": 10, "P2": 20, "P3": 30, "P4": 40}

	got := CapOutliers(stakes)
	if len(got) != len(stakes) {
		t.Fatalf("got %d entries, want %d", len(got), len(stakes))
	}
	for id, v := range stakes {
		if got[id] != v {
			t.Errorf("player %s = %d, want %d", id, got[id], v)
		}
	}
}

func TestCapOutliersEmpty(t *testing.T) {
	if got := CapOutliers(nil); len(got) != 0 {
		t.Errorf("CapOutliers(nil) = %v, want empty", got)
	}
}
