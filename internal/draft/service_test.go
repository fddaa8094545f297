package draft

import (
	"errors"
	"testing"

	"github.com/cubedraft/stakebot/internal/stakes"
)

func newTestService() *Service {
	return NewService(stakes.NewCalculator(nil), nil)
}

func setupDraft(t *testing.T, s *Service) {
	t.Helper()
	if _, err := s.StartDraft("chan1", "guild1", "organizer"); err != nil {
		t.Fatalf("StartDraft() error = %v", err)
	}
	for id, amount := range map[string]int{"A1": 60, "A2": 40, "B1": 50, "B2": 50} {
		if err := s.SetStake("chan1", id, amount, false); err != nil {
			t.Fatalf("SetStake(%s) error = %v", id, err)
		}
	}
	if err := s.SetTeams("chan1", []string{"A1", "A2"}, []string{"B1", "B2"}); err != nil {
		t.Fatalf("SetTeams() error = %v", err)
	}
}

func TestStartDraftRejectsSecond(t *testing.T) {
	s := newTestService()
	if _, err := s.StartDraft("chan1", "guild1", "organizer"); err != nil {
		t.Fatalf("StartDraft() error = %v", err)
	}
	if _, err := s.StartDraft("chan1", "guild1", "other"); !errors.Is(err, ErrDraftInProgress) {
		t.Errorf("second StartDraft() error = %v, want ErrDraftInProgress", err)
	}
	// Other channels are independent.
	if _, err := s.StartDraft("chan2", "guild1", "other"); err != nil {
		t.Errorf("StartDraft(chan2) error = %v", err)
	}
}

func TestSetStakeRequiresActiveDraft(t *testing.T) {
	s := newTestService()
	if err := s.SetStake("chan1", "A1", 50, false); !errors.Is(err, ErrNoActiveDraft) {
		t.Errorf("SetStake() error = %v, want ErrNoActiveDraft", err)
	}
}

func TestSetStakeRejectsNonPositive(t *testing.T) {
	s := newTestService()
	if _, err := s.StartDraft("chan1", "guild1", "organizer"); err != nil {
		t.Fatalf("StartDraft() error = %v", err)
	}
	if err := s.SetStake("chan1", "A1", 0, false); !errors.Is(err, ErrInvalidStake) {
		t.Errorf("SetStake(0) error = %v, want ErrInvalidStake", err)
	}
}

func TestSetTeamsRequiresDeclaredStakes(t *testing.T) {
	s := newTestService()
	if _, err := s.StartDraft("chan1", "guild1", "organizer"); err != nil {
		t.Fatalf("StartDraft() error = %v", err)
	}
	if err := s.SetStake("chan1", "A1", 50, false); err != nil {
		t.Fatalf("SetStake() error = %v", err)
	}
	err := s.SetTeams("chan1", []string{"A1"}, []string{"B1"})
	if !errors.Is(err, ErrStakeNotDeclared) {
		t.Errorf("SetTeams() error = %v, want ErrStakeNotDeclared", err)
	}
}

func TestPairingsAndComplete(t *testing.T) {
	s := newTestService()
	setupDraft(t, s)

	result, err := s.Pairings("chan1", stakes.DefaultConfig())
	if err != nil {
		t.Fatalf("Pairings() error = %v", err)
	}
	if len(result.Pairs) == 0 {
		t.Fatal("Pairings() returned no pairs")
	}

	snap, err := s.Complete("chan1", "a")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if snap.GuildID != "guild1" {
		t.Errorf("snapshot guild = %q, want guild1", snap.GuildID)
	}
	if !snap.Winners["A1"] || !snap.Winners["A2"] || snap.Winners["B1"] {
		t.Errorf("snapshot winners = %v, want team A", snap.Winners)
	}
	if len(snap.Pairs) != len(result.Pairs) {
		t.Errorf("snapshot has %d pairs, want %d", len(snap.Pairs), len(result.Pairs))
	}

	// The channel is free again after completion.
	if sess := s.Session("chan1"); sess != nil {
		t.Error("session still active after Complete")
	}
}

func TestCompleteRequiresPairings(t *testing.T) {
	s := newTestService()
	setupDraft(t, s)
	if _, err := s.Complete("chan1", "a"); !errors.Is(err, ErrNoPairings) {
		t.Errorf("Complete() error = %v, want ErrNoPairings", err)
	}
}

func TestCompleteRejectsUnknownSide(t *testing.T) {
	s := newTestService()
	setupDraft(t, s)
	if _, err := s.Pairings("chan1", stakes.DefaultConfig()); err != nil {
		t.Fatalf("Pairings() error = %v", err)
	}
	if _, err := s.Complete("chan1", "c"); !errors.Is(err, ErrUnknownWinner) {
		t.Errorf("Complete() error = %v, want ErrUnknownWinner", err)
	}
}

func TestStakeChangeInvalidatesPairings(t *testing.T) {
	s := newTestService()
	setupDraft(t, s)
	if _, err := s.Pairings("chan1", stakes.DefaultConfig()); err != nil {
		t.Fatalf("Pairings() error = %v", err)
	}
	if err := s.SetStake("chan1", "A1", 80, false); err != nil {
		t.Fatalf("SetStake() error = %v", err)
	}
	if _, err := s.Complete("chan1", "a"); !errors.Is(err, ErrNoPairings) {
		t.Errorf("Complete() after stake change error = %v, want ErrNoPairings", err)
	}
}

func TestCancelDraft(t *testing.T) {
	s := newTestService()
	if _, err := s.CancelDraft("chan1"); !errors.Is(err, ErrNoActiveDraft) {
		t.Errorf("CancelDraft() error = %v, want ErrNoActiveDraft", err)
	}
	sess, err := s.StartDraft("chan1", "guild1", "organizer")
	if err != nil {
		t.Fatalf("StartDraft() error = %v", err)
	}
	id, err := s.CancelDraft("chan1")
	if err != nil {
		t.Fatalf("CancelDraft() error = %v", err)
	}
	if id != sess.SessionID {
		t.Errorf("CancelDraft() = %q, want %q", id, sess.SessionID)
	}
	if s.Session("chan1") != nil {
		t.Error("session still present after cancel")
	}
}
