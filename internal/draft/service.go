package draft

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cubedraft/stakebot/internal/stakes"
)

var (
	ErrNoActiveDraft    = errors.New("no active draft in this channel")
	ErrDraftInProgress  = errors.New("a draft is already in progress in this channel")
	ErrTeamsNotSet      = errors.New("teams have not been set")
	ErrNoPairings       = errors.New("pairings have not been generated")
	ErrStakeNotDeclared = errors.New("player has not declared a stake")
	ErrInvalidStake     = errors.New("stake must be a positive amount")
	ErrUnknownWinner    = errors.New("winner side must be a or b")
)

// Service tracks at most one active draft per channel.
type Service struct {
	mu    sync.Mutex
	store map[string]*Session
	calc  *stakes.Calculator
	log   *slog.Logger
	now   func() time.Time
}

func NewService(calc *stakes.Calculator, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store: make(map[string]*Session),
		calc:  calc,
		log:   log,
		now:   time.Now,
	}
}

// StartDraft opens a draft in the channel. The returned session ID is
// stable for the draft's lifetime.
func (s *Service) StartDraft(channelID, guildID, organizerID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.store[channelID]; ok && sess.Active {
		return nil, ErrDraftInProgress
	}
	sess := &Session{
		SessionID:   fmt.Sprintf("%s-%d", channelID, s.now().Unix()),
		ChannelID:   channelID,
		GuildID:     guildID,
		OrganizerID: organizerID,
		Active:      true,
		Players:     make(map[string]*Player),
	}
	s.store[channelID] = sess
	s.log.Info("draft started", "session_id", sess.SessionID, "channel_id", channelID)
	return sess, nil
}

// CancelDraft drops the channel's draft.
func (s *Service) CancelDraft(channelID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.store[channelID]
	if !ok || !sess.Active {
		return "", ErrNoActiveDraft
	}
	delete(s.store, channelID)
	s.log.Info("draft cancelled", "session_id", sess.SessionID, "channel_id", channelID)
	return sess.SessionID, nil
}

// SetStake declares or amends a player's max stake. Capped players have
// their working stake limited to the opposing team's highest declaration
// when pairings run.
func (s *Service) SetStake(channelID, userID string, maxStake int, capped bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.store[channelID]
	if !ok || !sess.Active {
		return ErrNoActiveDraft
	}
	if maxStake <= 0 {
		return ErrInvalidStake
	}
	p, exists := sess.Players[userID]
	if !exists {
		p = &Player{UserID: userID}
		sess.Players[userID] = p
	}
	p.MaxStake = maxStake
	p.Capped = capped
	// A stake change invalidates previously generated pairings.
	sess.Result = nil
	return nil
}

// SetTeams records the drafted teams. Every teamed player must have
// declared a stake first.
func (s *Service) SetTeams(channelID string, teamA, teamB []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.store[channelID]
	if !ok || !sess.Active {
		return ErrNoActiveDraft
	}
	if len(teamA) == 0 || len(teamB) == 0 {
		return stakes.ErrEmptyTeam
	}
	seen := make(map[string]bool, len(teamA)+len(teamB))
	for _, id := range append(append([]string{}, teamA...), teamB...) {
		if seen[id] {
			return stakes.ErrTeamOverlap
		}
		seen[id] = true
		if p, ok := sess.Players[id]; !ok || p.MaxStake <= 0 {
			return fmt.Errorf("%w: %s", ErrStakeNotDeclared, id)
		}
	}
	sess.TeamA = append([]string{}, teamA...)
	sess.TeamB = append([]string{}, teamB...)
	sess.Result = nil
	return nil
}

// Pairings runs the allocation engine over the current teams and
// stakes, records the result on the session, and returns it.
func (s *Service) Pairings(channelID string, cfg stakes.Config) (*stakes.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.store[channelID]
	if !ok || !sess.Active {
		return nil, ErrNoActiveDraft
	}
	if len(sess.TeamA) == 0 || len(sess.TeamB) == 0 {
		return nil, ErrTeamsNotSet
	}

	declared := make(map[string]int, len(sess.Players))
	capPref := make(map[string]bool)
	for id, p := range sess.Players {
		declared[id] = p.MaxStake
		if p.Capped {
			capPref[id] = true
		}
	}

	result, err := s.calc.Calculate(sess.TeamA, sess.TeamB, declared, cfg, stakes.Options{CapPreference: capPref})
	if err != nil {
		return nil, err
	}
	sess.Result = result
	s.log.Info("pairings generated",
		"session_id", sess.SessionID,
		"method", string(result.Method),
		"pairs", len(result.Pairs),
		"total", result.Total())
	return result, nil
}

// Complete marks the winning side and returns a snapshot for
// persistence and debt creation. winnerSide is "a" or "b".
func (s *Service) Complete(channelID, winnerSide string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.store[channelID]
	if !ok || !sess.Active {
		return nil, ErrNoActiveDraft
	}
	if sess.Result == nil {
		return nil, ErrNoPairings
	}

	var winningTeam []string
	switch winnerSide {
	case "a":
		winningTeam = sess.TeamA
	case "b":
		winningTeam = sess.TeamB
	default:
		return nil, ErrUnknownWinner
	}

	winners := make(map[string]bool, len(winningTeam))
	for _, id := range winningTeam {
		winners[id] = true
	}
	sess.Winners = winners

	snap := s.snapshotLocked(sess)
	delete(s.store, channelID)
	s.log.Info("draft completed",
		"session_id", sess.SessionID,
		"winner_side", winnerSide,
		"pairs", len(snap.Pairs))
	return snap, nil
}

// Session returns the channel's active session, or nil.
func (s *Service) Session(channelID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.store[channelID]
	if !ok || !sess.Active {
		return nil
	}
	return sess
}

func (s *Service) snapshotLocked(sess *Session) *Snapshot {
	players := make([]Player, 0, len(sess.Players))
	for _, p := range sess.Players {
		players = append(players, *p)
	}
	pairs := append([]stakes.StakePair{}, sess.Result.Pairs...)
	return &Snapshot{
		SessionID: sess.SessionID,
		GuildID:   sess.GuildID,
		ChannelID: sess.ChannelID,
		Players:   players,
		Pairs:     pairs,
		Method:    sess.Result.Method,
		Winners:   sess.Winners,
	}
}
