package draft

import "github.com/cubedraft/stakebot/internal/stakes"

// Session is one draft bet in a channel. SessionID doubles as the
// ledger source id once the draft completes.
type Session struct {
	SessionID   string
	ChannelID   string
	GuildID     string
	OrganizerID string
	Active      bool
	Players     map[string]*Player
	TeamA       []string
	TeamB       []string
	Result      *stakes.Result
	Winners     map[string]bool
}

type Player struct {
	UserID   string
	MaxStake int
	Capped   bool
}

// Snapshot is the immutable view handed to persistence and debt
// creation after Complete.
type Snapshot struct {
	SessionID string
	GuildID   string
	ChannelID string
	Players   []Player
	Pairs     []stakes.StakePair
	Method    stakes.Method
	Winners   map[string]bool
}
