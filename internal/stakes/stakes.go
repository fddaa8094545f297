// Package stakes computes bilateral stake pairings between two draft
// teams. Each drafter declares a maximum bet; the calculator produces a
// set of player-to-player pairs such that the team with the lower
// total (the min team) is satisfied in full, the other team is reduced
// proportionally, amounts land on a configured multiple, and the
// number of distinct pairs stays small.
package stakes

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// tierCeiling separates low-tier bets (honored in full) from high-tier
// bets (subject to proportional reduction and MTMB capping).
const tierCeiling = 50

// StakePair is a single bilateral commitment between two opposing
// players. PlayerAID is always a team-A player.
type StakePair struct {
	PlayerAID string
	PlayerBID string
	Amount    int
}

// Config holds the tunable knobs of a calculation.
type Config struct {
	// MinStake is the smallest bet a single pairing may carry, barring
	// the forced-allocation exception needed to satisfy the min team.
	MinStake int
	// Multiple is the rounding granularity for computed allocations.
	Multiple int
}

// DefaultConfig returns the values used by the bot when the organizer
// does not override them.
func DefaultConfig() Config {
	return Config{MinStake: 10, Multiple: 10}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinStake <= 0 {
		c.MinStake = d.MinStake
	}
	if c.Multiple <= 0 {
		c.Multiple = d.Multiple
	}
	return c
}

// Options carries per-player preferences that adjust declared stakes
// before the allocation runs.
type Options struct {
	// CapPreference caps an opted-in player's declared stake at the
	// highest declared stake on the opposing team.
	CapPreference map[string]bool
}

// Method records which algorithm produced a Result.
type Method string

const (
	MethodTiered   Method = "tiered"
	MethodFallback Method = "fallback"
)

// Result is the outcome of a calculation. When the tiered algorithm's
// preconditions do not hold, or it fails internally, the simple greedy
// matcher runs instead and FallbackReason records why.
type Result struct {
	Pairs          []StakePair
	Method         Method
	FallbackReason string
}

// Total returns the sum of all pair amounts. Because every pair spans
// both teams, this equals each team's committed total.
func (r *Result) Total() int {
	total := 0
	for _, p := range r.Pairs {
		total += p.Amount
	}
	return total
}

var (
	ErrEmptyTeam     = errors.New("stakes: both teams need at least one player")
	ErrTeamOverlap   = errors.New("stakes: teams must be disjoint")
	ErrMissingStake  = errors.New("stakes: player has no declared stake")
	ErrNegativeStake = errors.New("stakes: declared stake must not be negative")

	// errInfeasible marks tiered preconditions that force the fallback.
	errInfeasible = errors.New("min team total cannot cover the opposing minimum commitment")
)

// Calculator runs stake calculations. It holds no state across calls
// and is safe for concurrent use with distinct inputs.
type Calculator struct {
	log *slog.Logger
}

// NewCalculator returns a Calculator logging through the given logger.
// A nil logger discards everything.
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Calculator{log: logger}
}

// Calculate produces consolidated stake pairs for the two teams. The
// stakes map must contain an entry for every player on either team.
// Inputs are never mutated. An error is returned only for invalid
// input; algorithmic trouble inside the tiered path downgrades to the
// fallback matcher instead.
func (c *Calculator) Calculate(teamA, teamB []string, stakes map[string]int, cfg Config, opts Options) (*Result, error) {
	cfg = cfg.withDefaults()
	if err := validateInput(teamA, teamB, stakes); err != nil {
		return nil, err
	}

	working := copyStakes(stakes)
	c.applyCapPreference(teamA, teamB, working, opts.CapPreference)

	c.log.Info("starting stake calculation",
		"team_a", len(teamA), "team_b", len(teamB),
		"min_stake", cfg.MinStake, "multiple", cfg.Multiple)

	pairs, err := c.runTiered(teamA, teamB, working, cfg)
	if err != nil {
		c.log.Warn("tiered allocation unavailable, using fallback", "reason", err)
		return &Result{
			Pairs:          c.fallbackPairs(teamA, teamB, working, cfg),
			Method:         MethodFallback,
			FallbackReason: err.Error(),
		}, nil
	}
	return &Result{Pairs: pairs, Method: MethodTiered}, nil
}

func validateInput(teamA, teamB []string, stakes map[string]int) error {
	if len(teamA) == 0 || len(teamB) == 0 {
		return ErrEmptyTeam
	}
	seen := make(map[string]struct{}, len(teamA))
	for _, id := range teamA {
		seen[id] = struct{}{}
	}
	for _, id := range teamB {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrTeamOverlap, id)
		}
	}
	for _, team := range [][]string{teamA, teamB} {
		for _, id := range team {
			stake, ok := stakes[id]
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingStake, id)
			}
			if stake < 0 {
				return fmt.Errorf("%w: %s", ErrNegativeStake, id)
			}
		}
	}
	return nil
}

// applyCapPreference lowers an opted-in player's working stake to the
// highest declared stake on the opposing team.
func (c *Calculator) applyCapPreference(teamA, teamB []string, stakes map[string]int, prefs map[string]bool) {
	if len(prefs) == 0 {
		return
	}
	maxA := highestStake(teamA, stakes)
	maxB := highestStake(teamB, stakes)
	for _, id := range teamA {
		if prefs[id] && stakes[id] > maxB {
			c.log.Info("capped by preference", "player", id, "from", stakes[id], "to", maxB)
			stakes[id] = maxB
		}
	}
	for _, id := range teamB {
		if prefs[id] && stakes[id] > maxA {
			c.log.Info("capped by preference", "player", id, "from", stakes[id], "to", maxA)
			stakes[id] = maxA
		}
	}
}

func highestStake(team []string, stakes map[string]int) int {
	max := 0
	for _, id := range team {
		if stakes[id] > max {
			max = stakes[id]
		}
	}
	return max
}

func copyStakes(stakes map[string]int) map[string]int {
	out := make(map[string]int, len(stakes))
	for id, v := range stakes {
		out[id] = v
	}
	return out
}

// entry is a worklist item: a player and the amount still attached to
// them at the current stage (declared stake, target, or remainder).
type entry struct {
	id     string
	amount int
}

// teamEntries builds the worklist for a team, ordered by amount
// descending with the player id as a deterministic tie break.
func teamEntries(team []string, stakes map[string]int) []entry {
	out := make([]entry, 0, len(team))
	for _, id := range team {
		out = append(out, entry{id: id, amount: stakes[id]})
	}
	sortEntries(out)
	return out
}

func sortEntries(es []entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].amount != es[j].amount {
			return es[i].amount > es[j].amount
		}
		return es[i].id < es[j].id
	})
}

func sumEntries(es []entry) int {
	total := 0
	for _, e := range es {
		total += e.amount
	}
	return total
}

// minRequired is the smallest total a team can be reduced to: low-tier
// bets in full, high-tier bets at the tier ceiling.
func minRequired(es []entry) int {
	total := 0
	for _, e := range es {
		if e.amount <= tierCeiling {
			total += e.amount
		} else {
			total += tierCeiling
		}
	}
	return total
}

func floorToMultiple(v, multiple int) int {
	return (v / multiple) * multiple
}
