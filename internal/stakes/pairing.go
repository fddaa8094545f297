package stakes

import (
	"fmt"
	"sort"
)

// makePair keeps side A of every pair aligned with the caller's team A,
// regardless of which side ended up as the min team.
func makePair(minID, maxID string, amount int, minIsA bool) StakePair {
	if minIsA {
		return StakePair{PlayerAID: minID, PlayerBID: maxID, Amount: amount}
	}
	return StakePair{PlayerAID: maxID, PlayerBID: minID, Amount: amount}
}

// buildPairs turns per-player target allocations into concrete pairs.
// Worklists of (player, remaining) shrink to exhaustion across four
// passes: identical amounts, full single-pair coverage, greedy
// splitting, and finally forced allocation for any min-team remainder
// that the multiple filter left stranded.
func (c *Calculator) buildPairs(tm teams, targets map[string]int, cfg Config) ([]StakePair, error) {
	remMin := remainders(tm.min, targets)
	remMax := remainders(tm.max, targets)

	var pairs []StakePair

	pairs = c.matchIdentical(&remMin, &remMax, pairs, tm.minIsA, cfg)
	pairs = c.matchComplete(&remMin, &remMax, pairs, tm.minIsA, cfg)
	pairs = c.matchGreedy(&remMin, &remMax, pairs, tm.minIsA, cfg)
	pairs = c.forceRemainder(&remMin, &remMax, pairs, tm.minIsA)

	if left := sumEntries(remMin); left > 0 {
		return nil, fmt.Errorf("min team remainder %d could not be paired", left)
	}
	return pairs, nil
}

func remainders(team []entry, targets map[string]int) []entry {
	out := make([]entry, 0, len(team))
	for _, e := range team {
		if t := targets[e.id]; t > 0 {
			out = append(out, entry{id: e.id, amount: t})
		}
	}
	sortEntries(out)
	return out
}

// matchIdentical pairs players whose remaining targets are equal.
// These matches never fragment either side.
func (c *Calculator) matchIdentical(remMin, remMax *[]entry, pairs []StakePair, minIsA bool, cfg Config) []StakePair {
	byAmount := make(map[int][]int) // amount -> indexes into remMax
	for j, e := range *remMax {
		byAmount[e.amount] = append(byAmount[e.amount], j)
	}

	usedMin := make(map[int]bool)
	usedMax := make(map[int]bool)
	for i, me := range *remMin {
		if me.amount < cfg.Multiple {
			continue
		}
		for _, j := range byAmount[me.amount] {
			if usedMax[j] {
				continue
			}
			pairs = append(pairs, makePair(me.id, (*remMax)[j].id, me.amount, minIsA))
			usedMin[i] = true
			usedMax[j] = true
			c.log.Info("matched identical allocations",
				"min_player", me.id, "max_player", (*remMax)[j].id, "amount", me.amount)
			break
		}
	}

	*remMin = dropUsed(*remMin, usedMin)
	*remMax = dropUsed(*remMax, usedMax)
	return pairs
}

func dropUsed(es []entry, used map[int]bool) []entry {
	out := es[:0]
	for i, e := range es {
		if !used[i] {
			out = append(out, e)
		}
	}
	return out
}

// matchComplete satisfies each remaining min-team player with a single
// pair against a max-team player who can absorb the whole amount. The
// best-fitting partner (smallest sufficient remainder) is chosen so
// large max remainders stay available for large min players.
func (c *Calculator) matchComplete(remMin, remMax *[]entry, pairs []StakePair, minIsA bool, cfg Config) []StakePair {
	sortEntries(*remMin)
	usedMin := make(map[int]bool)
	for i, me := range *remMin {
		if me.amount < cfg.Multiple {
			continue
		}
		best := -1
		for j, xe := range *remMax {
			if xe.amount < me.amount {
				continue
			}
			if best == -1 || xe.amount < (*remMax)[best].amount {
				best = j
			}
		}
		if best == -1 {
			continue
		}
		xe := (*remMax)[best]
		pairs = append(pairs, makePair(me.id, xe.id, me.amount, minIsA))
		usedMin[i] = true
		(*remMax)[best].amount -= me.amount
		c.log.Info("completed min player in one pair",
			"min_player", me.id, "max_player", xe.id, "amount", me.amount)
	}
	*remMin = dropUsed(*remMin, usedMin)
	*remMax = compactEntries(*remMax)
	return pairs
}

// matchGreedy splits what is left across partners, always taking the
// max-team player with the largest remaining allocation. Candidate
// amounts below the multiple are not worth a transaction and end the
// player's run; the forced pass picks up whatever survives.
func (c *Calculator) matchGreedy(remMin, remMax *[]entry, pairs []StakePair, minIsA bool, cfg Config) []StakePair {
	sortEntries(*remMin)
	for i := range *remMin {
		for (*remMin)[i].amount >= cfg.Multiple {
			sortEntries(*remMax)
			if len(*remMax) == 0 {
				break
			}
			xe := &(*remMax)[0]
			amt := (*remMin)[i].amount
			if xe.amount < amt {
				amt = xe.amount
			}
			if amt < cfg.Multiple {
				break
			}
			pairs = append(pairs, makePair((*remMin)[i].id, xe.id, amt, minIsA))
			(*remMin)[i].amount -= amt
			xe.amount -= amt
			c.log.Info("greedy match",
				"min_player", (*remMin)[i].id, "max_player", xe.id, "amount", amt)
			*remMax = compactEntries(*remMax)
		}
	}
	*remMin = compactEntries(*remMin)
	return pairs
}

// forceRemainder clears any min-team amount still unpaired, even below
// the minimum stake. The min team must reach 100% of its declared
// total; a sub-minimum pair is the documented exception that keeps
// that guarantee when no better option exists. Consolidation usually
// folds these into an existing pair between the same two players.
func (c *Calculator) forceRemainder(remMin, remMax *[]entry, pairs []StakePair, minIsA bool) []StakePair {
	for i := range *remMin {
		for (*remMin)[i].amount > 0 {
			sortEntries(*remMax)
			if len(*remMax) == 0 || (*remMax)[0].amount <= 0 {
				break
			}
			xe := &(*remMax)[0]
			amt := (*remMin)[i].amount
			if xe.amount < amt {
				amt = xe.amount
			}
			pairs = append(pairs, makePair((*remMin)[i].id, xe.id, amt, minIsA))
			(*remMin)[i].amount -= amt
			xe.amount -= amt
			c.log.Info("forced allocation",
				"min_player", (*remMin)[i].id, "max_player", xe.id, "amount", amt)
			*remMax = compactEntries(*remMax)
		}
	}
	*remMin = compactEntries(*remMin)
	return pairs
}

func compactEntries(es []entry) []entry {
	out := es[:0]
	for _, e := range es {
		if e.amount > 0 {
			out = append(out, e)
		}
	}
	return out
}

// reconcileShortfalls recomputes per-player sums from the produced
// pairs and repairs any max-team player left under target by moving
// amount out of pairs held by over-target players. Excess min-team
// holders are drained first, then excess max-team holders; totals are
// never inflated.
func (c *Calculator) reconcileShortfalls(tm teams, targets map[string]int, pairs []StakePair) []StakePair {
	allocated := make(map[string]int, len(targets))
	for _, p := range pairs {
		allocated[p.PlayerAID] += p.Amount
		allocated[p.PlayerBID] += p.Amount
	}

	for _, maxPlayer := range tm.max {
		short := targets[maxPlayer.id] - allocated[maxPlayer.id]
		if short <= 0 {
			continue
		}
		c.log.Info("max player under target",
			"player", maxPlayer.id, "short", short, "target", targets[maxPlayer.id])

		short = c.drainMinExcess(tm, targets, allocated, maxPlayer.id, short, &pairs)
		if short > 0 {
			short = c.drainMaxExcess(tm, targets, allocated, maxPlayer.id, short, &pairs)
		}
		if short > 0 {
			c.log.Warn("shortfall not fully reconciled", "player", maxPlayer.id, "left", short)
		}
	}
	return pairs
}

// drainMinExcess moves amount toward maxID out of pairs between an
// over-target min player and some other max player.
func (c *Calculator) drainMinExcess(tm teams, targets, allocated map[string]int, maxID string, short int, pairs *[]StakePair) int {
	for _, minPlayer := range tm.min {
		if short <= 0 {
			break
		}
		excess := allocated[minPlayer.id] - targets[minPlayer.id]
		if excess <= 0 {
			continue
		}
		for i := range *pairs {
			if short <= 0 || excess <= 0 {
				break
			}
			p := &(*pairs)[i]
			minIn, maxIn := splitPair(*p, tm.minIsA)
			if minIn != minPlayer.id || maxIn == maxID || p.Amount <= 0 {
				continue
			}
			take := minInt(p.Amount, minInt(excess, short))
			p.Amount -= take
			*pairs = append(*pairs, makePair(minPlayer.id, maxID, take, tm.minIsA))
			allocated[maxIn] -= take
			allocated[maxID] += take
			short -= take
			excess -= take
			c.log.Info("moved stake to under-target player",
				"from_pair", maxIn, "via_min", minPlayer.id, "to", maxID, "amount", take)
		}
	}
	return short
}

// drainMaxExcess moves amount toward maxID out of pairs held by
// over-target max players, rerouting through the min player on the
// reduced pair.
func (c *Calculator) drainMaxExcess(tm teams, targets, allocated map[string]int, maxID string, short int, pairs *[]StakePair) int {
	for _, other := range tm.max {
		if short <= 0 {
			break
		}
		if other.id == maxID {
			continue
		}
		excess := allocated[other.id] - targets[other.id]
		if excess <= 0 {
			continue
		}
		for i := range *pairs {
			if short <= 0 || excess <= 0 {
				break
			}
			p := &(*pairs)[i]
			minIn, maxIn := splitPair(*p, tm.minIsA)
			if maxIn != other.id || p.Amount <= 0 {
				continue
			}
			take := minInt(p.Amount, minInt(excess, short))
			p.Amount -= take
			*pairs = append(*pairs, makePair(minIn, maxID, take, tm.minIsA))
			allocated[other.id] -= take
			allocated[maxID] += take
			short -= take
			excess -= take
			c.log.Info("moved stake from over-target player",
				"from", other.id, "via_min", minIn, "to", maxID, "amount", take)
		}
	}
	return short
}

// splitPair returns the min-team and max-team member of a pair.
func splitPair(p StakePair, minIsA bool) (minID, maxID string) {
	if minIsA {
		return p.PlayerAID, p.PlayerBID
	}
	return p.PlayerBID, p.PlayerAID
}

// consolidate merges all pairs sharing the same ordered player key into
// one and drops anything that reconciliation emptied out. Output order
// is deterministic.
func consolidate(pairs []StakePair) []StakePair {
	amounts := make(map[[2]string]int, len(pairs))
	for _, p := range pairs {
		amounts[[2]string{p.PlayerAID, p.PlayerBID}] += p.Amount
	}
	out := make([]StakePair, 0, len(amounts))
	for key, amount := range amounts {
		if amount <= 0 {
			continue
		}
		out = append(out, StakePair{PlayerAID: key[0], PlayerBID: key[1], Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerAID != out[j].PlayerAID {
			return out[i].PlayerAID < out[j].PlayerAID
		}
		return out[i].PlayerBID < out[j].PlayerBID
	})
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
