package stakes

import (
	"fmt"
	"sort"
)

// teams carries the min/max role assignment for one tiered run.
type teams struct {
	min      []entry
	max      []entry
	minTotal int
	maxTotal int
	minIsA   bool
}

func assignRoles(teamA, teamB []string, stakes map[string]int) teams {
	a := teamEntries(teamA, stakes)
	b := teamEntries(teamB, stakes)
	aTotal := sumEntries(a)
	bTotal := sumEntries(b)
	if aTotal <= bTotal {
		return teams{min: a, max: b, minTotal: aTotal, maxTotal: bTotal, minIsA: true}
	}
	return teams{min: b, max: a, minTotal: bTotal, maxTotal: aTotal, minIsA: false}
}

// runTiered executes the full tiered pipeline. Any returned error
// makes the caller fall back to the simple matcher.
func (c *Calculator) runTiered(teamA, teamB []string, stakes map[string]int, cfg Config) ([]StakePair, error) {
	original := copyStakes(stakes)

	a := teamEntries(teamA, stakes)
	b := teamEntries(teamB, stakes)
	if sumEntries(a) < minRequired(b) || sumEntries(b) < minRequired(a) {
		return nil, fmt.Errorf("%w: totals %d/%d, minimum commitments %d/%d",
			errInfeasible, sumEntries(a), sumEntries(b), minRequired(a), minRequired(b))
	}

	tm := assignRoles(teamA, teamB, stakes)

	// MTMB capping can shrink the max team enough to flip the roles,
	// so reassign after any cap applied.
	if c.applyMTMB(tm, stakes) {
		tm = assignRoles(teamA, teamB, stakes)
		c.log.Info("roles after MTMB capping",
			"min_total", tm.minTotal, "max_total", tm.maxTotal)
	}

	targets, err := c.allocateTargets(tm, original, cfg)
	if err != nil {
		return nil, err
	}

	pairs, err := c.buildPairs(tm, targets, cfg)
	if err != nil {
		return nil, err
	}
	pairs = c.reconcileShortfalls(tm, targets, pairs)
	return consolidate(pairs), nil
}

// computeMTMB derives the ceiling a single high bettor on the max team
// may be allocated. Everyone else's claim on the min team's capacity
// is reserved first: low-tier bets in full, other high-tier bets at
// the tier ceiling.
func computeMTMB(maxTeam []entry, minTotal int) int {
	reserved := 0
	high := 0
	for _, e := range maxTeam {
		if e.amount <= tierCeiling {
			reserved += e.amount
		} else {
			high++
		}
	}
	if high > 1 {
		reserved += (high - 1) * tierCeiling
	}
	mtmb := minTotal - reserved
	if mtmb < tierCeiling {
		mtmb = tierCeiling
	}
	return mtmb
}

// applyMTMB caps any max-team working stake above the MTMB ceiling.
// Reports whether a cap was applied.
func (c *Calculator) applyMTMB(tm teams, stakes map[string]int) bool {
	mtmb := computeMTMB(tm.max, tm.minTotal)
	applied := false
	for _, e := range tm.max {
		if e.amount > mtmb {
			c.log.Info("capped by MTMB", "player", e.id, "from", e.amount, "to", mtmb)
			stakes[e.id] = mtmb
			applied = true
		}
	}
	return applied
}

// highBettor tracks one max-team high-tier player through the
// proportional allocation: the MTMB-adjusted working stake (the
// ceiling for any target), the declared stake before adjustments, and
// the current target.
type highBettor struct {
	id       string
	adjusted int
	declared int
	target   int
}

func (h highBettor) room() int { return h.adjusted - h.target }

// allocateTargets converts per-player maxima into target allocations
// that balance the two teams. The min team is satisfied in full;
// max-team low-tier bets are honored in full; high-tier bets share the
// remaining min-team capacity proportionally.
func (c *Calculator) allocateTargets(tm teams, original map[string]int, cfg Config) (map[string]int, error) {
	targets := make(map[string]int, len(tm.min)+len(tm.max))

	for _, e := range tm.min {
		targets[e.id] = e.amount
	}

	var lowTotal, highTotal int
	var high []highBettor
	for _, e := range tm.max {
		if e.amount <= tierCeiling {
			targets[e.id] = e.amount
			lowTotal += e.amount
		} else {
			high = append(high, highBettor{id: e.id, adjusted: e.amount, declared: original[e.id]})
			highTotal += e.amount
		}
	}

	pool := tm.minTotal - lowTotal
	c.log.Info("allocation pool", "pool", pool, "high_tier_total", highTotal)

	if len(high) > 0 && highTotal > 0 {
		if pool < 0 {
			return nil, fmt.Errorf("low-tier bets exceed min team capacity by %d", -pool)
		}
		pct := float64(pool) / float64(highTotal)
		if pct > 1 {
			pct = 1
		}
		allocated := 0
		for i := range high {
			alloc := floorToMultiple(int(float64(high[i].adjusted)*pct), cfg.Multiple)
			if alloc < cfg.Multiple {
				alloc = cfg.Multiple
			}
			if alloc > high[i].adjusted {
				alloc = high[i].adjusted
			}
			high[i].target = alloc
			allocated += alloc
			c.log.Info("high tier allocation", "player", high[i].id,
				"target", alloc, "declared", high[i].declared)
		}
		c.distributeRemainder(high, pool-allocated, cfg)
		for _, h := range high {
			targets[h.id] = h.target
		}
	}

	c.balanceTargets(tm, targets)

	for id, t := range targets {
		if t < 0 {
			return nil, fmt.Errorf("negative target allocation %d for %s", t, id)
		}
	}
	return targets, nil
}

// distributeRemainder corrects rounding drift between the pool and the
// rounded high-tier targets, one multiple at a time. Additions go to
// the bettors with the highest declared stake first; removals come
// from the lowest first. The loop re-scans until the drift is below
// one multiple or nobody can move.
func (c *Calculator) distributeRemainder(high []highBettor, diff int, cfg Config) {
	if diff >= cfg.Multiple {
		sortHighByDeclared(high, true)
		for diff >= cfg.Multiple {
			moved := false
			for i := range high {
				if high[i].room() < cfg.Multiple {
					continue
				}
				high[i].target += cfg.Multiple
				diff -= cfg.Multiple
				moved = true
				c.log.Info("topped up high bettor", "player", high[i].id, "target", high[i].target)
				if diff < cfg.Multiple {
					break
				}
			}
			if !moved {
				c.log.Warn("could not place remainder", "left", diff)
				break
			}
		}
		return
	}
	if diff <= -cfg.Multiple {
		sortHighByDeclared(high, false)
		for diff <= -cfg.Multiple {
			moved := false
			for i := range high {
				if high[i].target-cfg.Multiple < cfg.Multiple {
					continue
				}
				high[i].target -= cfg.Multiple
				diff += cfg.Multiple
				moved = true
				c.log.Info("trimmed high bettor", "player", high[i].id, "target", high[i].target)
				if diff > -cfg.Multiple {
					break
				}
			}
			if !moved {
				c.log.Warn("could not absorb overshoot", "left", diff)
				break
			}
		}
	}
}

func sortHighByDeclared(high []highBettor, desc bool) {
	sort.Slice(high, func(i, j int) bool {
		if high[i].declared != high[j].declared {
			if desc {
				return high[i].declared > high[j].declared
			}
			return high[i].declared < high[j].declared
		}
		return high[i].id < high[j].id
	})
}

// balanceTargets fixes any residual mismatch between the team totals by
// nudging the player with the largest allocation on the over-allocated
// side. After rounding correction the residual is at most one multiple.
func (c *Calculator) balanceTargets(tm teams, targets map[string]int) {
	minSum := 0
	for _, e := range tm.min {
		minSum += targets[e.id]
	}
	maxSum := 0
	for _, e := range tm.max {
		maxSum += targets[e.id]
	}
	if minSum == maxSum {
		return
	}
	c.log.Warn("allocation mismatch", "min_total", minSum, "max_total", maxSum)
	if minSum > maxSum {
		id := largestTarget(tm.min, targets)
		targets[id] -= minSum - maxSum
		c.log.Info("nudged min team player to balance", "player", id, "by", maxSum-minSum)
	} else {
		id := largestTarget(tm.max, targets)
		targets[id] -= maxSum - minSum
		c.log.Info("nudged max team player to balance", "player", id, "by", minSum-maxSum)
	}
}

func largestTarget(team []entry, targets map[string]int) string {
	best := team[0].id
	for _, e := range team[1:] {
		if targets[e.id] > targets[best] || (targets[e.id] == targets[best] && e.id < best) {
			best = e.id
		}
	}
	return best
}
