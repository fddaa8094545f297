package stakes

// fallbackPairs is the simple two-pass greedy matcher used when the
// tiered algorithm's preconditions do not hold or it errors out. Both
// teams are sorted by stake descending and paired by position; a
// second pass matches the leftover amounts largest-first, discarding
// anything below the minimum stake.
func (c *Calculator) fallbackPairs(teamA, teamB []string, stakes map[string]int, cfg Config) []StakePair {
	a := teamEntries(teamA, stakes)
	b := teamEntries(teamB, stakes)

	var pairs []StakePair
	var remA, remB []entry

	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		bet := minInt(a[i].amount, b[i].amount)
		if bet > 0 {
			pairs = append(pairs, StakePair{PlayerAID: a[i].id, PlayerBID: b[i].id, Amount: bet})
			c.log.Info("fallback match", "player_a", a[i].id, "player_b", b[i].id, "amount", bet)
		}
		if left := a[i].amount - bet; left > 0 {
			remA = append(remA, entry{id: a[i].id, amount: left})
		}
		if left := b[i].amount - bet; left > 0 {
			remB = append(remB, entry{id: b[i].id, amount: left})
		}
	}
	// Players beyond the shorter team carry their whole stake into the
	// second pass.
	for i := n; i < len(a); i++ {
		remA = append(remA, a[i])
	}
	for i := n; i < len(b); i++ {
		remB = append(remB, b[i])
	}

	for len(remA) > 0 && len(remB) > 0 {
		sortEntries(remA)
		sortEntries(remB)
		bet := minInt(remA[0].amount, remB[0].amount)
		if bet < cfg.MinStake {
			// The largest remainders cannot clear the minimum; nothing
			// smaller will either.
			c.log.Info("fallback leftover below minimum, stopping",
				"amount", bet, "min_stake", cfg.MinStake)
			break
		}
		pairs = append(pairs, StakePair{PlayerAID: remA[0].id, PlayerBID: remB[0].id, Amount: bet})
		c.log.Info("fallback secondary match",
			"player_a", remA[0].id, "player_b", remB[0].id, "amount", bet)
		remA[0].amount -= bet
		remB[0].amount -= bet
		remA = compactEntries(remA)
		remB = compactEntries(remB)
	}

	return consolidate(pairs)
}
