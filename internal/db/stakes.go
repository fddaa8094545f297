package db

import "context"

type StakeInfo struct {
	SessionID string `json:"session_id"`
	PlayerID  string `json:"player_id"`
	MaxStake  int    `json:"max_stake"`
	IsCapped  bool   `json:"is_capped"`
}

type StakePairing struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	PlayerAID string `json:"player_a_id"`
	PlayerBID string `json:"player_b_id"`
	Amount    int    `json:"amount"`
	Method    string `json:"method"`
}

// SaveStakeInfo replaces the declared stakes for a session.
func (db *DB) SaveStakeInfo(ctx context.Context, sessionID string, infos []StakeInfo) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM stake_info WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	for _, info := range infos {
		if info.PlayerID == "" || info.MaxStake <= 0 {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO stake_info (session_id, player_id, max_stake, is_capped)
	         VALUES ($1, $2, $3, $4)`,
			sessionID, info.PlayerID, info.MaxStake, info.IsCapped,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// StakeInfoBySession returns the declared stakes for a session.
func (db *DB) StakeInfoBySession(ctx context.Context, sessionID string) ([]StakeInfo, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT session_id, player_id, max_stake, is_capped
		 FROM stake_info
		 WHERE session_id = $1
		 ORDER BY player_id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StakeInfo
	for rows.Next() {
		var info StakeInfo
		if err := rows.Scan(&info.SessionID, &info.PlayerID, &info.MaxStake, &info.IsCapped); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// SavePairings replaces the pairings recorded for a session.
func (db *DB) SavePairings(ctx context.Context, sessionID, method string, pairings []StakePairing) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM stake_pairings WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	for _, p := range pairings {
		if p.Amount <= 0 || p.PlayerAID == "" || p.PlayerBID == "" {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO stake_pairings (session_id, player_a_id, player_b_id, amount, method)
	         VALUES ($1, $2, $3, $4, $5)`,
			sessionID, p.PlayerAID, p.PlayerBID, p.Amount, method,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// PairingsBySession returns the recorded pairings for a session.
func (db *DB) PairingsBySession(ctx context.Context, sessionID string) ([]StakePairing, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, session_id, player_a_id, player_b_id, amount, method
		 FROM stake_pairings
		 WHERE session_id = $1
		 ORDER BY player_a_id, player_b_id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StakePairing
	for rows.Next() {
		var p StakePairing
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PlayerAID, &p.PlayerBID, &p.Amount, &p.Method); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteSessionData removes stakes and pairings for a cancelled session.
func (db *DB) DeleteSessionData(ctx context.Context, sessionID string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM stake_pairings WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM stake_info WHERE session_id = $1`, sessionID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
