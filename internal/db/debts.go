package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type LedgerEntry struct {
	ID             int64     `json:"id"`
	GuildID        int64     `json:"guild_id"`
	PlayerID       string    `json:"player_id"`
	CounterpartyID string    `json:"counterparty_id"`
	Amount         int       `json:"amount"`
	SourceType     string    `json:"source_type"`
	SourceID       string    `json:"source_id"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}

type Balance struct {
	CounterpartyID string `json:"counterparty_id"`
	Amount         int    `json:"amount"`
}

type ReminderConfig struct {
	ChannelID       string
	Enabled         bool
	IntervalMinutes int
	NextDueAt       *time.Time
}

type ReminderDue struct {
	GuildID         int64
	ChannelID       string
	IntervalMinutes int
}

// HasLedgerSource reports whether entries were already written for a source.
// Callers use it to keep debt creation idempotent per session.
func (db *DB) HasLedgerSource(ctx context.Context, sourceType, sourceID string) (bool, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM debt_ledger WHERE source_type = $1 AND source_id = $2`,
		sourceType, sourceID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertLedgerEntries writes entries in a single transaction. Each
// obligation arrives as a mirrored pair: a positive row for the player
// owed and a negative row for the player owing.
func (db *DB) InsertLedgerEntries(ctx context.Context, entries []LedgerEntry, createdBy string) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, e := range entries {
		if e.PlayerID == "" || e.CounterpartyID == "" || e.Amount == 0 {
			return fmt.Errorf("invalid ledger entry for source %s", e.SourceID)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO debt_ledger (guild_id, player_id, counterparty_id, amount, source_type, source_id, notes, created_by)
	         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.GuildID, e.PlayerID, e.CounterpartyID, e.Amount, e.SourceType, e.SourceID, e.Notes, createdBy,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// BalanceBetween returns the net amount owed to playerID by counterpartyID.
// Positive means the counterparty owes the player.
func (db *DB) BalanceBetween(ctx context.Context, guildID int64, playerID, counterpartyID string) (int, error) {
	var total int
	err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM debt_ledger
		 WHERE guild_id = $1 AND player_id = $2 AND counterparty_id = $3`,
		guildID, playerID, counterpartyID,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// BalancesForPlayer returns the player's nonzero net balances per counterparty.
func (db *DB) BalancesForPlayer(ctx context.Context, guildID int64, playerID string) ([]Balance, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT counterparty_id, COALESCE(SUM(amount), 0) AS total
		 FROM debt_ledger
		 WHERE guild_id = $1 AND player_id = $2
		 GROUP BY counterparty_id
		 HAVING COALESCE(SUM(amount), 0) <> 0
		 ORDER BY counterparty_id`,
		guildID, playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.CounterpartyID, &b.Amount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertReminder configures debt reminders for a guild and optionally schedules the next due time.
func (db *DB) UpsertReminder(ctx context.Context, guildID int64, channelID string, enabled bool, intervalMinutes int, nextDueAt *time.Time) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO debt_reminders (guild_id, channel_id, enabled, interval_minutes, next_due_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (guild_id) DO UPDATE
		 SET channel_id = EXCLUDED.channel_id,
			 enabled = EXCLUDED.enabled,
			 interval_minutes = EXCLUDED.interval_minutes,
			 next_due_at = COALESCE(EXCLUDED.next_due_at, debt_reminders.next_due_at)`,
		guildID, channelID, enabled, intervalMinutes, nextDueAt,
	)
	return err
}

func (db *DB) ReminderConfigByGuild(ctx context.Context, guildID int64) (*ReminderConfig, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT channel_id, enabled, interval_minutes, next_due_at
		 FROM debt_reminders
		 WHERE guild_id = $1`,
		guildID,
	)
	var cfg ReminderConfig
	var nextDueAt *time.Time
	if err := row.Scan(&cfg.ChannelID, &cfg.Enabled, &cfg.IntervalMinutes, &nextDueAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	cfg.NextDueAt = nextDueAt
	return &cfg, nil
}

// DueReminders returns reminder targets that are due and whose guild still has open debts.
func (db *DB) DueReminders(ctx context.Context, now time.Time) ([]ReminderDue, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.guild_id, r.channel_id, r.interval_minutes
		 FROM debt_reminders r
		 WHERE r.enabled = TRUE
		   AND (r.next_due_at IS NULL OR r.next_due_at <= $1)
		   AND EXISTS (
			 SELECT 1 FROM debt_ledger l
			 WHERE l.guild_id = r.guild_id
			 GROUP BY l.player_id, l.counterparty_id
			 HAVING COALESCE(SUM(l.amount), 0) <> 0
		   )`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []ReminderDue
	for rows.Next() {
		var r ReminderDue
		if err := rows.Scan(&r.GuildID, &r.ChannelID, &r.IntervalMinutes); err != nil {
			return nil, err
		}
		targets = append(targets, r)
	}
	return targets, rows.Err()
}

// MarkReminderSent updates reminder schedule timestamps.
func (db *DB) MarkReminderSent(ctx context.Context, guildID int64, sentAt time.Time, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE debt_reminders
		 SET last_sent_at = $2, next_due_at = $3
		 WHERE guild_id = $1`,
		guildID, sentAt, nextDue,
	)
	return err
}

// DelayReminder updates next_due_at without touching last_sent_at.
func (db *DB) DelayReminder(ctx context.Context, guildID int64, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE debt_reminders
		 SET next_due_at = $2
		 WHERE guild_id = $1`,
		guildID, nextDue,
	)
	return err
}

// OpenDebtsForGuild returns the outstanding debtor/creditor pair balances.
// Only positive sides are reported so each pair appears once.
func (db *DB) OpenDebtsForGuild(ctx context.Context, guildID int64) ([]LedgerEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT player_id, counterparty_id, COALESCE(SUM(amount), 0) AS total
		 FROM debt_ledger
		 WHERE guild_id = $1
		 GROUP BY player_id, counterparty_id
		 HAVING COALESCE(SUM(amount), 0) > 0
		 ORDER BY player_id, counterparty_id`,
		guildID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.PlayerID, &e.CounterpartyID, &e.Amount); err != nil {
			return nil, err
		}
		e.GuildID = guildID
		out = append(out, e)
	}
	return out, rows.Err()
}
