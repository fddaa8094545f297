// Package debt turns completed draft pairings into ledger obligations
// and records them double-entry: every obligation writes a positive row
// for the winner and a mirrored negative row for the loser.
package debt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cubedraft/stakebot/internal/db"
	"github.com/cubedraft/stakebot/internal/stakes"
)

var (
	ErrAlreadyRecorded = errors.New("debts already recorded for this session")
	ErrInvalidAmount   = errors.New("settlement amount must be positive")
)

// Obligation is a single loser-to-winner payment owed after a draft.
type Obligation struct {
	DebtorID   string
	CreditorID string
	Amount     int
}

// Obligations derives payments from pairings and the winning side. A
// pair produces an obligation only when its players ended on opposite
// outcomes; pairs where both won or both lost carry nothing.
func Obligations(pairs []stakes.StakePair, winners map[string]bool) []Obligation {
	var out []Obligation
	for _, p := range pairs {
		aWon := winners[p.PlayerAID]
		bWon := winners[p.PlayerBID]
		switch {
		case aWon == bWon:
			continue
		case aWon:
			out = append(out, Obligation{DebtorID: p.PlayerBID, CreditorID: p.PlayerAID, Amount: p.Amount})
		default:
			out = append(out, Obligation{DebtorID: p.PlayerAID, CreditorID: p.PlayerBID, Amount: p.Amount})
		}
	}
	return out
}

type ledgerStore interface {
	HasLedgerSource(ctx context.Context, sourceType, sourceID string) (bool, error)
	InsertLedgerEntries(ctx context.Context, entries []db.LedgerEntry, createdBy string) error
	BalanceBetween(ctx context.Context, guildID int64, playerID, counterpartyID string) (int, error)
}

// Service records obligations in the ledger.
type Service struct {
	store ledgerStore
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store ledgerStore, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, log: log, now: time.Now}
}

// RecordDraftDebts writes the ledger rows for a completed draft. It is
// idempotent per session: a second call for the same session returns
// ErrAlreadyRecorded and writes nothing.
func (s *Service) RecordDraftDebts(ctx context.Context, guildID int64, sessionID string, pairs []stakes.StakePair, winners map[string]bool, recordedBy string) ([]Obligation, error) {
	exists, err := s.store.HasLedgerSource(ctx, "draft", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check ledger source: %w", err)
	}
	if exists {
		return nil, ErrAlreadyRecorded
	}

	obligations := Obligations(pairs, winners)
	if len(obligations) == 0 {
		return nil, nil
	}

	entries := make([]db.LedgerEntry, 0, 2*len(obligations))
	for _, o := range obligations {
		note := fmt.Sprintf("draft %s", sessionID)
		entries = append(entries,
			db.LedgerEntry{
				GuildID:        guildID,
				PlayerID:       o.CreditorID,
				CounterpartyID: o.DebtorID,
				Amount:         o.Amount,
				SourceType:     "draft",
				SourceID:       sessionID,
				Notes:          note,
			},
			db.LedgerEntry{
				GuildID:        guildID,
				PlayerID:       o.DebtorID,
				CounterpartyID: o.CreditorID,
				Amount:         -o.Amount,
				SourceType:     "draft",
				SourceID:       sessionID,
				Notes:          note,
			},
		)
	}
	if err := s.store.InsertLedgerEntries(ctx, entries, recordedBy); err != nil {
		return nil, fmt.Errorf("failed to record draft debts: %w", err)
	}
	s.log.Info("draft debts recorded",
		"guild_id", guildID,
		"session_id", sessionID,
		"obligations", len(obligations))
	return obligations, nil
}

// Settle records a payment from debtor to creditor as a reverse ledger
// pair. The settlement id defaults to a timestamped value; callers may
// supply their own to make retries idempotent.
func (s *Service) Settle(ctx context.Context, guildID int64, debtorID, creditorID string, amount int, settlementID, recordedBy string) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}
	if settlementID == "" {
		settlementID = fmt.Sprintf("%s-%s-%d", debtorID, creditorID, s.now().UnixNano())
	} else {
		exists, err := s.store.HasLedgerSource(ctx, "settlement", settlementID)
		if err != nil {
			return "", fmt.Errorf("failed to check ledger source: %w", err)
		}
		if exists {
			return "", ErrAlreadyRecorded
		}
	}

	note := fmt.Sprintf("settlement %s", settlementID)
	entries := []db.LedgerEntry{
		{
			GuildID:        guildID,
			PlayerID:       creditorID,
			CounterpartyID: debtorID,
			Amount:         -amount,
			SourceType:     "settlement",
			SourceID:       settlementID,
			Notes:          note,
		},
		{
			GuildID:        guildID,
			PlayerID:       debtorID,
			CounterpartyID: creditorID,
			Amount:         amount,
			SourceType:     "settlement",
			SourceID:       settlementID,
			Notes:          note,
		},
	}
	if err := s.store.InsertLedgerEntries(ctx, entries, recordedBy); err != nil {
		return "", fmt.Errorf("failed to record settlement: %w", err)
	}
	s.log.Info("settlement recorded",
		"guild_id", guildID,
		"debtor", debtorID,
		"creditor", creditorID,
		"amount", amount)
	return settlementID, nil
}

// Balance reports the net amount the counterparty owes the player.
func (s *Service) Balance(ctx context.Context, guildID int64, playerID, counterpartyID string) (int, error) {
	return s.store.BalanceBetween(ctx, guildID, playerID, counterpartyID)
}
