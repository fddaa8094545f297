package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cubedraft/stakebot/internal/db"
	"github.com/cubedraft/stakebot/internal/debt"
	"github.com/cubedraft/stakebot/internal/draft"
	"github.com/cubedraft/stakebot/internal/stakes"
)

func (b *Bot) handleDraft(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if len(data.Options) == 0 {
		return
	}
	switch data.Options[0].Name {
	case "start":
		sess, err := b.drafts.StartDraft(i.ChannelID, i.GuildID, callerID(i))
		if err != nil {
			respond(s, i, err.Error())
			return
		}
		respond(s, i, fmt.Sprintf("Draft started. Declare stakes with /stake. (session %s)", sess.SessionID))
	case "cancel":
		sessionID, err := b.drafts.CancelDraft(i.ChannelID)
		if err != nil {
			respond(s, i, err.Error())
			return
		}
		if err := b.db.DeleteSessionData(context.Background(), sessionID); err != nil {
			log.Printf("Failed to delete session data for %s: %v", sessionID, err)
		}
		respond(s, i, "Draft cancelled.")
	}
}

func (b *Bot) handleStake(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	amount := int(optInt(data.Options, "amount"))
	capped := optBool(data.Options, "capped")

	if err := b.drafts.SetStake(i.ChannelID, callerID(i), amount, capped); err != nil {
		respond(s, i, err.Error())
		return
	}
	msg := fmt.Sprintf("<@%s> declared a max stake of %d.", callerID(i), amount)
	if capped {
		msg += " (capped at the opposing team's highest)"
	}
	respond(s, i, msg)
}

func (b *Bot) handleTeams(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	teamA := parseMentions(optString(data.Options, "side_a"))
	teamB := parseMentions(optString(data.Options, "side_b"))
	if len(teamA) == 0 || len(teamB) == 0 {
		respond(s, i, "Mention at least one player per side.")
		return
	}

	if err := b.drafts.SetTeams(i.ChannelID, teamA, teamB); err != nil {
		respond(s, i, err.Error())
		return
	}
	respond(s, i, fmt.Sprintf("Teams set: %d vs %d. Run /pairings when ready.", len(teamA), len(teamB)))
}

func (b *Bot) handlePairings(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	cfg := stakes.DefaultConfig()
	if v := optInt(data.Options, "min_stake"); v > 0 {
		cfg.MinStake = int(v)
	}
	if v := optInt(data.Options, "multiple"); v > 0 {
		cfg.Multiple = int(v)
	}

	result, err := b.drafts.Pairings(i.ChannelID, cfg)
	if err != nil {
		respond(s, i, err.Error())
		return
	}
	sess := b.drafts.Session(i.ChannelID)
	if sess == nil {
		respond(s, i, "The draft is no longer active.")
		return
	}

	if err := b.persistSession(context.Background(), sess, result); err != nil {
		log.Printf("Failed to persist session %s: %v", sess.SessionID, err)
	}

	respondEmbed(s, i, pairingsEmbed(result))
}

func (b *Bot) handleWinner(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	side := optString(data.Options, "side")

	snap, err := b.drafts.Complete(i.ChannelID, side)
	if err != nil {
		respond(s, i, err.Error())
		return
	}

	guildID := parseGuildID(i.GuildID)
	obligations, err := b.debts.RecordDraftDebts(context.Background(), guildID, snap.SessionID, snap.Pairs, snap.Winners, callerID(i))
	if err != nil && !errors.Is(err, debt.ErrAlreadyRecorded) {
		respond(s, i, fmt.Sprintf("Failed to record debts: %v", err))
		return
	}

	respondEmbed(s, i, obligationsEmbed(side, obligations))
}

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	guildID := parseGuildID(i.GuildID)
	caller := callerID(i)

	if other := optUserID(data.Options, "user"); other != "" {
		bal, err := b.debts.Balance(context.Background(), guildID, caller, other)
		if err != nil {
			respond(s, i, "Failed to load balance.")
			return
		}
		respond(s, i, balanceLine(caller, other, bal))
		return
	}

	balances, err := b.db.BalancesForPlayer(context.Background(), guildID, caller)
	if err != nil {
		respond(s, i, "Failed to load balances.")
		return
	}
	if len(balances) == 0 {
		respond(s, i, "You have no open balances.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Your balances:\n")
	for _, bal := range balances {
		sb.WriteString(balanceLine(caller, bal.CounterpartyID, bal.Amount))
		sb.WriteString("\n")
	}
	respond(s, i, sb.String())
}

func (b *Bot) handleSettle(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	creditor := optUserID(data.Options, "user")
	amount := int(optInt(data.Options, "amount"))
	caller := callerID(i)

	if creditor == "" || creditor == caller {
		respond(s, i, "Pick another player to settle with.")
		return
	}

	guildID := parseGuildID(i.GuildID)
	if _, err := b.debts.Settle(context.Background(), guildID, caller, creditor, amount, "", caller); err != nil {
		respond(s, i, fmt.Sprintf("Failed to record settlement: %v", err))
		return
	}

	bal, err := b.debts.Balance(context.Background(), guildID, creditor, caller)
	if err != nil {
		respond(s, i, fmt.Sprintf("Recorded %d from <@%s> to <@%s>.", amount, caller, creditor))
		return
	}
	respond(s, i, fmt.Sprintf("Recorded %d from <@%s> to <@%s>. Remaining owed: %d.", amount, caller, creditor, bal))
}

func (b *Bot) handleRemind(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if len(data.Options) == 0 {
		return
	}
	guildID := parseGuildID(i.GuildID)
	sub := data.Options[0]

	switch sub.Name {
	case "on":
		interval := 1440
		if v := optInt(sub.Options, "interval_minutes"); v > 0 {
			interval = int(v)
		}
		next := time.Now().Add(time.Duration(interval) * time.Minute)
		if err := b.db.UpsertReminder(context.Background(), guildID, i.ChannelID, true, interval, &next); err != nil {
			respond(s, i, "Failed to save reminder settings.")
			return
		}
		respond(s, i, fmt.Sprintf("Open-debt reminders enabled in this channel every %d minutes.", interval))
	case "off":
		if err := b.db.UpsertReminder(context.Background(), guildID, i.ChannelID, false, 1440, nil); err != nil {
			respond(s, i, "Failed to save reminder settings.")
			return
		}
		respond(s, i, "Open-debt reminders disabled.")
	case "status":
		cfg, err := b.db.ReminderConfigByGuild(context.Background(), guildID)
		if err != nil {
			respond(s, i, "Failed to load reminder settings.")
			return
		}
		if cfg == nil || !cfg.Enabled {
			respond(s, i, "Reminders are off.")
			return
		}
		respond(s, i, fmt.Sprintf("Reminders post in <#%s> every %d minutes.", cfg.ChannelID, cfg.IntervalMinutes))
	}
}

// persistSession stores the declared stakes and computed pairings so
// they survive a restart and are queryable over the API.
func (b *Bot) persistSession(ctx context.Context, sess *draft.Session, result *stakes.Result) error {
	infos := make([]db.StakeInfo, 0, len(sess.Players))
	for _, p := range sess.Players {
		infos = append(infos, db.StakeInfo{
			SessionID: sess.SessionID,
			PlayerID:  p.UserID,
			MaxStake:  p.MaxStake,
			IsCapped:  p.Capped,
		})
	}
	if err := b.db.SaveStakeInfo(ctx, sess.SessionID, infos); err != nil {
		return err
	}

	pairings := make([]db.StakePairing, 0, len(result.Pairs))
	for _, p := range result.Pairs {
		pairings = append(pairings, db.StakePairing{
			SessionID: sess.SessionID,
			PlayerAID: p.PlayerAID,
			PlayerBID: p.PlayerBID,
			Amount:    p.Amount,
		})
	}
	return b.db.SavePairings(ctx, sess.SessionID, string(result.Method), pairings)
}

func pairingsEmbed(result *stakes.Result) *discordgo.MessageEmbed {
	var sb strings.Builder
	for _, p := range result.Pairs {
		fmt.Fprintf(&sb, "<@%s> vs <@%s>: %d\n", p.PlayerAID, p.PlayerBID, p.Amount)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Stake pairings",
		Description: sb.String(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total per side", Value: fmt.Sprintf("%d", result.Total()), Inline: true},
		},
	}
	if result.Method == stakes.MethodFallback {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Note",
			Value: "Simple matching was used: " + result.FallbackReason,
		})
	}
	return embed
}

func obligationsEmbed(side string, obligations []debt.Obligation) *discordgo.MessageEmbed {
	title := fmt.Sprintf("Team %s wins", strings.ToUpper(side))
	if len(obligations) == 0 {
		return &discordgo.MessageEmbed{Title: title, Description: "No debts to record."}
	}
	var sb strings.Builder
	for _, o := range obligations {
		fmt.Fprintf(&sb, "<@%s> owes <@%s>: %d\n", o.DebtorID, o.CreditorID, o.Amount)
	}
	return &discordgo.MessageEmbed{Title: title, Description: sb.String()}
}

func balanceLine(playerID, otherID string, amount int) string {
	switch {
	case amount > 0:
		return fmt.Sprintf("<@%s> owes you %d", otherID, amount)
	case amount < 0:
		return fmt.Sprintf("you owe <@%s> %d", otherID, -amount)
	default:
		return fmt.Sprintf("you and <@%s> are even", otherID)
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
	if err != nil {
		log.Printf("Failed to respond to interaction: %v", err)
	}
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		log.Printf("Failed to respond to interaction: %v", err)
	}
}

func callerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func optInt(options []*discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	for _, opt := range options {
		if opt.Name == name {
			return opt.IntValue()
		}
	}
	return 0
}

func optString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func optBool(options []*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	for _, opt := range options {
		if opt.Name == name {
			return opt.BoolValue()
		}
	}
	return false
}

func optUserID(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			// UserValue(nil) resolves the ID without a session lookup.
			if u := opt.UserValue(nil); u != nil {
				return u.ID
			}
		}
	}
	return ""
}

// parseMentions extracts user IDs from a string of Discord mentions
// like "<@123> <@!456>". Bare numeric IDs are accepted too.
func parseMentions(input string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(input) {
		tok = strings.TrimPrefix(tok, "<@")
		tok = strings.TrimPrefix(tok, "!")
		tok = strings.TrimSuffix(tok, ">")
		tok = strings.Trim(tok, ",")
		if tok == "" || seen[tok] {
			continue
		}
		valid := true
		for _, r := range tok {
			if r < '0' || r > '9' {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}
		seen[tok] = true
		ids = append(ids, tok)
	}
	return ids
}
