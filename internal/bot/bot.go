package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/cubedraft/stakebot/internal/db"
	"github.com/cubedraft/stakebot/internal/debt"
	"github.com/cubedraft/stakebot/internal/draft"
)

type Bot struct {
	session  *discordgo.Session
	db       *db.DB
	drafts   *draft.Service
	debts    *debt.Service
	reminder *reminderWorker
}

func New(token string, database *db.DB, drafts *draft.Service, debts *debt.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		db:      database,
		drafts:  drafts,
		debts:   debts,
	}
	bot.reminder = newReminderWorker(session, database)

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.reminder.start()
	log.Println("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.reminder.stop()
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("%s is connected!", event.User.Username)

	// Register commands for all guilds
	for _, guild := range event.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			log.Printf("Failed to register commands for guild %s: %v", guild.ID, err)
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	log.Printf("Guild available/joined: %s (id=%s), ensuring commands", event.Name, event.ID)
	if err := b.registerGuildCommands(event.ID); err != nil {
		log.Printf("Failed to register commands for guild %s: %v", event.ID, err)
	}
}

func (b *Bot) registerGuildCommands(guildID string) error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:         "draft",
			Description:  "Manage the channel's draft bet",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "Start a draft in this channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Cancel the channel's draft",
				},
			},
		},
		{
			Name:         "stake",
			Description:  "Declare your maximum stake for the draft",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Maximum amount you are willing to bet",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "capped",
					Description: "Cap your stake at the opposing team's highest",
				},
			},
		},
		{
			Name:         "teams",
			Description:  "Record the drafted teams",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "side_a",
					Description: "Mentions of team A players",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "side_b",
					Description: "Mentions of team B players",
					Required:    true,
				},
			},
		},
		{
			Name:         "pairings",
			Description:  "Compute stake pairings for the draft",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "min_stake",
					Description: "Minimum pairing amount (default 10)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "multiple",
					Description: "Rounding multiple (default 10)",
				},
			},
		},
		{
			Name:         "winner",
			Description:  "Record the draft outcome and create debts",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "side",
					Description: "Winning side",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Team A", Value: "a"},
						{Name: "Team B", Value: "b"},
					},
				},
			},
		},
		{
			Name:         "balance",
			Description:  "Show your ledger balances",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Only the balance against this user",
				},
			},
		},
		{
			Name:         "remind",
			Description:  "Configure open-debt reminders for this server",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "on",
					Description: "Post reminders in this channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "interval_minutes",
							Description: "How often to remind (default 1440)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "off",
					Description: "Stop posting reminders",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show the current reminder settings",
				},
			},
		},
		{
			Name:         "settle",
			Description:  "Record a payment you made to another player",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Who you paid",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Amount paid",
					Required:    true,
				},
			},
		},
	}

	// Delete existing commands and register new ones
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, commands)
	if err != nil {
		return err
	}

	log.Printf("Registered application commands for guild %s", guildID)
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	switch data.Name {
	case "draft":
		b.handleDraft(s, i, data)
	case "stake":
		b.handleStake(s, i, data)
	case "teams":
		b.handleTeams(s, i, data)
	case "pairings":
		b.handlePairings(s, i, data)
	case "winner":
		b.handleWinner(s, i, data)
	case "balance":
		b.handleBalance(s, i, data)
	case "settle":
		b.handleSettle(s, i, data)
	case "remind":
		b.handleRemind(s, i, data)
	}
}

func parseGuildID(guildID string) int64 {
	var id int64
	fmt.Sscanf(guildID, "%d", &id)
	return id
}

func boolPtr(b bool) *bool {
	return &b
}
