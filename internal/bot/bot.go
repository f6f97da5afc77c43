package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"gooutside/internal/config"
	"gooutside/internal/leveling"
)

type Bot struct {
	token     string
	store     *leveling.Store
	buffer    *leveling.Buffer
	processor *leveling.Processor
	guilds    *guildConfigs

	backgroundFlush bool
	flushInterval   time.Duration
	flushTimeout    time.Duration
}

// New wires the leveling core on top of an already migrated database.
func New(cfg config.Config, db *gorm.DB) (*Bot, error) {

	var bot Bot
	bot.token = cfg.Token
	bot.buffer = leveling.NewBuffer(db, cfg.FlushInterval, cfg.FlushTimeout)
	bot.store = leveling.NewStore(db, bot.buffer)
	bot.processor = leveling.NewProcessor(bot.store, bot.buffer, cfg.PointsScale)
	bot.guilds = newGuildConfigs(db, cfg.Prefix)
	bot.backgroundFlush = cfg.BackgroundFlush
	bot.flushInterval = cfg.FlushInterval
	bot.flushTimeout = cfg.FlushTimeout
	return &bot, nil
}

func (bot *Bot) Run() error {
	// Create session
	discord, err := discordgo.New("Bot " + bot.token)
	if err != nil {
		return fmt.Errorf("could not create discord session: %w", err)
	}
	discord.Identify.Intents = discordgo.IntentsAll

	// Event handlers, one per tracked action plus ready
	discord.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Str("user", r.User.Username).Msg("Logged in")
	})
	discord.AddHandler(bot.onMessageCreate)
	discord.AddHandler(bot.onMessageUpdate)
	discord.AddHandler(bot.onReactionAdd)
	discord.AddHandler(bot.onReactionRemove)
	discord.AddHandler(bot.onTypingStart)
	discord.AddHandler(bot.onVoiceStateUpdate)
	discord.AddHandler(bot.onPresenceUpdate)

	// Open session
	if err := discord.Open(); err != nil {
		return fmt.Errorf("could not open discord session: %w", err)
	}
	defer discord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if bot.backgroundFlush {
		go bot.flushLoop(ctx)
	}

	// Keep the bot running until there is an os interruption (ctrl + C)
	log.Info().Msg("Bot is running, press ctrl+C to exit")
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	// Persist whatever is still dirty before going down
	log.Info().Msg("Shutting down, flushing pending updates")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), bot.flushTimeout)
	defer shutdownCancel()
	if err := bot.buffer.Flush(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Could not flush pending updates on shutdown")
	}
	return nil
}

// flushLoop periodically offers the buffer a chance to flush, so dirty
// records do not sit forever in a quiet server.
func (bot *Bot) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(bot.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bot.buffer.MaybeFlush(ctx)
		}
	}
}

// track forwards one observed action to the points processor.
func (bot *Bot) track(userID string, isBot bool, action leveling.Action, timestamp int64) {
	if userID == "" {
		return
	}
	if err := bot.processor.ProcessAction(context.Background(), userID, isBot, action, timestamp); err != nil {
		log.Error().Err(err).Str("user", userID).Str("action", string(action)).Msg("Could not process action")
	}
}

// isSelf rejects events generated by the bot's own account
func isSelf(discord *discordgo.Session, userID string) bool {
	return discord.State.User != nil && discord.State.User.ID == userID
}

func (bot *Bot) onMessageCreate(discord *discordgo.Session, message *discordgo.MessageCreate) {

	if message.Author == nil || isSelf(discord, message.Author.ID) {
		return
	}
	bot.track(message.Author.ID, message.Author.Bot, leveling.ActionMessageCreate, message.Timestamp.Unix())

	if message.Author.Bot {
		return
	}

	// Ignore commands from private channels
	if message.GuildID == "" {
		if Parse(message.Content, bot.guilds.defaultPrefix).parseid != PARSEID_NO_BOT_PREFIX {
			bot.sendResponses(discord, message.ChannelID, PrivateMessagesNotSupported())
		}
		return
	}

	bot.handleCommand(discord, message)
}

func (bot *Bot) onMessageUpdate(discord *discordgo.Session, message *discordgo.MessageUpdate) {

	// Embed and system updates carry no author
	if message.Author == nil || isSelf(discord, message.Author.ID) {
		return
	}
	timestamp := time.Now().Unix()
	if message.EditedTimestamp != nil {
		timestamp = message.EditedTimestamp.Unix()
	}
	bot.track(message.Author.ID, message.Author.Bot, leveling.ActionMessageEdit, timestamp)
}

func (bot *Bot) onReactionAdd(discord *discordgo.Session, reaction *discordgo.MessageReactionAdd) {

	if isSelf(discord, reaction.UserID) {
		return
	}
	isBot := reaction.Member != nil && reaction.Member.User != nil && reaction.Member.User.Bot
	bot.track(reaction.UserID, isBot, leveling.ActionReactionAdd, time.Now().Unix())
}

func (bot *Bot) onReactionRemove(discord *discordgo.Session, reaction *discordgo.MessageReactionRemove) {

	if isSelf(discord, reaction.UserID) {
		return
	}
	bot.track(reaction.UserID, false, leveling.ActionReactionRemove, time.Now().Unix())
}

func (bot *Bot) onTypingStart(discord *discordgo.Session, typing *discordgo.TypingStart) {

	if isSelf(discord, typing.UserID) {
		return
	}
	bot.track(typing.UserID, false, leveling.ActionTyping, int64(typing.Timestamp))
}

func (bot *Bot) onVoiceStateUpdate(discord *discordgo.Session, voice *discordgo.VoiceStateUpdate) {

	if isSelf(discord, voice.UserID) {
		return
	}
	isBot := voice.Member != nil && voice.Member.User != nil && voice.Member.User.Bot
	bot.track(voice.UserID, isBot, leveling.ActionVoiceStateUpdate, time.Now().Unix())
}

func (bot *Bot) onPresenceUpdate(discord *discordgo.Session, presence *discordgo.PresenceUpdate) {

	if presence.User == nil || isSelf(discord, presence.User.ID) {
		return
	}
	bot.track(presence.User.ID, presence.User.Bot, leveling.ActionPresenceUpdate, time.Now().Unix())
}

// handleCommand parses the message with the guild's prefix and dispatches
func (bot *Bot) handleCommand(discord *discordgo.Session, message *discordgo.MessageCreate) {

	ctx := context.Background()
	prefix := bot.guilds.prefix(ctx, message.GuildID)
	parseResult := Parse(message.Content, prefix)
	switch parseResult.parseid {
	case PARSEID_NO_BOT_PREFIX:
		return
	case PARSEID_OK:
		log.Debug().Str("content", message.Content).Str("guild", message.GuildID).Msg("Command understood")
		var responses []Response
		switch parseResult.command {
		case COMMAND_REGISTER:
			responses = bot.register(ctx, message.Author.ID)
		case COMMAND_UNREGISTER:
			responses = bot.unregister(ctx, message.Author.ID)
		case COMMAND_RANK:
			target := message.Author.ID
			if id, ok := parseResult.arguments.(string); ok {
				target = id
			}
			responses = bot.rank(ctx, target)
		case COMMAND_TOP:
			responses = bot.top(ctx)
		case COMMAND_PREFIX:
			switch newPrefix := parseResult.arguments.(type) {
			default:
				panic(fmt.Sprintf("unexpected type of prefix %T", newPrefix))
			case string:
				responses = bot.setPrefix(ctx, message.GuildID, newPrefix)
			}
		case COMMAND_ABOUT:
			responses = AboutMessage()
		case COMMAND_HELP:
			responses = HelpMessage(prefix)
		default:
			panic(fmt.Sprintf("Command %d is not one of the possible ones", parseResult.command))
		}
		bot.sendResponses(discord, message.ChannelID, responses)
	default:

		// The command is invalid input, so it contains an error message
		log.Debug().Str("content", message.Content).Str("reason", parseResult.errorMessage).Msg("Wrong input")
		bot.sendResponses(discord, message.ChannelID, InputNotValid(parseResult.errorMessage))
	}
}

func (bot *Bot) sendResponses(discord *discordgo.Session, channelId string, responses []Response) {
	for _, response := range responses {
		response.Send(channelId, discord)
	}
}

func (bot *Bot) register(ctx context.Context, userID string) []Response {

	_, err := bot.store.Create(ctx, userID)
	switch {
	case errors.Is(err, leveling.ErrAlreadyRegistered):
		log.Debug().Str("user", userID).Msg("User is already registered")
		return UserAlreadyRegistered(userID)
	case err != nil:
		log.Error().Err(err).Str("user", userID).Msg("Could not register user")
		return DatabaseUnavailable()
	}
	log.Info().Str("user", userID).Msg("User registered")
	return UserRegistered(userID)
}

func (bot *Bot) unregister(ctx context.Context, userID string) []Response {

	err := bot.store.Delete(ctx, userID)
	switch {
	case errors.Is(err, leveling.ErrNotRegistered):
		log.Debug().Str("user", userID).Msg("User was not registered")
		return UserNotRegistered(userID)
	case err != nil:
		log.Error().Err(err).Str("user", userID).Msg("Could not unregister user")
		return DatabaseUnavailable()
	}
	log.Info().Str("user", userID).Msg("User unregistered")
	return UserUnregistered(userID)
}

func (bot *Bot) rank(ctx context.Context, userID string) []Response {

	user, err := bot.store.Lookup(ctx, userID)
	switch {
	case errors.Is(err, leveling.ErrNotRegistered):
		return UserNotRegistered(userID)
	case err != nil:
		log.Error().Err(err).Str("user", userID).Msg("Could not look up user")
		return DatabaseUnavailable()
	}
	now := time.Now().Unix()
	projected := bot.processor.Projected(user, now)
	sinceLast := time.Duration(now-user.LastActionTimestamp) * time.Second
	return RankMessage(userID, user, projected, sinceLast)
}

func (bot *Bot) top(ctx context.Context) []Response {

	// Flush first so the ranking includes points that are still dirty
	if err := bot.buffer.Flush(ctx); err != nil {
		log.Error().Err(err).Msg("Could not flush before listing top users")
	}
	users, err := bot.store.Top(ctx, 10)
	if err != nil {
		log.Error().Err(err).Msg("Could not list top users")
		return DatabaseUnavailable()
	}
	return TopMessage(users)
}

func (bot *Bot) setPrefix(ctx context.Context, guildID string, prefix string) []Response {

	if err := bot.guilds.setPrefix(ctx, guildID, prefix); err != nil {
		log.Error().Err(err).Str("guild", guildID).Msg("Could not change prefix")
		return DatabaseUnavailable()
	}
	log.Info().Str("guild", guildID).Str("prefix", prefix).Msg("Prefix changed")
	return PrefixChanged(prefix)
}
