package bot

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"gooutside/internal/common"
	"gooutside/internal/leveling"
)

// Use "teal" color for the bot
const color int = 0x008080

const description = "Inverse leveling: the longer you stay away, the more points you earn. Go outside."

func mention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func PrivateMessagesNotSupported() []Response {
	return []Response{ResponseString{"For the time being, I am ignoring private messages"}}
}

func UserRegistered(userID string) []Response {
	return []Response{ResponseString{fmt.Sprintf("%s, you are in. Now go outside", mention(userID))}}
}

func UserAlreadyRegistered(userID string) []Response {
	return []Response{ResponseString{fmt.Sprintf("%s, you are already registered", mention(userID))}}
}

func UserNotRegistered(userID string) []Response {
	return []Response{ResponseString{fmt.Sprintf("%s is not registered", mention(userID))}}
}

func UserUnregistered(userID string) []Response {
	return []Response{ResponseString{fmt.Sprintf("%s has been unregistered", mention(userID))}}
}

func DatabaseUnavailable() []Response {
	return []Response{ResponseString{"The database is not feeling well right now, try again later"}}
}

func RankMessage(userID string, user leveling.User, projected int64, sinceLast time.Duration) []Response {

	embed := discordgo.MessageEmbed{
		Title:       "Inverse level",
		Description: mention(userID),
		Color:       color,
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Points",
		Value:  fmt.Sprintf("%d", user.Points),
		Inline: true,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "If you acted right now",
		Value:  fmt.Sprintf("%d", projected),
		Inline: true,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Last action",
		Value:  fmt.Sprintf("%s, %s ago", user.LastActionType, common.Approximate(sinceLast)),
		Inline: false,
	})
	return []Response{ResponseEmbed{embed}}
}

func TopMessage(users []leveling.User) []Response {

	if len(users) == 0 {
		return []Response{ResponseString{"Nobody is registered yet"}}
	}
	lines := make([]string, 0, len(users))
	for i, user := range users {
		lines = append(lines, fmt.Sprintf("%d. %s with %d points", i+1, mention(user.UserID), user.Points))
	}
	embed := discordgo.MessageEmbed{
		Title:       "Best at staying away",
		Description: strings.Join(lines, "\n"),
		Color:       color,
	}
	return []Response{ResponseEmbed{embed}}
}

func PrefixChanged(prefix string) []Response {
	return []Response{ResponseString{fmt.Sprintf("From now on, commands in this server start with `%s`", prefix)}}
}

func HelpMessage(prefix string) []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%s register`", prefix),
		Value:  "Opt in to inverse leveling. Every tracked action resets your idle clock",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%s unregister`", prefix),
		Value:  "Opt out and delete your record",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%s rank [user]`", prefix),
		Value:  "Show your points, or the points of the mentioned user",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%s top`", prefix),
		Value:  "Show the users with the most points",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%s prefix <new_prefix>`", prefix),
		Value:  "Change the command prefix for this server",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%s about`", prefix),
		Value:  "More info about the bot",
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   fmt.Sprintf("`%s help`", prefix),
		Value:  "Print the usage of the different commands",
		Inline: false,
	})
	return []Response{ResponseEmbed{embed}}
}

func AboutMessage() []Response {

	embed := discordgo.MessageEmbed{
		Title:       "Go Outside",
		Description: description,
		Color:       color,
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "​",
		Value:  fmt.Sprintf("Made with discordgo %s, %s", discordgo.VERSION, runtime.Version()),
		Inline: false,
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:   "Revision",
		Value:  revision(),
		Inline: false,
	})
	return []Response{ResponseEmbed{embed}}
}

// revision extracts the vcs revision the binary was built from
func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 7 {
				return setting.Value[:7]
			}
			return setting.Value
		}
	}
	return "unknown"
}
