package bot

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	COMMAND_REGISTER   = iota
	COMMAND_UNREGISTER = iota
	COMMAND_RANK       = iota
	COMMAND_TOP        = iota
	COMMAND_PREFIX     = iota
	COMMAND_ABOUT      = iota
	COMMAND_HELP       = iota
)

const (
	PARSEID_OK                     = iota
	PARSEID_NO_BOT_PREFIX          = iota
	PARSEID_NO_COMMAND             = iota
	PARSEID_COMMAND_NOT_RECOGNISED = iota
	PARSEID_NO_INPUT               = iota
	PARSEID_NOT_A_USER             = iota
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_NO_INPUT:               "Command `%s` requires an argument",
	PARSEID_NOT_A_USER:             "Input `%s` is not a user mention or id",
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

// Parse decides whether the message is a command for the bot, given the
// prefix in effect for the guild it was seen in.
func Parse(message string, prefix string) ParseResult {

	noInput := func(command int, commandString string) ParseResult {
		parseid := PARSEID_NO_INPUT
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}

	// The message has to start with the bot prefix
	if !strings.HasPrefix(message, prefix) {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	// Get the command if valid
	words := strings.Fields(strings.TrimSpace(message[len(prefix):]))
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := words[0]
	words = words[1:]

	// Match the command

	switch commandString {
	case "register":
		// <prefix> register
		return ParseResult{command: COMMAND_REGISTER, parseid: PARSEID_OK}
	case "unregister":
		// <prefix> unregister
		return ParseResult{command: COMMAND_UNREGISTER, parseid: PARSEID_OK}
	case "rank":
		// <prefix> rank [user]
		command := COMMAND_RANK
		if len(words) == 0 {
			return ParseResult{command: command, parseid: PARSEID_OK}
		}
		return parseUser(command, words[0])
	case "top":
		// <prefix> top
		return ParseResult{command: COMMAND_TOP, parseid: PARSEID_OK}
	case "prefix":
		// <prefix> prefix <new_prefix>
		command := COMMAND_PREFIX
		if len(words) == 0 {
			return noInput(command, commandString)
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: words[0]}
	case "about":
		// <prefix> about
		return ParseResult{command: COMMAND_ABOUT, parseid: PARSEID_OK}
	case "help":
		// <prefix> help
		return ParseResult{command: COMMAND_HELP, parseid: PARSEID_OK}
	default:
		log.Debug().Str("command", commandString).Msg("Command not recognised")
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
}

// parseUser accepts a mention (<@id> or <@!id>) or a raw numeric user id
func parseUser(command int, word string) ParseResult {
	id := word
	if strings.HasPrefix(id, "<@") && strings.HasSuffix(id, ">") {
		id = strings.TrimSuffix(strings.TrimPrefix(id, "<@"), ">")
		id = strings.TrimPrefix(id, "!")
	}
	if !isNumeric(id) {
		parseid := PARSEID_NOT_A_USER
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], word)}
	}
	return ParseResult{command: command, parseid: PARSEID_OK, arguments: id}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
