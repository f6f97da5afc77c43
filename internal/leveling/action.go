package leveling

// Action is the kind of tracked user action. Any of these resets the
// user's idle clock.
type Action string

const (
	ActionMessageCreate    Action = "message_create"
	ActionMessageEdit      Action = "message_edit"
	ActionReactionAdd      Action = "reaction_add"
	ActionReactionRemove   Action = "reaction_remove"
	ActionTyping           Action = "typing"
	ActionVoiceStateUpdate Action = "voice_state_update"
	ActionPresenceUpdate   Action = "presence_update"
)
