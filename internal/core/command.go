package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendMessage persists a direct message and fans it out.
	CommandSendMessage CommandKind = iota
)

// Command represents an action requested by a client.
type Command struct {
	Kind       CommandKind
	ReceiverID string `json:"receiverId" validate:"notblank"`
	Text       string `json:"text" validate:"notblank"`
}
