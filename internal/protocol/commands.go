package protocol

// Command is a validated inbound frame
type Command interface {
	Type() MsgType
}

// TypingCommand is sent while user is typing (IsTyping) and after they stop (TypingStopped)
type TypingCommand struct {
	Stopped bool
}

// TextMessageCommand sends text to user identified by UserPK
type TextMessageCommand struct {
	Text     string
	UserPK   string
	RandomID int64
}

// FileMessageCommand sends previously uploaded file to user identified by UserPK
type FileMessageCommand struct {
	FileID   string
	UserPK   string
	RandomID int64
}

// MessageReadCommand marks message sent by UserPK as read
type MessageReadCommand struct {
	UserPK    string
	MessageID int64
}

// IgnoredCommand is an outbound-only message type sent by client, it has no effect
type IgnoredCommand struct {
	Kind MsgType
}

func (c TypingCommand) Type() MsgType {
	if c.Stopped {
		return TypingStopped
	}
	return IsTyping
}

func (TextMessageCommand) Type() MsgType { return TextMessage }
func (FileMessageCommand) Type() MsgType { return FileMessage }
func (MessageReadCommand) Type() MsgType { return MessageRead }
func (c IgnoredCommand) Type() MsgType   { return c.Kind }
