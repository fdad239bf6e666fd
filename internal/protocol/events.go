package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/valyala/fastjson"
)

// Event is a fully formed outbound frame payload
type Event interface {
	Type() MsgType
}

// WentOnlineEvent notifies dialog partners that user connected
type WentOnlineEvent struct {
	UserPK string `json:"user_pk"`
}

// WentOfflineEvent notifies dialog partners that user disconnected
type WentOfflineEvent struct {
	UserPK string `json:"user_pk"`
}

// NewTextMessageEvent is the optimistic delivery of a text message, sent before it is persisted
type NewTextMessageEvent struct {
	RandomID       int64  `json:"random_id"`
	Text           string `json:"text"`
	Sender         string `json:"sender"`
	Receiver       string `json:"receiver"`
	SenderUsername string `json:"sender_username"`
}

// File describes uploaded file attached to message
type File struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Name string `json:"name"`
}

// NewFileMessageEvent is the delivery of a persisted file message
type NewFileMessageEvent struct {
	DBID           int64  `json:"db_id"`
	File           File   `json:"file"`
	Sender         string `json:"sender"`
	Receiver       string `json:"receiver"`
	SenderUsername string `json:"sender_username"`
}

// IsTypingEvent tells dialog members of user_pk that the user is typing
type IsTypingEvent struct {
	UserPK string `json:"user_pk"`
}

// StoppedTypingEvent tells dialog members of user_pk that the user stopped typing
type StoppedTypingEvent struct {
	UserPK string `json:"user_pk"`
}

// MessageReadEvent tells the sender that receiver has read message
type MessageReadEvent struct {
	MessageID int64  `json:"message_id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
}

// ErrorOccurredEvent is encoded as {"msg_type":7,"error":[code,"message"]}
type ErrorOccurredEvent struct {
	Code    ErrorType
	Message string
}

// MessageIDCreatedEvent correlates client random id with the id assigned by storage
type MessageIDCreatedEvent struct {
	RandomID int64 `json:"random_id"`
	DBID     int64 `json:"db_id"`
}

// NewUnreadCountEvent carries the number of unread messages from sender
type NewUnreadCountEvent struct {
	Sender      string `json:"sender"`
	UnreadCount int    `json:"unread_count"`
}

func (WentOnlineEvent) Type() MsgType       { return WentOnline }
func (WentOfflineEvent) Type() MsgType      { return WentOffline }
func (NewTextMessageEvent) Type() MsgType   { return TextMessage }
func (NewFileMessageEvent) Type() MsgType   { return FileMessage }
func (IsTypingEvent) Type() MsgType         { return IsTyping }
func (StoppedTypingEvent) Type() MsgType    { return TypingStopped }
func (MessageReadEvent) Type() MsgType      { return MessageRead }
func (ErrorOccurredEvent) Type() MsgType    { return ErrorOccurred }
func (MessageIDCreatedEvent) Type() MsgType { return MessageIDCreated }
func (NewUnreadCountEvent) Type() MsgType   { return NewUnreadCount }

// withType prepends "msg_type" member to encoded JSON object
func withType(t MsgType, payload []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(payload)+16)
	out = append(out, `{"msg_type":`...)
	out = fmt.Appendf(out, "%d", int(t))
	if len(payload) > 2 {
		out = append(out, ',')
	}
	return append(out, payload[1:]...), nil
}

func (e WentOnlineEvent) MarshalJSON() ([]byte, error) {
	type plain WentOnlineEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

func (e WentOfflineEvent) MarshalJSON() ([]byte, error) {
	type plain WentOfflineEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

func (e NewTextMessageEvent) MarshalJSON() ([]byte, error) {
	type plain NewTextMessageEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

func (e NewFileMessageEvent) MarshalJSON() ([]byte, error) {
	type plain NewFileMessageEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

func (e IsTypingEvent) MarshalJSON() ([]byte, error) {
	type plain IsTypingEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

func (e StoppedTypingEvent) MarshalJSON() ([]byte, error) {
	type plain StoppedTypingEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

func (e MessageReadEvent) MarshalJSON() ([]byte, error) {
	type plain MessageReadEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

func (e ErrorOccurredEvent) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(struct {
		Error [2]interface{} `json:"error"`
	}{Error: [2]interface{}{int(e.Code), e.Message}})
	return withType(e.Type(), b, err)
}

func (e *ErrorOccurredEvent) UnmarshalJSON(data []byte) error {
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return err
	}
	items, err := v.Get("error").Array()
	if err != nil || len(items) != 2 {
		return errors.New(`"error" must be an array of two items`)
	}
	code, err := items[0].Int()
	if err != nil {
		return fmt.Errorf("error code: %w", err)
	}
	msg, err := items[1].StringBytes()
	if err != nil {
		return fmt.Errorf("error message: %w", err)
	}
	e.Code = ErrorType(code)
	e.Message = string(msg)
	return nil
}

func (e MessageIDCreatedEvent) MarshalJSON() ([]byte, error) {
	type plain MessageIDCreatedEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

func (e NewUnreadCountEvent) MarshalJSON() ([]byte, error) {
	type plain NewUnreadCountEvent
	b, err := json.Marshal(plain(e))
	return withType(e.Type(), b, err)
}

// Encode serializes ev into a single outbound frame
func Encode(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses outbound frame back into its Event variant.
// It is used by clients of the protocol, e.g. tests and tooling.
func Decode(frame []byte) (Event, error) {
	v, err := fastjson.ParseBytes(frame)
	if err != nil {
		return nil, err
	}
	t, err := v.Get("msg_type").Int()
	if err != nil {
		return nil, fmt.Errorf("msg_type: %w", err)
	}

	switch MsgType(t) {
	case WentOnline:
		return decodeAs[WentOnlineEvent](frame)
	case WentOffline:
		return decodeAs[WentOfflineEvent](frame)
	case TextMessage:
		return decodeAs[NewTextMessageEvent](frame)
	case FileMessage:
		return decodeAs[NewFileMessageEvent](frame)
	case IsTyping:
		return decodeAs[IsTypingEvent](frame)
	case TypingStopped:
		return decodeAs[StoppedTypingEvent](frame)
	case MessageRead:
		return decodeAs[MessageReadEvent](frame)
	case ErrorOccurred:
		return decodeAs[ErrorOccurredEvent](frame)
	case MessageIDCreated:
		return decodeAs[MessageIDCreatedEvent](frame)
	case NewUnreadCount:
		return decodeAs[NewUnreadCountEvent](frame)
	default:
		return nil, fmt.Errorf("unknown msg_type %d", t)
	}
}

func decodeAs[T Event](frame []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(frame, &e); err != nil {
		return nil, err
	}
	return e, nil
}
