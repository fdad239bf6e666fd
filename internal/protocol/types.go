// Package protocol defines the wire taxonomy exchanged with chat clients:
// message types, error codes, outbound events and inbound commands.
package protocol

import "strconv"

// MsgType is the "msg_type" discriminant carried by every frame
type MsgType int

const (
	WentOnline MsgType = iota + 1
	WentOffline
	TextMessage
	FileMessage
	IsTyping
	MessageRead
	ErrorOccurred
	MessageIDCreated
	NewUnreadCount
	TypingStopped
)

var msgTypeNames = map[MsgType]string{
	WentOnline:       "WentOnline",
	WentOffline:      "WentOffline",
	TextMessage:      "TextMessage",
	FileMessage:      "FileMessage",
	IsTyping:         "IsTyping",
	MessageRead:      "MessageRead",
	ErrorOccurred:    "ErrorOccurred",
	MessageIDCreated: "MessageIdCreated",
	NewUnreadCount:   "NewUnreadCount",
	TypingStopped:    "TypingStopped",
}

func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "MsgType(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is one of the known message types
func (t MsgType) Valid() bool {
	_, ok := msgTypeNames[t]
	return ok
}

// OutboundOnly reports whether t is only ever produced by the server.
// Clients sending such types are ignored without an error.
func (t MsgType) OutboundOnly() bool {
	switch t {
	case WentOnline, WentOffline, ErrorOccurred, MessageIDCreated, NewUnreadCount:
		return true
	}
	return false
}

// ErrorType is the error code sent inside ErrorOccurred events
type ErrorType int

const (
	MessageParsingError ErrorType = iota + 1
	TextMessageInvalid
	InvalidMessageReadID
	InvalidUserPK
	InvalidRandomID
	FileMessageInvalid
	FileDoesNotExist
)

var errorTypeNames = map[ErrorType]string{
	MessageParsingError:  "MessageParsingError",
	TextMessageInvalid:   "TextMessageInvalid",
	InvalidMessageReadID: "InvalidMessageReadId",
	InvalidUserPK:        "InvalidUserPk",
	InvalidRandomID:      "InvalidRandomId",
	FileMessageInvalid:   "FileMessageInvalid",
	FileDoesNotExist:     "FileDoesNotExist",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "ErrorType(" + strconv.Itoa(int(t)) + ")"
}

// Error is a protocol level failure reported back to the originating connection.
// It never terminates the connection.
type Error struct {
	Type    ErrorType
	Message string
}

// Errorf returns new *Error with provided type and message
func Errorf(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

func (e *Error) Error() string {
	return e.Type.String() + ": " + e.Message
}

// Event converts e into ErrorOccurred event
func (e *Error) Event() ErrorOccurredEvent {
	return ErrorOccurredEvent{Code: e.Type, Message: e.Message}
}
