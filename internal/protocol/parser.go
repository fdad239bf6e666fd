package protocol

import (
	"strconv"
	"unicode/utf8"

	"github.com/valyala/fastjson"
)

// DefaultMaxTextLength is the maximum number of characters in text message
const DefaultMaxTextLength = 65535

// Parser turns raw inbound frames into commands.
// It is safe for concurrent use.
type Parser struct {
	pool          fastjson.ParserPool
	maxTextLength int
}

// NewParser returns Parser rejecting text messages longer than maxTextLength characters
func NewParser(maxTextLength int) *Parser {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}
	return &Parser{maxTextLength: maxTextLength}
}

// Parse decodes the envelope and validates fields of the recognized command.
// Checks run in a fixed order and the first failing one is returned.
func (p *Parser) Parse(frame []byte) (Command, *Error) {
	parser := p.pool.Get()
	defer p.pool.Put(parser)

	v, err := parser.ParseBytes(frame)
	if err != nil {
		return nil, Errorf(MessageParsingError, "jsonDecodeError - "+err.Error())
	}

	if v.Type() != fastjson.TypeObject || !v.Exists("msg_type") {
		return nil, Errorf(MessageParsingError, "msg_type not present in json")
	}

	n, err := v.Get("msg_type").Int()
	if err != nil {
		return nil, Errorf(MessageParsingError, "msg_type is not an int")
	}

	t := MsgType(n)
	if !t.Valid() {
		return nil, Errorf(MessageParsingError, "msg_type decoding error - "+strconv.Itoa(n)+" is not a valid MessageTypes")
	}

	switch t {
	case IsTyping:
		return TypingCommand{}, nil
	case TypingStopped:
		return TypingCommand{Stopped: true}, nil
	case TextMessage:
		return p.textMessage(v)
	case FileMessage:
		return p.fileMessage(v)
	case MessageRead:
		return p.messageRead(v)
	default:
		return IgnoredCommand{Kind: t}, nil
	}
}

func (p *Parser) textMessage(v *fastjson.Value) (Command, *Error) {
	if e := firstFailure(v,
		present("text"),
		present("user_pk"),
		present("random_id"),
		notBlank("text", TextMessageInvalid),
		notLongerThan("text", p.maxTextLength, TextMessageInvalid),
		isString("text", TextMessageInvalid),
		isString("user_pk", InvalidUserPK),
		isInt("random_id", InvalidRandomID),
		negative("random_id", InvalidRandomID),
	); e != nil {
		return nil, e
	}

	return TextMessageCommand{
		Text:     string(v.GetStringBytes("text")),
		UserPK:   string(v.GetStringBytes("user_pk")),
		RandomID: v.GetInt64("random_id"),
	}, nil
}

func (p *Parser) fileMessage(v *fastjson.Value) (Command, *Error) {
	if e := firstFailure(v,
		present("file_id"),
		present("user_pk"),
		present("random_id"),
		notBlank("file_id", FileMessageInvalid),
		isString("file_id", FileMessageInvalid),
		isString("user_pk", InvalidUserPK),
		isInt("random_id", InvalidRandomID),
		negative("random_id", InvalidRandomID),
	); e != nil {
		return nil, e
	}

	return FileMessageCommand{
		FileID:   string(v.GetStringBytes("file_id")),
		UserPK:   string(v.GetStringBytes("user_pk")),
		RandomID: v.GetInt64("random_id"),
	}, nil
}

func (p *Parser) messageRead(v *fastjson.Value) (Command, *Error) {
	if e := firstFailure(v,
		present("user_pk"),
		present("message_id"),
		isString("user_pk", InvalidUserPK),
		isInt("message_id", InvalidRandomID),
		positive("message_id", InvalidMessageReadID),
	); e != nil {
		return nil, e
	}

	return MessageReadCommand{
		UserPK:    string(v.GetStringBytes("user_pk")),
		MessageID: v.GetInt64("message_id"),
	}, nil
}

// rule checks a single property of a command object
type rule func(v *fastjson.Value) *Error

func firstFailure(v *fastjson.Value, rules ...rule) *Error {
	for _, r := range rules {
		if e := r(v); e != nil {
			return e
		}
	}
	return nil
}

func quoted(field string) string {
	return "'" + field + "'"
}

func present(field string) rule {
	return func(v *fastjson.Value) *Error {
		if !v.Exists(field) {
			return Errorf(MessageParsingError, quoted(field)+" not present in data")
		}
		return nil
	}
}

// notBlank fails on empty strings only, values of other types are checked by isString
func notBlank(field string, t ErrorType) rule {
	return func(v *fastjson.Value) *Error {
		f := v.Get(field)
		if f.Type() == fastjson.TypeString && len(f.GetStringBytes()) == 0 {
			return Errorf(t, quoted(field)+" should not be blank")
		}
		return nil
	}
}

func notLongerThan(field string, max int, t ErrorType) rule {
	return func(v *fastjson.Value) *Error {
		f := v.Get(field)
		if f.Type() == fastjson.TypeString && utf8.RuneCount(f.GetStringBytes()) > max {
			return Errorf(t, quoted(field)+" is too long")
		}
		return nil
	}
}

func isString(field string, t ErrorType) rule {
	return func(v *fastjson.Value) *Error {
		if v.Get(field).Type() != fastjson.TypeString {
			return Errorf(t, quoted(field)+" should be a string")
		}
		return nil
	}
}

func isInt(field string, t ErrorType) rule {
	return func(v *fastjson.Value) *Error {
		if _, err := v.Get(field).Int64(); err != nil {
			return Errorf(t, quoted(field)+" should be an int")
		}
		return nil
	}
}

func negative(field string, t ErrorType) rule {
	return func(v *fastjson.Value) *Error {
		if v.GetInt64(field) >= 0 {
			return Errorf(t, quoted(field)+" should be negative")
		}
		return nil
	}
}

func positive(field string, t ErrorType) rule {
	return func(v *fastjson.Value) *Error {
		if v.GetInt64(field) <= 0 {
			return Errorf(t, quoted(field)+" should be > 0")
		}
		return nil
	}
}
