package protocol

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	t.Parallel()

	p := NewParser(10)

	tests := []struct {
		name  string
		frame string
		msg   string
	}{
		{"MalformedJSON", `{"msg_type":`, ""},
		{"NotObject", `[1,2]`, "msg_type not present in json"},
		{"NoMsgType", `{"text":"hi"}`, "msg_type not present in json"},
		{"MsgTypeString", `{"msg_type":"3"}`, "msg_type is not an int"},
		{"MsgTypeFloat", `{"msg_type":3.5}`, "msg_type is not an int"},
		{"MsgTypeUnknown", `{"msg_type":11}`, "msg_type decoding error - 11 is not a valid MessageTypes"},
		{"MsgTypeZero", `{"msg_type":0}`, "msg_type decoding error - 0 is not a valid MessageTypes"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cmd, e := p.Parse([]byte(tt.frame))
			require.Nil(t, cmd)
			require.NotNil(t, e)
			require.Equal(t, MessageParsingError, e.Type)
			if tt.msg != "" {
				require.Equal(t, tt.msg, e.Message)
			} else {
				require.True(t, strings.HasPrefix(e.Message, "jsonDecodeError - "))
			}
		})
	}
}

func TestParseOutboundOnlyIgnored(t *testing.T) {
	t.Parallel()

	p := NewParser(10)
	for _, mt := range []MsgType{WentOnline, WentOffline, ErrorOccurred, MessageIDCreated, NewUnreadCount} {
		cmd, e := p.Parse([]byte(`{"msg_type":` + strconv.Itoa(int(mt)) + `}`))
		require.Nil(t, e)
		require.Equal(t, IgnoredCommand{Kind: mt}, cmd)
		require.True(t, cmd.Type().OutboundOnly())
	}
}

func TestParseTyping(t *testing.T) {
	t.Parallel()

	p := NewParser(10)

	cmd, e := p.Parse([]byte(`{"msg_type":5}`))
	require.Nil(t, e)
	require.Equal(t, TypingCommand{}, cmd)
	require.Equal(t, IsTyping, cmd.Type())

	cmd, e = p.Parse([]byte(`{"msg_type":10,"anything":[1]}`))
	require.Nil(t, e)
	require.Equal(t, TypingCommand{Stopped: true}, cmd)
	require.Equal(t, TypingStopped, cmd.Type())
}

func TestParseTextMessage(t *testing.T) {
	t.Parallel()

	p := NewParser(5)

	cmd, e := p.Parse([]byte(`{"msg_type":3,"text":"hi","user_pk":"2","random_id":-1}`))
	require.Nil(t, e)
	require.Equal(t, TextMessageCommand{Text: "hi", UserPK: "2", RandomID: -1}, cmd)

	// length is counted in characters, not bytes
	cmd, e = p.Parse([]byte(`{"msg_type":3,"text":"привет","user_pk":"2","random_id":-1}`))
	require.Nil(t, cmd)
	require.NotNil(t, e)
	require.Equal(t, TextMessageInvalid, e.Type)

	cmd, e = p.Parse([]byte(`{"msg_type":3,"text":"приве","user_pk":"2","random_id":-1}`))
	require.Nil(t, e)
	require.Equal(t, "приве", cmd.(TextMessageCommand).Text)
}

func TestParseTextMessageRejections(t *testing.T) {
	t.Parallel()

	p := NewParser(5)

	tests := []struct {
		name    string
		frame   string
		errType ErrorType
		msg     string
	}{
		{"NoText", `{"msg_type":3,"user_pk":1,"random_id":"x"}`, MessageParsingError, "'text' not present in data"},
		{"NoUserPK", `{"msg_type":3,"text":"","random_id":-1}`, MessageParsingError, "'user_pk' not present in data"},
		{"NoRandomID", `{"msg_type":3,"text":"hi","user_pk":"2"}`, MessageParsingError, "'random_id' not present in data"},
		{"BlankText", `{"msg_type":3,"text":"","user_pk":2,"random_id":1}`, TextMessageInvalid, "'text' should not be blank"},
		{"TooLong", `{"msg_type":3,"text":"123456","user_pk":2,"random_id":1}`, TextMessageInvalid, "'text' is too long"},
		{"TextNotString", `{"msg_type":3,"text":12,"user_pk":2,"random_id":1}`, TextMessageInvalid, "'text' should be a string"},
		{"TextNull", `{"msg_type":3,"text":null,"user_pk":"2","random_id":-1}`, TextMessageInvalid, "'text' should be a string"},
		{"UserPKNotString", `{"msg_type":3,"text":"hi","user_pk":2,"random_id":1}`, InvalidUserPK, "'user_pk' should be a string"},
		{"RandomIDNotInt", `{"msg_type":3,"text":"hi","user_pk":"2","random_id":"-1"}`, InvalidRandomID, "'random_id' should be an int"},
		{"RandomIDFloat", `{"msg_type":3,"text":"hi","user_pk":"2","random_id":-1.5}`, InvalidRandomID, "'random_id' should be an int"},
		{"RandomIDPositive", `{"msg_type":3,"text":"hi","user_pk":"2","random_id":1}`, InvalidRandomID, "'random_id' should be negative"},
		{"RandomIDZero", `{"msg_type":3,"text":"hi","user_pk":"2","random_id":0}`, InvalidRandomID, "'random_id' should be negative"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cmd, e := p.Parse([]byte(tt.frame))
			require.Nil(t, cmd)
			require.NotNil(t, e)
			require.Equal(t, tt.errType, e.Type)
			require.Equal(t, tt.msg, e.Message)
		})
	}
}

func TestParseFileMessage(t *testing.T) {
	t.Parallel()

	p := NewParser(5)

	cmd, e := p.Parse([]byte(`{"msg_type":4,"file_id":"8c1c8a3e-4a33-4c4c-9c55-7f0fa5d5b1f1","user_pk":"2","random_id":-7}`))
	require.Nil(t, e)
	require.Equal(t, FileMessageCommand{FileID: "8c1c8a3e-4a33-4c4c-9c55-7f0fa5d5b1f1", UserPK: "2", RandomID: -7}, cmd)

	tests := []struct {
		name    string
		frame   string
		errType ErrorType
		msg     string
	}{
		{"NoFileID", `{"msg_type":4,"user_pk":"2","random_id":-1}`, MessageParsingError, "'file_id' not present in data"},
		{"NoUserPK", `{"msg_type":4,"file_id":"a","random_id":-1}`, MessageParsingError, "'user_pk' not present in data"},
		{"NoRandomID", `{"msg_type":4,"file_id":"a","user_pk":"2"}`, MessageParsingError, "'random_id' not present in data"},
		{"BlankFileID", `{"msg_type":4,"file_id":"","user_pk":2,"random_id":1}`, FileMessageInvalid, "'file_id' should not be blank"},
		{"FileIDNotString", `{"msg_type":4,"file_id":5,"user_pk":2,"random_id":1}`, FileMessageInvalid, "'file_id' should be a string"},
		{"UserPKNotString", `{"msg_type":4,"file_id":"a","user_pk":2,"random_id":1}`, InvalidUserPK, "'user_pk' should be a string"},
		{"RandomIDNotInt", `{"msg_type":4,"file_id":"a","user_pk":"2","random_id":true}`, InvalidRandomID, "'random_id' should be an int"},
		{"RandomIDPositive", `{"msg_type":4,"file_id":"a","user_pk":"2","random_id":3}`, InvalidRandomID, "'random_id' should be negative"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cmd, e := p.Parse([]byte(tt.frame))
			require.Nil(t, cmd)
			require.NotNil(t, e)
			require.Equal(t, tt.errType, e.Type)
			require.Equal(t, tt.msg, e.Message)
		})
	}
}

func TestParseMessageRead(t *testing.T) {
	t.Parallel()

	p := NewParser(5)

	cmd, e := p.Parse([]byte(`{"msg_type":6,"user_pk":"1","message_id":42}`))
	require.Nil(t, e)
	require.Equal(t, MessageReadCommand{UserPK: "1", MessageID: 42}, cmd)

	tests := []struct {
		name    string
		frame   string
		errType ErrorType
		msg     string
	}{
		{"NoUserPK", `{"msg_type":6,"message_id":"x"}`, MessageParsingError, "'user_pk' not present in data"},
		{"NoMessageID", `{"msg_type":6,"user_pk":1}`, MessageParsingError, "'message_id' not present in data"},
		{"UserPKNotString", `{"msg_type":6,"user_pk":1,"message_id":"x"}`, InvalidUserPK, "'user_pk' should be a string"},
		{"MessageIDNotInt", `{"msg_type":6,"user_pk":"1","message_id":"x"}`, InvalidRandomID, "'message_id' should be an int"},
		{"MessageIDZero", `{"msg_type":6,"user_pk":"1","message_id":0}`, InvalidMessageReadID, "'message_id' should be > 0"},
		{"MessageIDNegative", `{"msg_type":6,"user_pk":"1","message_id":-3}`, InvalidMessageReadID, "'message_id' should be > 0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cmd, e := p.Parse([]byte(tt.frame))
			require.Nil(t, cmd)
			require.NotNil(t, e)
			require.Equal(t, tt.errType, e.Type)
			require.Equal(t, tt.msg, e.Message)
		})
	}
}
