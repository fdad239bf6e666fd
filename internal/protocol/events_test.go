package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		event    Event
		expected string
	}{
		{"WentOnline", WentOnlineEvent{UserPK: "1"}, `{"msg_type":1,"user_pk":"1"}`},
		{"WentOffline", WentOfflineEvent{UserPK: "1"}, `{"msg_type":2,"user_pk":"1"}`},
		{
			"NewTextMessage",
			NewTextMessageEvent{RandomID: -1, Text: "hi", Sender: "1", Receiver: "2", SenderUsername: "alice"},
			`{"msg_type":3,"random_id":-1,"text":"hi","sender":"1","receiver":"2","sender_username":"alice"}`,
		},
		{
			"NewFileMessage",
			NewFileMessageEvent{
				DBID:           5,
				File:           File{ID: "f", URL: "/media/user_1/a.txt", Size: 3, Name: "a.txt"},
				Sender:         "1",
				Receiver:       "2",
				SenderUsername: "alice",
			},
			`{"msg_type":4,"db_id":5,"file":{"id":"f","url":"/media/user_1/a.txt","size":3,"name":"a.txt"},"sender":"1","receiver":"2","sender_username":"alice"}`,
		},
		{"ErrorOccurred", ErrorOccurredEvent{Code: InvalidUserPK, Message: "bad"}, `{"msg_type":7,"error":[4,"bad"]}`},
		{"MessageIdCreated", MessageIDCreatedEvent{RandomID: -1, DBID: 10}, `{"msg_type":8,"random_id":-1,"db_id":10}`},
		{"NewUnreadCount", NewUnreadCountEvent{Sender: "1", UnreadCount: 3}, `{"msg_type":9,"sender":"1","unread_count":3}`},
		{"IsTyping", IsTypingEvent{UserPK: "1"}, `{"msg_type":5,"user_pk":"1"}`},
		{"TypingStopped", StoppedTypingEvent{UserPK: "1"}, `{"msg_type":10,"user_pk":"1"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.event)
			require.NoError(t, err)
			require.JSONEq(t, tt.expected, string(b))

			decoded, err := Decode(b)
			require.NoError(t, err)
			require.Equal(t, tt.event, decoded)
		})
	}
}

func TestDecodeUnknown(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"msg_type":42}`))
	require.Error(t, err)

	_, err = Decode([]byte(`{"user_pk":"1"}`))
	require.Error(t, err)
}

func TestErrorEvent(t *testing.T) {
	t.Parallel()

	e := Errorf(FileDoesNotExist, "File with id x does not exist")
	require.Equal(t, "FileDoesNotExist: File with id x does not exist", e.Error())
	require.Equal(t, ErrorOccurredEvent{Code: FileDoesNotExist, Message: "File with id x does not exist"}, e.Event())
	require.Equal(t, "MessageIdCreated", MessageIDCreated.String())
	require.Equal(t, "MsgType(12)", MsgType(12).String())
}
