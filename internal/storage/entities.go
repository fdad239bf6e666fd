package storage

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

// Dialog is the unordered pair of users that have exchanged at least one message
type Dialog struct {
	ID         int64
	User1      int64
	User2      int64
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// UploadedFile is a file stored by the upload service, Path is relative to media root
type UploadedFile struct {
	ID         uuid.UUID
	UploadedBy int64
	Path       string
	Size       int64
	UploadedAt time.Time
}

// Message is immutable except for Read flag which only changes from false to true
type Message struct {
	ID         int64
	Sender     int64
	Recipient  int64
	Text       string
	File       *uuid.UUID
	Read       bool
	CreatedAt  time.Time
	ModifiedAt time.Time
}
