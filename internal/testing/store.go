package testing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"private-chat/internal/storage"
)

// Store is an in-memory storage collaborator with the semantics of storage.Store
type Store struct {
	mu       sync.Mutex
	users    map[int64]storage.User
	files    map[uuid.UUID]storage.UploadedFile
	dialogs  []storage.Dialog
	messages map[int64]*storage.Message
	nextUser int64
	nextMsg  int64

	// Err is returned by every call when set
	Err error
	// DialogQueries counts DialogsForUser calls
	DialogQueries int
}

func NewStore() *Store {
	return &Store{
		users:    make(map[int64]storage.User),
		files:    make(map[uuid.UUID]storage.UploadedFile),
		messages: make(map[int64]*storage.Message),
	}
}

// AddUser creates user with random name
func (s *Store) AddUser() storage.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextUser++
	u := storage.User{ID: s.nextUser, Username: RandString(), CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u
}

// RemoveUser deletes user, messages and dialogs are kept
func (s *Store) RemoveUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// AddFile stores file uploaded by owner
func (s *Store) AddFile(owner int64, path string, size int64) storage.UploadedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := storage.UploadedFile{ID: uuid.New(), UploadedBy: owner, Path: path, Size: size, UploadedAt: time.Now()}
	s.files[f.ID] = f
	return f
}

// AddDialog creates dialog between u1 and u2 unless it exists
func (s *Store) AddDialog(u1, u2 int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addDialog(u1, u2, time.Now())
}

func (s *Store) addDialog(u1, u2 int64, now time.Time) {
	for _, d := range s.dialogs {
		if (d.User1 == u1 && d.User2 == u2) || (d.User1 == u2 && d.User2 == u1) {
			return
		}
	}
	s.dialogs = append(s.dialogs, storage.Dialog{
		ID:         int64(len(s.dialogs) + 1),
		User1:      u1,
		User2:      u2,
		CreatedAt:  now,
		ModifiedAt: now,
	})
}

// Message returns copy of stored message
func (s *Store) Message(id int64) (storage.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return storage.Message{}, false
	}
	return *m, true
}

func (s *Store) DialogsForUser(_ context.Context, user int64) ([]storage.Dialog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DialogQueries++
	if s.Err != nil {
		return nil, s.Err
	}

	var out []storage.Dialog
	for _, d := range s.dialogs {
		if d.User1 == user || d.User2 == user {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) UserByID(_ context.Context, id int64) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return storage.User{}, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.ErrUserNotExist
	}
	return u, nil
}

func (s *Store) FileByID(_ context.Context, id uuid.UUID) (storage.UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return storage.UploadedFile{}, s.Err
	}
	f, ok := s.files[id]
	if !ok {
		return storage.UploadedFile{}, storage.ErrFileNotExist
	}
	return f, nil
}

func (s *Store) CreateTextMessage(_ context.Context, text string, from, to int64) (storage.Message, error) {
	return s.create(storage.Message{Sender: from, Recipient: to, Text: text})
}

func (s *Store) CreateFileMessage(_ context.Context, file storage.UploadedFile, from, to int64) (storage.Message, error) {
	id := file.ID
	return s.create(storage.Message{Sender: from, Recipient: to, File: &id})
}

func (s *Store) create(m storage.Message) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return storage.Message{}, s.Err
	}
	if _, ok := s.users[m.Sender]; !ok {
		return storage.Message{}, storage.ErrUserNotExist
	}
	if _, ok := s.users[m.Recipient]; !ok {
		return storage.Message{}, storage.ErrUserNotExist
	}

	now := time.Now()
	s.nextMsg++
	m.ID = s.nextMsg
	m.CreatedAt, m.ModifiedAt = now, now
	stored := m
	s.messages[m.ID] = &stored
	s.addDialog(m.Sender, m.Recipient, now)

	return m, nil
}

func (s *Store) MessageByID(_ context.Context, id int64) (storage.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return storage.Message{}, s.Err
	}
	m, ok := s.messages[id]
	if !ok {
		return storage.Message{}, storage.ErrMessageNotExist
	}
	return *m, nil
}

func (s *Store) MarkMessageRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	if m, ok := s.messages[id]; ok && !m.Read {
		m.Read = true
		m.ModifiedAt = time.Now()
	}
	return nil
}

func (s *Store) UnreadCount(_ context.Context, sender, recipient int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return 0, s.Err
	}
	n := 0
	for _, m := range s.messages {
		if m.Sender == sender && m.Recipient == recipient && !m.Read {
			n++
		}
	}
	return n, nil
}
