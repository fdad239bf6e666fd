package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"private-chat/internal/storage/zapadapter"
)

var (
	ErrUserNotExist    = errors.New("user does not exist")
	ErrFileNotExist    = errors.New("file does not exist")
	ErrMessageNotExist = errors.New("message does not exist")
)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// NewStore sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func NewStore(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())
	config.ConnConfig.LogLevel = pgx.LogLevelWarn

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close closes all connections in the pool
func (s *Store) Close() {
	s.db.Close()
}

// DialogsForUser returns all dialogs where user is one of the pair
func (s *Store) DialogsForUser(ctx context.Context, user int64) ([]Dialog, error) {
	s.logger.Debugf("Retrieving dialogs for user (id: %d)", user)

	sql := `select id, user1_id, user2_id, created_at, modified_at
			  from dialogs
			 where user1_id = $1 or user2_id = $1`

	rows, err := s.db.Query(ctx, sql, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dialogs []Dialog
	for rows.Next() {
		var d Dialog
		if err := rows.Scan(&d.ID, &d.User1, &d.User2, &d.CreatedAt, &d.ModifiedAt); err != nil {
			return nil, err
		}
		dialogs = append(dialogs, d)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d dialogs", len(dialogs))

	return dialogs, nil
}

// UserByID returns ErrUserNotExist if there is no user with provided id
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	var u User
	sql := "select id, username, created_at from users where id = $1"
	err := s.db.QueryRow(ctx, sql, id).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotExist
		}
		return User{}, err
	}

	return u, nil
}

// FileByID returns ErrFileNotExist if there is no uploaded file with provided id
func (s *Store) FileByID(ctx context.Context, id uuid.UUID) (UploadedFile, error) {
	var (
		f   UploadedFile
		fid pgtype.UUID
	)
	sql := "select id, uploaded_by_id, path, size, upload_date from uploaded_files where id = $1"
	err := s.db.QueryRow(ctx, sql, uuidArg(&id)).Scan(&fid, &f.UploadedBy, &f.Path, &f.Size, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UploadedFile{}, ErrFileNotExist
		}
		return UploadedFile{}, err
	}
	f.ID = uuid.UUID(fid.Bytes)

	return f, nil
}

// CreateTextMessage stores text message and creates dialog between users if it does not exist yet
func (s *Store) CreateTextMessage(ctx context.Context, text string, from, to int64) (Message, error) {
	s.logger.Debugf("Creating text message from user (id: %d) to user (id: %d)", from, to)
	return s.createMessage(ctx, Message{Sender: from, Recipient: to, Text: text})
}

// CreateFileMessage stores file message and creates dialog between users if it does not exist yet
func (s *Store) CreateFileMessage(ctx context.Context, file UploadedFile, from, to int64) (Message, error) {
	s.logger.Debugf("Creating file message (file: %s) from user (id: %d) to user (id: %d)", file.ID, from, to)
	return s.createMessage(ctx, Message{Sender: from, Recipient: to, File: &file.ID})
}

// createMessage performs two-step transaction
// (1. insert message record; 2. insert dialog record unless the pair already has one)
func (s *Store) createMessage(ctx context.Context, m Message) (Message, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Message{}, err
	}
	// error handling can be omitted for rollback according docs
	defer tx.Rollback(context.Background())

	now := time.Now()
	sql := `insert into messages (sender_id, recipient_id, text, file_id, read, is_removed, created_at, modified_at)
			values ($1, $2, $3, $4, false, false, $5, $5)
			returning id`
	err = tx.QueryRow(ctx, sql, m.Sender, m.Recipient, m.Text, uuidArg(m.File), now).Scan(&m.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			switch pgErr.ConstraintName {
			case "messages_file_id_fkey":
				return Message{}, ErrFileNotExist
			default:
				return Message{}, ErrUserNotExist
			}
		}
		return Message{}, err
	}

	// at most one dialog per unordered pair is enforced by dialogs_pair_key unique index
	sql = `insert into dialogs (user1_id, user2_id, created_at, modified_at)
		   values ($1, $2, $3, $3)
		   on conflict do nothing`
	if _, err := tx.Exec(ctx, sql, m.Sender, m.Recipient, now); err != nil {
		return Message{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, err
	}

	m.CreatedAt, m.ModifiedAt = now, now

	s.logger.Debugf("Created message with id %d", m.ID)

	return m, nil
}

// MessageByID returns ErrMessageNotExist if there is no message with provided id
func (s *Store) MessageByID(ctx context.Context, id int64) (Message, error) {
	var (
		m    Message
		file pgtype.UUID
	)
	sql := `select id, sender_id, recipient_id, text, file_id, read, created_at, modified_at
			  from messages
			 where id = $1 and not is_removed`
	err := s.db.QueryRow(ctx, sql, id).
		Scan(&m.ID, &m.Sender, &m.Recipient, &m.Text, &file, &m.Read, &m.CreatedAt, &m.ModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrMessageNotExist
		}
		return Message{}, err
	}

	if file.Status == pgtype.Present {
		fid := uuid.UUID(file.Bytes)
		m.File = &fid
	}

	return m, nil
}

// MarkMessageRead sets read flag of the message, marking already read message is a no-op
func (s *Store) MarkMessageRead(ctx context.Context, id int64) error {
	sql := "update messages set read = true, modified_at = $2 where id = $1 and not read"
	tag, err := s.db.Exec(ctx, sql, id, time.Now())
	if err != nil {
		return err
	}

	s.logger.Debugf("Marked message (id: %d) as read, %d rows affected", id, tag.RowsAffected())

	return nil
}

// UnreadCount returns the number of unread messages sent by sender to recipient
func (s *Store) UnreadCount(ctx context.Context, sender, recipient int64) (int, error) {
	var n int
	sql := `select count(*)
			  from messages
			 where sender_id = $1 and recipient_id = $2 and not read and not is_removed`
	if err := s.db.QueryRow(ctx, sql, sender, recipient).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

func uuidArg(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{Status: pgtype.Null}
	}
	return pgtype.UUID{Bytes: *id, Status: pgtype.Present}
}
