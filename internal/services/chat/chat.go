// Package chat handles chat sessions and their messages
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/erenbertr/op3-sub001/pkg/logger"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

var (
	// ErrSessionNotFound is returned when no chat session matches.
	ErrSessionNotFound = errors.New("chat session not found")

	// ErrMessageNotFound is returned when no message matches.
	ErrMessageNotFound = errors.New("message not found")
)

// SessionsTable describes the chat_sessions table.
var SessionsTable = &storage.TableDefinition{
	Name: "chat_sessions",
	Columns: []storage.ColumnDef{
		{Name: "id", Type: storage.TypeString, PrimaryKey: true},
		{Name: "workspace_id", Type: storage.TypeString},
		{Name: "user_id", Type: storage.TypeString},
		{Name: "title", Type: storage.TypeString},
		{Name: "created_at", Type: storage.TypeTimestamp},
		{Name: "updated_at", Type: storage.TypeTimestamp},
	},
}

// MessagesTable describes the chat_messages table. The seq column orders
// messages within a session; timestamps alone cannot, because consecutive
// messages can share one.
var MessagesTable = &storage.TableDefinition{
	Name: "chat_messages",
	Columns: []storage.ColumnDef{
		{Name: "id", Type: storage.TypeString, PrimaryKey: true},
		{Name: "session_id", Type: storage.TypeString},
		{Name: "seq", Type: storage.TypeInt},
		{Name: "role", Type: storage.TypeString},
		{Name: "content", Type: storage.TypeText},
		{Name: "metadata", Type: storage.TypeJSON, Nullable: true},
		{Name: "created_at", Type: storage.TypeTimestamp},
	},
	UniqueConstraints: []storage.UniqueConstraint{
		{Name: "chat_messages_session_seq_key", Columns: []string{"session_id", "seq"}},
	},
}

// Service handles chat session and message operations
type Service struct {
	store  *storage.Manager
	logger *logger.Logger
}

// NewService creates a new chat service
func NewService(store *storage.Manager, logger *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Session represents a chat session
type Session struct {
	ID          string
	WorkspaceID string
	UserID      string
	Title       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message represents one message in a session
type Message struct {
	ID        string
	SessionID string
	Seq       int64
	Role      string
	Content   string
	Metadata  interface{}
	CreatedAt time.Time
}

// CreateSession starts a new chat session in a workspace.
func (s *Service) CreateSession(ctx context.Context, workspaceID, userID, title string) (*Session, error) {
	s.logger.Infof("Creating chat session in workspace %s", workspaceID)

	now := time.Now().UTC()
	record, err := s.store.Insert(ctx, SessionsTable, storage.Record{
		"id":           uuid.NewString(),
		"workspace_id": workspaceID,
		"user_id":      userID,
		"title":        title,
		"created_at":   now,
		"updated_at":   now,
	})
	if err != nil {
		s.logger.Errorf("Failed to create chat session: %v", err)
		return nil, err
	}

	return recordToSession(record), nil
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(ctx context.Context, id string) (*Session, error) {
	record, err := s.store.FindOne(ctx, SessionsTable, storage.Predicate{"id": id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrSessionNotFound
	}
	return recordToSession(record), nil
}

// ListSessions returns a workspace's sessions, most recently active first.
func (s *Service) ListSessions(ctx context.Context, workspaceID string) ([]*Session, error) {
	records, err := s.store.FindMany(ctx, SessionsTable,
		storage.Predicate{"workspace_id": workspaceID},
		&storage.FindOptions{OrderBy: []storage.Order{{Column: "updated_at", Descending: true}}})
	if err != nil {
		return nil, err
	}

	sessions := make([]*Session, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, recordToSession(record))
	}
	return sessions, nil
}

// RenameSession changes a session's title.
func (s *Service) RenameSession(ctx context.Context, id, title string) error {
	_, err := s.store.Update(ctx, SessionsTable, storage.Predicate{"id": id}, storage.Record{
		"title":      title,
		"updated_at": time.Now().UTC(),
	})
	if storage.IsNotFound(err) {
		return ErrSessionNotFound
	}
	return err
}

// DeleteSession removes a session and all of its messages.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	s.logger.Infof("Deleting chat session: %s", id)

	// Messages first, so a crash between the two deletes leaves no
	// messages pointing at a missing session.
	if _, err := s.store.Delete(ctx, MessagesTable, storage.Predicate{"session_id": id}); err != nil && !storage.IsNotFound(err) {
		return err
	}

	_, err := s.store.Delete(ctx, SessionsTable, storage.Predicate{"id": id})
	if storage.IsNotFound(err) {
		return ErrSessionNotFound
	}
	return err
}

// AppendMessage adds a message to the end of a session and bumps the
// session's activity timestamp.
func (s *Service) AppendMessage(ctx context.Context, sessionID, role, content string, metadata interface{}) (*Message, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	seq, err := s.nextSeq(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record, err := s.store.Insert(ctx, MessagesTable, storage.Record{
		"id":         uuid.NewString(),
		"session_id": sessionID,
		"seq":        seq,
		"role":       role,
		"content":    content,
		"metadata":   metadata,
		"created_at": now,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Update(ctx, SessionsTable, storage.Predicate{"id": sessionID},
		storage.Record{"updated_at": now}); err != nil && !storage.IsNotFound(err) {
		return nil, err
	}

	return recordToMessage(record), nil
}

// ListMessages returns a session's messages in order. A limit of zero
// returns all of them.
func (s *Service) ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	records, err := s.store.FindMany(ctx, MessagesTable,
		storage.Predicate{"session_id": sessionID},
		&storage.FindOptions{
			OrderBy: []storage.Order{{Column: "seq"}},
			Limit:   limit,
		})
	if err != nil {
		return nil, err
	}

	messages := make([]*Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, recordToMessage(record))
	}
	return messages, nil
}

// DeleteMessage removes a single message.
func (s *Service) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.store.Delete(ctx, MessagesTable, storage.Predicate{"id": id})
	if storage.IsNotFound(err) {
		return ErrMessageNotFound
	}
	return err
}

// nextSeq returns the next sequence number for a session. The unique
// (session_id, seq) constraint catches two writers racing for the same
// slot; the loser gets a ConstraintError.
func (s *Service) nextSeq(ctx context.Context, sessionID string) (int64, error) {
	last, err := s.store.FindMany(ctx, MessagesTable,
		storage.Predicate{"session_id": sessionID},
		&storage.FindOptions{
			OrderBy: []storage.Order{{Column: "seq", Descending: true}},
			Limit:   1,
		})
	if err != nil {
		return 0, err
	}
	if len(last) == 0 {
		return 1, nil
	}
	seq, _ := last[0]["seq"].(int64)
	return seq + 1, nil
}

func recordToSession(record storage.Record) *Session {
	session := &Session{}
	session.ID, _ = record["id"].(string)
	session.WorkspaceID, _ = record["workspace_id"].(string)
	session.UserID, _ = record["user_id"].(string)
	session.Title, _ = record["title"].(string)
	if created, ok := record["created_at"].(time.Time); ok {
		session.CreatedAt = created
	}
	if updated, ok := record["updated_at"].(time.Time); ok {
		session.UpdatedAt = updated
	}
	return session
}

func recordToMessage(record storage.Record) *Message {
	message := &Message{}
	message.ID, _ = record["id"].(string)
	message.SessionID, _ = record["session_id"].(string)
	message.Seq, _ = record["seq"].(int64)
	message.Role, _ = record["role"].(string)
	message.Content, _ = record["content"].(string)
	message.Metadata = record["metadata"]
	if created, ok := record["created_at"].(time.Time); ok {
		message.CreatedAt = created
	}
	return message
}
