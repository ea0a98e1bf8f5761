// Package user handles user account operations
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/erenbertr/op3-sub001/pkg/logger"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

var (
	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email is already registered")

	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned when authentication fails. The
	// caller cannot tell a wrong password from an unknown email.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Table describes the users table.
var Table = &storage.TableDefinition{
	Name: "users",
	Columns: []storage.ColumnDef{
		{Name: "id", Type: storage.TypeString, PrimaryKey: true},
		{Name: "email", Type: storage.TypeString},
		{Name: "password_hash", Type: storage.TypeText},
		{Name: "is_active", Type: storage.TypeBool},
		{Name: "created_at", Type: storage.TypeTimestamp},
		{Name: "updated_at", Type: storage.TypeTimestamp},
	},
	UniqueConstraints: []storage.UniqueConstraint{
		{Name: "users_email_key", Columns: []string{"email"}},
	},
}

// Service handles user account operations
type Service struct {
	store  *storage.Manager
	logger *logger.Logger
}

// NewService creates a new user service
func NewService(store *storage.Manager, logger *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// User represents a user account
type User struct {
	ID        string
	Email     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Register creates a new user account with a hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	s.logger.Infof("Registering user: %s", email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	record, err := s.store.Insert(ctx, Table, storage.Record{
		"id":            uuid.NewString(),
		"email":         email,
		"password_hash": string(hash),
		"is_active":     true,
		"created_at":    now,
		"updated_at":    now,
	})
	if err != nil {
		if storage.IsConstraintViolation(err) {
			return nil, ErrEmailTaken
		}
		s.logger.Errorf("Failed to register user: %v", err)
		return nil, err
	}

	return recordToUser(record), nil
}

// Authenticate verifies an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	record, err := s.store.FindOne(ctx, Table, storage.Predicate{"email": email})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrInvalidCredentials
	}

	hash, _ := record["password_hash"].(string)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return recordToUser(record), nil
}

// Get retrieves a user by ID
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	record, err := s.store.FindOne(ctx, Table, storage.Predicate{"id": id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrUserNotFound
	}
	return recordToUser(record), nil
}

// GetByEmail retrieves a user by email
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	record, err := s.store.FindOne(ctx, Table, storage.Predicate{"email": email})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrUserNotFound
	}
	return recordToUser(record), nil
}

// ChangePassword replaces the stored password hash.
func (s *Service) ChangePassword(ctx context.Context, id, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.store.Update(ctx, Table, storage.Predicate{"id": id}, storage.Record{
		"password_hash": string(hash),
		"updated_at":    time.Now().UTC(),
	})
	if storage.IsNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

// SetActive enables or disables a user account.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	_, err := s.store.Update(ctx, Table, storage.Predicate{"id": id}, storage.Record{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	})
	if storage.IsNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

// Delete removes a user account.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.logger.Infof("Deleting user: %s", id)
	_, err := s.store.Delete(ctx, Table, storage.Predicate{"id": id})
	if storage.IsNotFound(err) {
		return ErrUserNotFound
	}
	return err
}

func recordToUser(record storage.Record) *User {
	user := &User{}
	user.ID, _ = record["id"].(string)
	user.Email, _ = record["email"].(string)
	user.IsActive, _ = record["is_active"].(bool)
	if created, ok := record["created_at"].(time.Time); ok {
		user.CreatedAt = created
	}
	if updated, ok := record["updated_at"].(time.Time); ok {
		user.UpdatedAt = updated
	}
	return user
}
