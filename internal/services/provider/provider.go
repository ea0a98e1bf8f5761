// Package provider manages AI provider credentials and per-provider model
// configurations.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/erenbertr/op3-sub001/pkg/logger"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

var (
	// ErrKeyNotFound is returned when no provider key matches the lookup.
	ErrKeyNotFound = errors.New("provider key not found")

	// ErrModelNotFound is returned when no model configuration matches.
	ErrModelNotFound = errors.New("model configuration not found")

	// ErrModelExists is returned when a model is already configured for
	// the same key.
	ErrModelExists = errors.New("model is already configured for this key")
)

// Encryptor protects stored API keys. The concrete algorithm lives behind
// this interface so it can change without touching stored-data handling.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// KeysTable describes the provider_keys table. One row per stored
// credential; the API key column holds ciphertext only.
var KeysTable = &storage.TableDefinition{
	Name: "provider_keys",
	Columns: []storage.ColumnDef{
		{Name: "id", Type: storage.TypeString, PrimaryKey: true},
		{Name: "provider", Type: storage.TypeString},
		{Name: "name", Type: storage.TypeString},
		{Name: "api_key", Type: storage.TypeText},
		{Name: "base_url", Type: storage.TypeString, Nullable: true},
		{Name: "is_active", Type: storage.TypeBool},
		{Name: "created_at", Type: storage.TypeTimestamp},
		{Name: "updated_at", Type: storage.TypeTimestamp},
	},
	UniqueConstraints: []storage.UniqueConstraint{
		{Name: "provider_keys_provider_name_key", Columns: []string{"provider", "name"}},
	},
}

// ModelsTable describes the model_configs table: which models are enabled
// under which key. Every provider shares this one definition.
var ModelsTable = &storage.TableDefinition{
	Name: "model_configs",
	Columns: []storage.ColumnDef{
		{Name: "id", Type: storage.TypeString, PrimaryKey: true},
		{Name: "key_id", Type: storage.TypeString},
		{Name: "model_id", Type: storage.TypeString},
		{Name: "custom_name", Type: storage.TypeString, Nullable: true},
		{Name: "is_active", Type: storage.TypeBool},
		{Name: "created_at", Type: storage.TypeTimestamp},
	},
	UniqueConstraints: []storage.UniqueConstraint{
		{Name: "model_configs_key_model_key", Columns: []string{"key_id", "model_id"}},
	},
}

// Service handles provider credential and model configuration operations
type Service struct {
	store     *storage.Manager
	logger    *logger.Logger
	encryptor Encryptor
}

// NewService creates a new provider service
func NewService(store *storage.Manager, logger *logger.Logger, encryptor Encryptor) *Service {
	return &Service{
		store:     store,
		logger:    logger,
		encryptor: encryptor,
	}
}

// Key represents a stored provider credential. APIKey holds the decrypted
// value and is never persisted in the clear.
type Key struct {
	ID        string
	Provider  string
	Name      string
	APIKey    string
	BaseURL   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ModelConfig represents one enabled model under a provider key.
type ModelConfig struct {
	ID         string
	KeyID      string
	ModelID    string
	CustomName string
	IsActive   bool
	CreatedAt  time.Time
}

// SaveKey stores a provider credential, replacing an existing credential
// with the same provider and name.
func (s *Service) SaveKey(ctx context.Context, provider, name, apiKey, baseURL string) (*Key, error) {
	s.logger.Infof("Saving provider key: provider=%s name=%s", provider, name)

	encrypted, err := s.encryptor.Encrypt(apiKey)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	createdAt := now

	// Re-saving must keep the existing row identity, or model
	// configurations referencing the key would be orphaned.
	existing, err := s.store.FindOne(ctx, KeysTable, storage.Predicate{"provider": provider, "name": name})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		id, _ = existing["id"].(string)
		if created, ok := existing["created_at"].(time.Time); ok {
			createdAt = created
		}
	}

	record, err := s.store.Upsert(ctx, KeysTable,
		storage.Predicate{"provider": provider, "name": name},
		storage.Record{
			"id":         id,
			"api_key":    encrypted,
			"base_url":   baseURL,
			"is_active":  true,
			"created_at": createdAt,
			"updated_at": now,
		})
	if err != nil {
		s.logger.Errorf("Failed to save provider key: %v", err)
		return nil, err
	}

	return s.recordToKey(record)
}

// GetKey retrieves a credential by ID with the API key decrypted.
func (s *Service) GetKey(ctx context.Context, id string) (*Key, error) {
	record, err := s.store.FindOne(ctx, KeysTable, storage.Predicate{"id": id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrKeyNotFound
	}
	return s.recordToKey(record)
}

// ListKeys returns all credentials for a provider, newest first. API keys
// stay encrypted; use GetKey when the plaintext is needed.
func (s *Service) ListKeys(ctx context.Context, provider string) ([]*Key, error) {
	records, err := s.store.FindMany(ctx, KeysTable,
		storage.Predicate{"provider": provider},
		&storage.FindOptions{OrderBy: []storage.Order{{Column: "created_at", Descending: true}}})
	if err != nil {
		return nil, err
	}

	keys := make([]*Key, 0, len(records))
	for _, record := range records {
		key := recordToKeyShallow(record)
		keys = append(keys, key)
	}
	return keys, nil
}

// SetKeyActive enables or disables a credential.
func (s *Service) SetKeyActive(ctx context.Context, id string, active bool) error {
	_, err := s.store.Update(ctx, KeysTable, storage.Predicate{"id": id}, storage.Record{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	})
	if storage.IsNotFound(err) {
		return ErrKeyNotFound
	}
	return err
}

// DeleteKey removes a credential and every model configured under it.
func (s *Service) DeleteKey(ctx context.Context, id string) error {
	s.logger.Infof("Deleting provider key: %s", id)

	// Models first, so a crash between the two deletes leaves no models
	// pointing at a missing key.
	if _, err := s.store.Delete(ctx, ModelsTable, storage.Predicate{"key_id": id}); err != nil && !storage.IsNotFound(err) {
		return err
	}

	_, err := s.store.Delete(ctx, KeysTable, storage.Predicate{"id": id})
	if storage.IsNotFound(err) {
		return ErrKeyNotFound
	}
	return err
}

// AddModel enables a model under a key. Adding the same model twice for
// one key fails with ErrModelExists.
func (s *Service) AddModel(ctx context.Context, keyID, modelID, customName string) (*ModelConfig, error) {
	if _, err := s.GetKey(ctx, keyID); err != nil {
		return nil, err
	}

	record, err := s.store.Insert(ctx, ModelsTable, storage.Record{
		"id":          uuid.NewString(),
		"key_id":      keyID,
		"model_id":    modelID,
		"custom_name": customName,
		"is_active":   true,
		"created_at":  time.Now().UTC(),
	})
	if err != nil {
		if storage.IsConstraintViolation(err) {
			return nil, ErrModelExists
		}
		return nil, err
	}

	return recordToModel(record), nil
}

// ListModels returns the model configurations under a key in the order
// they were added.
func (s *Service) ListModels(ctx context.Context, keyID string) ([]*ModelConfig, error) {
	records, err := s.store.FindMany(ctx, ModelsTable,
		storage.Predicate{"key_id": keyID},
		&storage.FindOptions{OrderBy: []storage.Order{{Column: "created_at"}}})
	if err != nil {
		return nil, err
	}

	models := make([]*ModelConfig, 0, len(records))
	for _, record := range records {
		models = append(models, recordToModel(record))
	}
	return models, nil
}

// RenameModel sets the display name of a model configuration.
func (s *Service) RenameModel(ctx context.Context, id, customName string) error {
	_, err := s.store.Update(ctx, ModelsTable, storage.Predicate{"id": id}, storage.Record{
		"custom_name": customName,
	})
	if storage.IsNotFound(err) {
		return ErrModelNotFound
	}
	return err
}

// SetModelActive enables or disables a model configuration.
func (s *Service) SetModelActive(ctx context.Context, id string, active bool) error {
	_, err := s.store.Update(ctx, ModelsTable, storage.Predicate{"id": id}, storage.Record{
		"is_active": active,
	})
	if storage.IsNotFound(err) {
		return ErrModelNotFound
	}
	return err
}

// RemoveModel deletes a model configuration.
func (s *Service) RemoveModel(ctx context.Context, id string) error {
	_, err := s.store.Delete(ctx, ModelsTable, storage.Predicate{"id": id})
	if storage.IsNotFound(err) {
		return ErrModelNotFound
	}
	return err
}

func (s *Service) recordToKey(record storage.Record) (*Key, error) {
	key := recordToKeyShallow(record)
	if key.APIKey != "" {
		decrypted, err := s.encryptor.Decrypt(key.APIKey)
		if err != nil {
			return nil, err
		}
		key.APIKey = decrypted
	}
	return key, nil
}

func recordToKeyShallow(record storage.Record) *Key {
	key := &Key{}
	key.ID, _ = record["id"].(string)
	key.Provider, _ = record["provider"].(string)
	key.Name, _ = record["name"].(string)
	key.APIKey, _ = record["api_key"].(string)
	key.BaseURL, _ = record["base_url"].(string)
	key.IsActive, _ = record["is_active"].(bool)
	if created, ok := record["created_at"].(time.Time); ok {
		key.CreatedAt = created
	}
	if updated, ok := record["updated_at"].(time.Time); ok {
		key.UpdatedAt = updated
	}
	return key
}

func recordToModel(record storage.Record) *ModelConfig {
	model := &ModelConfig{}
	model.ID, _ = record["id"].(string)
	model.KeyID, _ = record["key_id"].(string)
	model.ModelID, _ = record["model_id"].(string)
	model.CustomName, _ = record["custom_name"].(string)
	model.IsActive, _ = record["is_active"].(bool)
	if created, ok := record["created_at"].(time.Time); ok {
		model.CreatedAt = created
	}
	return model
}
