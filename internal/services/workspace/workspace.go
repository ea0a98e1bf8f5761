// Package workspace handles workspace and workspace group operations
package workspace

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/erenbertr/op3-sub001/pkg/logger"
	"github.com/erenbertr/op3-sub001/pkg/storage"
)

var (
	// ErrNameTaken is returned when a user already has a workspace or
	// group with the requested name.
	ErrNameTaken = errors.New("name is already in use")

	// ErrWorkspaceNotFound is returned when no workspace matches.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrGroupNotFound is returned when no workspace group matches.
	ErrGroupNotFound = errors.New("workspace group not found")
)

// Table describes the workspaces table.
var Table = &storage.TableDefinition{
	Name: "workspaces",
	Columns: []storage.ColumnDef{
		{Name: "id", Type: storage.TypeString, PrimaryKey: true},
		{Name: "user_id", Type: storage.TypeString},
		{Name: "name", Type: storage.TypeString},
		{Name: "group_id", Type: storage.TypeString, Nullable: true},
		{Name: "sort_order", Type: storage.TypeInt},
		{Name: "created_at", Type: storage.TypeTimestamp},
	},
	UniqueConstraints: []storage.UniqueConstraint{
		{Name: "workspaces_user_name_key", Columns: []string{"user_id", "name"}},
	},
}

// GroupsTable describes the workspace_groups table.
var GroupsTable = &storage.TableDefinition{
	Name: "workspace_groups",
	Columns: []storage.ColumnDef{
		{Name: "id", Type: storage.TypeString, PrimaryKey: true},
		{Name: "user_id", Type: storage.TypeString},
		{Name: "name", Type: storage.TypeString},
		{Name: "sort_order", Type: storage.TypeInt},
		{Name: "created_at", Type: storage.TypeTimestamp},
	},
	UniqueConstraints: []storage.UniqueConstraint{
		{Name: "workspace_groups_user_name_key", Columns: []string{"user_id", "name"}},
	},
}

// Service handles workspace-related operations
type Service struct {
	store  *storage.Manager
	logger *logger.Logger
}

// NewService creates a new workspace service
func NewService(store *storage.Manager, logger *logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Workspace represents a workspace in the system
type Workspace struct {
	ID        string
	UserID    string
	Name      string
	GroupID   string
	SortOrder int64
	CreatedAt time.Time
}

// Group represents a workspace group
type Group struct {
	ID        string
	UserID    string
	Name      string
	SortOrder int64
	CreatedAt time.Time
}

// Create creates a new workspace for a user. The new workspace sorts after
// the user's existing ones.
func (s *Service) Create(ctx context.Context, userID, name string) (*Workspace, error) {
	s.logger.Infof("Creating workspace for user %s: %s", userID, name)

	existing, err := s.store.FindMany(ctx, Table, storage.Predicate{"user_id": userID}, nil)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Insert(ctx, Table, storage.Record{
		"id":         uuid.NewString(),
		"user_id":    userID,
		"name":       name,
		"group_id":   nil,
		"sort_order": int64(len(existing)),
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		if storage.IsConstraintViolation(err) {
			return nil, ErrNameTaken
		}
		s.logger.Errorf("Failed to create workspace: %v", err)
		return nil, err
	}

	return recordToWorkspace(record), nil
}

// Get retrieves a workspace by ID
func (s *Service) Get(ctx context.Context, id string) (*Workspace, error) {
	record, err := s.store.FindOne(ctx, Table, storage.Predicate{"id": id})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrWorkspaceNotFound
	}
	return recordToWorkspace(record), nil
}

// List returns a user's workspaces in sort order.
func (s *Service) List(ctx context.Context, userID string) ([]*Workspace, error) {
	records, err := s.store.FindMany(ctx, Table,
		storage.Predicate{"user_id": userID},
		&storage.FindOptions{OrderBy: []storage.Order{{Column: "sort_order"}}})
	if err != nil {
		return nil, err
	}

	workspaces := make([]*Workspace, 0, len(records))
	for _, record := range records {
		workspaces = append(workspaces, recordToWorkspace(record))
	}
	return workspaces, nil
}

// Rename changes a workspace's name.
func (s *Service) Rename(ctx context.Context, id, name string) error {
	_, err := s.store.Update(ctx, Table, storage.Predicate{"id": id}, storage.Record{"name": name})
	if storage.IsNotFound(err) {
		return ErrWorkspaceNotFound
	}
	if storage.IsConstraintViolation(err) {
		return ErrNameTaken
	}
	return err
}

// MoveToGroup places a workspace in a group. An empty groupID removes it
// from its group.
func (s *Service) MoveToGroup(ctx context.Context, id, groupID string) error {
	var value interface{}
	if groupID != "" {
		group, err := s.store.FindOne(ctx, GroupsTable, storage.Predicate{"id": groupID})
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}
		value = groupID
	}

	_, err := s.store.Update(ctx, Table, storage.Predicate{"id": id}, storage.Record{"group_id": value})
	if storage.IsNotFound(err) {
		return ErrWorkspaceNotFound
	}
	return err
}

// SetSortOrder moves a workspace to a new position.
func (s *Service) SetSortOrder(ctx context.Context, id string, order int64) error {
	_, err := s.store.Update(ctx, Table, storage.Predicate{"id": id}, storage.Record{"sort_order": order})
	if storage.IsNotFound(err) {
		return ErrWorkspaceNotFound
	}
	return err
}

// Delete removes a workspace.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.logger.Infof("Deleting workspace: %s", id)
	_, err := s.store.Delete(ctx, Table, storage.Predicate{"id": id})
	if storage.IsNotFound(err) {
		return ErrWorkspaceNotFound
	}
	return err
}

// CreateGroup creates a new workspace group for a user.
func (s *Service) CreateGroup(ctx context.Context, userID, name string) (*Group, error) {
	existing, err := s.store.FindMany(ctx, GroupsTable, storage.Predicate{"user_id": userID}, nil)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Insert(ctx, GroupsTable, storage.Record{
		"id":         uuid.NewString(),
		"user_id":    userID,
		"name":       name,
		"sort_order": int64(len(existing)),
		"created_at": time.Now().UTC(),
	})
	if err != nil {
		if storage.IsConstraintViolation(err) {
			return nil, ErrNameTaken
		}
		return nil, err
	}

	return recordToGroup(record), nil
}

// ListGroups returns a user's workspace groups in sort order.
func (s *Service) ListGroups(ctx context.Context, userID string) ([]*Group, error) {
	records, err := s.store.FindMany(ctx, GroupsTable,
		storage.Predicate{"user_id": userID},
		&storage.FindOptions{OrderBy: []storage.Order{{Column: "sort_order"}}})
	if err != nil {
		return nil, err
	}

	groups := make([]*Group, 0, len(records))
	for _, record := range records {
		groups = append(groups, recordToGroup(record))
	}
	return groups, nil
}

// DeleteGroup removes a group and detaches its workspaces.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	if _, err := s.store.Update(ctx, Table, storage.Predicate{"group_id": id},
		storage.Record{"group_id": nil}); err != nil && !storage.IsNotFound(err) {
		return err
	}

	_, err := s.store.Delete(ctx, GroupsTable, storage.Predicate{"id": id})
	if storage.IsNotFound(err) {
		return ErrGroupNotFound
	}
	return err
}

func recordToWorkspace(record storage.Record) *Workspace {
	workspace := &Workspace{}
	workspace.ID, _ = record["id"].(string)
	workspace.UserID, _ = record["user_id"].(string)
	workspace.Name, _ = record["name"].(string)
	workspace.GroupID, _ = record["group_id"].(string)
	workspace.SortOrder, _ = record["sort_order"].(int64)
	if created, ok := record["created_at"].(time.Time); ok {
		workspace.CreatedAt = created
	}
	return workspace
}

func recordToGroup(record storage.Record) *Group {
	group := &Group{}
	group.ID, _ = record["id"].(string)
	group.UserID, _ = record["user_id"].(string)
	group.Name, _ = record["name"].(string)
	group.SortOrder, _ = record["sort_order"].(int64)
	if created, ok := record["created_at"].(time.Time); ok {
		group.CreatedAt = created
	}
	return group
}
