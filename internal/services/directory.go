package services

import (
	"context"
	"strings"

	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
)

// ProfileDirectory defines the read/update/soft-delete operations over one
// role's joined roster.
type ProfileDirectory interface {
	Role() types.Role
	List(ctx context.Context) ([]types.Profile, error)
	GetByID(ctx context.Context, id int) (types.Profile, error)
	GetByUserID(ctx context.Context, userID int) (types.Profile, error)
	ListByDistrict(ctx context.Context, district string) ([]types.Profile, error)
	ListByTaluka(ctx context.Context, taluka string) ([]types.Profile, error)
	ListByVillage(ctx context.Context, village string) ([]types.Profile, error)
	ListByAssignedArea(ctx context.Context, area string) ([]types.Profile, error)
	ListByRegisteredBy(ctx context.Context, registeredBy string) ([]types.Profile, error)
	Search(ctx context.Context, query string) ([]types.Profile, error)
	Stats(ctx context.Context) (types.ProfileStats, error)
	CountByTaluka(ctx context.Context) ([]types.FieldCount, error)
	CountByVillage(ctx context.Context) ([]types.FieldCount, error)
	UpdateWithIdentity(ctx context.Context, profileID int, contact store.ContactPatch, profile store.ProfilePatch) error
	SoftDeleteByID(ctx context.Context, profileID int) error
}

// DirectoryService exposes one role's roster. Every read filters to active
// accounts; soft-deleted members drop out of all of them.
type DirectoryService struct {
	directory ProfileDirectory
}

func NewDirectoryService(directory ProfileDirectory) *DirectoryService {
	return &DirectoryService{directory: directory}
}

func (s *DirectoryService) Role() types.Role {
	return s.directory.Role()
}

func (s *DirectoryService) List(ctx context.Context) ([]types.Profile, error) {
	return s.directory.List(ctx)
}

func (s *DirectoryService) GetByID(ctx context.Context, id int) (types.Profile, error) {
	return s.directory.GetByID(ctx, id)
}

func (s *DirectoryService) GetByUserID(ctx context.Context, userID int) (types.Profile, error) {
	return s.directory.GetByUserID(ctx, userID)
}

func (s *DirectoryService) ListByDistrict(ctx context.Context, district string) ([]types.Profile, error) {
	return s.directory.ListByDistrict(ctx, district)
}

func (s *DirectoryService) ListByTaluka(ctx context.Context, taluka string) ([]types.Profile, error) {
	return s.directory.ListByTaluka(ctx, taluka)
}

func (s *DirectoryService) ListByVillage(ctx context.Context, village string) ([]types.Profile, error) {
	return s.directory.ListByVillage(ctx, village)
}

func (s *DirectoryService) ListByAssignedArea(ctx context.Context, area string) ([]types.Profile, error) {
	return s.directory.ListByAssignedArea(ctx, area)
}

func (s *DirectoryService) ListByRegisteredBy(ctx context.Context, registeredBy string) ([]types.Profile, error) {
	return s.directory.ListByRegisteredBy(ctx, registeredBy)
}

func (s *DirectoryService) Search(ctx context.Context, query string) ([]types.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationError("Search query is required")
	}
	return s.directory.Search(ctx, query)
}

func (s *DirectoryService) Stats(ctx context.Context) (types.ProfileStats, error) {
	return s.directory.Stats(ctx)
}

func (s *DirectoryService) CountByTaluka(ctx context.Context) ([]types.FieldCount, error) {
	return s.directory.CountByTaluka(ctx)
}

func (s *DirectoryService) CountByVillage(ctx context.Context) ([]types.FieldCount, error) {
	return s.directory.CountByVillage(ctx)
}

// Update applies the two partial updates atomically. Only fields present in
// the patches are touched; an all-nil update still verifies the id exists.
func (s *DirectoryService) Update(ctx context.Context, profileID int, contact store.ContactPatch, profile store.ProfilePatch) error {
	return s.directory.UpdateWithIdentity(ctx, profileID, contact, profile)
}

// Delete is a soft delete: the account is deactivated and the profile row
// is retained for audit.
func (s *DirectoryService) Delete(ctx context.Context, profileID int) error {
	return s.directory.SoftDeleteByID(ctx, profileID)
}
