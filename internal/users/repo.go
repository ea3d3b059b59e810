package users

import (
	"context"

	"github.com/angelmondragon/pizzeria-backend/pkg/db/models"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
	"github.com/angelmondragon/pizzeria-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user together with its role grants.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Roles", orderRoles).
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user and its grants.
func (r *Repository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Roles", orderRoles).
		First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTakenByOther reports whether a user other than excludeID owns email.
func (r *Repository) EmailTakenByOther(ctx context.Context, email string, excludeID uint64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateProfile writes the provided columns. Empty maps are a no-op.
func (r *Repository) UpdateProfile(ctx context.Context, id uint64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes the user's grants and then the user row.
func (r *Repository) Delete(ctx context.Context, id uint64) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error
}

// List returns one page of users filtered by name and whether another page exists.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.User, bool, error) {
	params = params.Normalize()
	var rows []models.User
	if err := r.db.WithContext(ctx).
		Scopes(pagination.NameScope("name", params.Name), pagination.PageScope("id", params)).
		Preload("Roles", orderRoles).
		Find(&rows).Error; err != nil {
		return nil, false, err
	}
	rows, more := pagination.Trim(rows, params.Limit)
	return rows, more, nil
}

// AddGrant attaches a role grant to an existing user.
func (r *Repository) AddGrant(ctx context.Context, userID uint64, role enums.Role, objectID uint64) error {
	grant := models.UserRole{UserID: userID, Role: role, ObjectID: objectID}
	return r.db.WithContext(ctx).Create(&grant).Error
}

// UsersByScope groups the holders of role by grant scope for every id in objectIDs.
func (r *Repository) UsersByScope(ctx context.Context, role enums.Role, objectIDs []uint64) (map[uint64][]models.User, error) {
	out := make(map[uint64][]models.User, len(objectIDs))
	if len(objectIDs) == 0 {
		return out, nil
	}

	var grants []models.UserRole
	if err := r.db.WithContext(ctx).
		Where("role = ? AND object_id IN ?", role, objectIDs).
		Order("id ASC").
		Find(&grants).Error; err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return out, nil
	}

	userIDs := make([]uint64, 0, len(grants))
	for _, g := range grants {
		userIDs = append(userIDs, g.UserID)
	}
	var rows []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint64]models.User, len(rows))
	for _, u := range rows {
		byID[u.ID] = u
	}
	for _, g := range grants {
		if u, ok := byID[g.UserID]; ok {
			out[g.ObjectID] = append(out[g.ObjectID], u)
		}
	}
	return out, nil
}

// ScopesForUser lists the object ids of the user's grants for role.
func (r *Repository) ScopesForUser(ctx context.Context, userID uint64, role enums.Role) ([]uint64, error) {
	var ids []uint64
	if err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Order("object_id ASC").
		Pluck("object_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteGrantsByScope removes every grant of role scoped to objectID.
func (r *Repository) DeleteGrantsByScope(ctx context.Context, role enums.Role, objectID uint64) error {
	return r.db.WithContext(ctx).
		Where("role = ? AND object_id = ?", role, objectID).
		Delete(&models.UserRole{}).Error
}

func orderRoles(db *gorm.DB) *gorm.DB {
	return db.Order("user_roles.id ASC")
}
