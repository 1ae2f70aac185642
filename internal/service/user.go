package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/foodgram/foodgram/backend/internal/logging"
	"github.com/foodgram/foodgram/backend/internal/middleware"
	"github.com/foodgram/foodgram/backend/internal/models"
	"github.com/foodgram/foodgram/backend/internal/storage"
	"github.com/foodgram/foodgram/backend/internal/types"
)

// UserService handles registration and profile operations
type UserService struct {
	db    *gorm.DB
	media storage.Storage
}

func NewUserService(db *gorm.DB, media storage.Storage) *UserService {
	return &UserService{db: db, media: media}
}

// Register creates a regular user
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	verr := &ValidationError{}
	if err := models.ValidateUsername(req.Username); err != nil {
		var fe *models.FieldError
		if errors.As(err, &fe) {
			verr.Add(fe.Field, fe.Message)
		}
	}
	if err := s.checkUnique(ctx, 0, req.Email, req.Username, verr); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("username", "A user with that username or email already exists.")
		}
		return nil, translateError(err, "user")
	}

	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("User registered")
	return &user, nil
}

// checkUnique flags email or username values already held by another user
func (s *UserService) checkUnique(ctx context.Context, selfID uint, email, username string, verr *ValidationError) error {
	db := s.db.WithContext(ctx)
	if email != "" {
		var count int64
		if err := db.Model(&models.User{}).Where("LOWER(email) = ? AND id <> ?", strings.ToLower(email), selfID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			verr.Add("email", "A user with that email already exists.")
		}
	}
	if username != "" {
		var count int64
		if err := db.Model(&models.User{}).Where("username = ? AND id <> ?", username, selfID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if count > 0 {
			verr.Add("username", "A user with that username already exists.")
		}
	}
	return nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err, "user")
	}
	return &user, nil
}

// List returns a page of users ordered by username
func (s *UserService) List(ctx context.Context, page Pagination) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("username ASC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// SubscribedTo reports which of authorIDs the caller follows
func (s *UserService) SubscribedTo(ctx context.Context, caller middleware.Caller, authorIDs []uint) (map[uint]bool, error) {
	return subscribedAuthors(ctx, s.db, caller, authorIDs)
}

func subscribedAuthors(ctx context.Context, db *gorm.DB, caller middleware.Caller, authorIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if caller.IsAnonymous() || len(authorIDs) == 0 {
		return result, nil
	}

	var ids []uint
	err := db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", caller.UserID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// UpdateMe applies a partial update to the caller's own account. Role
// changes are honoured only for admins.
func (s *UserService) UpdateMe(ctx context.Context, caller middleware.Caller, req *types.UpdateMeRequest) (*models.User, error) {
	if caller.IsAnonymous() {
		return nil, ErrUnauthenticated
	}
	user, err := s.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	updates := map[string]interface{}{}
	var email, username string
	if req.Email != nil {
		email = *req.Email
		updates["email"] = email
	}
	if req.Username != nil {
		username = *req.Username
		if err := models.ValidateUsername(username); err != nil {
			var fe *models.FieldError
			if errors.As(err, &fe) {
				verr.Add(fe.Field, fe.Message)
			}
		}
		updates["username"] = username
	}
	if req.FirstName != nil {
		if *req.FirstName == "" {
			verr.Add("first_name", blankMessage)
		}
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		if *req.LastName == "" {
			verr.Add("last_name", blankMessage)
		}
		updates["last_name"] = *req.LastName
	}
	if req.Password != nil && *req.Password == "" {
		verr.Add("password", blankMessage)
	}
	if req.Role != nil && caller.IsAdmin() {
		updates["role"] = models.Role(*req.Role)
	}
	if err := s.checkUnique(ctx, user.ID, email, username, verr); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	if req.Password != nil {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, NewValidationError("username", "A user with that username or email already exists.")
			}
			return nil, translateError(err, "user")
		}
	}

	return s.Get(ctx, user.ID)
}

// SetPassword replaces the caller's password after checking the current one
func (s *UserService) SetPassword(ctx context.Context, caller middleware.Caller, current, next string) error {
	if caller.IsAnonymous() {
		return ErrUnauthenticated
	}
	user, err := s.Get(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, current) {
		return NewValidationError("current_password", "Invalid password.")
	}

	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// Delete removes a user with everything they own. Only the user themselves
// or an admin may do this.
func (s *UserService) Delete(ctx context.Context, caller middleware.Caller, id uint) error {
	if caller.IsAnonymous() {
		return ErrUnauthenticated
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !caller.CanModify(user.ID) {
		return ErrForbidden
	}

	var images []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipeIDs []uint
		if err := tx.Model(&models.Recipe{}).Where("author_id = ?", user.ID).Pluck("id", &recipeIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Recipe{}).Where("author_id = ?", user.ID).Pluck("image", &images).Error; err != nil {
			return err
		}
		if err := deleteRecipeRows(tx, recipeIDs); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? OR author_id = ?", user.ID, user.ID).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	for _, key := range images {
		removeMedia(ctx, s.media, key)
	}
	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Int("recipes", len(images)).Msg("User deleted")
	return nil
}
