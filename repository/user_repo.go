// Package repository implements data access layer for the application
package repository

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"ghostlore.app/models"
)

// UserRepository handles data access operations for users
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository for user data
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID retrieves a user by primary id
func (r *UserRepository) FindByID(id string) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, "id = ?", id)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// FindByEmail retrieves a user by email, nil when absent
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	result := r.db.Where("email = ?", email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &user, nil
}

// Create persists a new user
func (r *UserRepository) Create(tx *gorm.DB, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return tx.Create(user).Error
}

// Update modifies an existing user
func (r *UserRepository) Update(tx *gorm.DB, user *models.User) error {
	return tx.Save(user).Error
}

// Delete removes a user and its dependent rows
func (r *UserRepository) Delete(tx *gorm.DB, userID string) error {
	slog.Debug("Deleting user with dependents", "userID", userID)

	dependents := []interface{}{
		&models.UserPreferences{},
		&models.Bookmark{},
		&models.ReadingProgress{},
		&models.Interaction{},
		&models.Recommendation{},
		&models.ConversationMessage{},
	}
	for _, model := range dependents {
		if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
			return err
		}
	}

	return tx.Delete(&models.User{}, "id = ?", userID).Error
}

// PreferencesRepository handles data access operations for user preferences
type PreferencesRepository struct {
	db *gorm.DB
}

// NewPreferencesRepository creates a new repository for preference data
func NewPreferencesRepository(db *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

// FindByUserID retrieves preferences for a user, nil when absent
func (r *PreferencesRepository) FindByUserID(userID string) (*models.UserPreferences, error) {
	var prefs models.UserPreferences
	result := r.db.Where("user_id = ?", userID).First(&prefs)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &prefs, nil
}

// Upsert creates or updates the preference row for a user
func (r *PreferencesRepository) Upsert(tx *gorm.DB, prefs *models.UserPreferences) error {
	var existing models.UserPreferences
	result := tx.Where("user_id = ?", prefs.UserID).First(&existing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if prefs.ID == "" {
				prefs.ID = uuid.New().String()
			}
			return tx.Create(prefs).Error
		}
		return result.Error
	}

	prefs.ID = existing.ID
	prefs.CreatedAt = existing.CreatedAt
	prefs.UpdatedAt = time.Now()
	return tx.Save(prefs).Error
}

// AddCulturalInterests merges new interests into a user's profile
func (r *PreferencesRepository) AddCulturalInterests(tx *gorm.DB, userID string, interests []string) error {
	var prefs models.UserPreferences
	result := tx.Where("user_id = ?", userID).First(&prefs)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			prefs = models.UserPreferences{
				ID:                uuid.New().String(),
				UserID:            userID,
				CulturalInterests: interests,
				SpookinessLevel:   3,
			}
			return tx.Create(&prefs).Error
		}
		return result.Error
	}

	existing := make(map[string]bool, len(prefs.CulturalInterests))
	for _, interest := range prefs.CulturalInterests {
		existing[interest] = true
	}
	for _, interest := range interests {
		if !existing[interest] {
			prefs.CulturalInterests = append(prefs.CulturalInterests, interest)
		}
	}

	return tx.Save(&prefs).Error
}
