// internal/services/profile_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sunnyshore/shop-backend/internal/database"
	"github.com/sunnyshore/shop-backend/internal/models"
)

// ProfileService covers the account self-service surface: profile fields,
// preferences, statistics and account deletion. Free-form profile fields and
// preferences live in the user's profile_data document; email, role and
// status are never updatable through here.
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// ProfileStats summarizes a customer's purchase history.
type ProfileStats struct {
	TotalOrders       int64   `json:"total_orders"`
	TotalSpent        float64 `json:"total_spent"`
	AverageOrderValue float64 `json:"average_order_value"`
	DeliveredOrders   int64   `json:"delivered_orders"`
}

func (s *ProfileService) getUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *ProfileService) GetProfile(userID uuid.UUID) (*models.User, error) {
	return s.getUser(userID)
}

// UpdateProfile applies a partial update. The name is a real column; phone,
// avatar and bio are merged into profile_data without disturbing other keys.
func (s *ProfileService) UpdateProfile(userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	data := models.JSONB{}
	for k, v := range user.ProfileData {
		data[k] = v
	}
	if req.Phone != nil {
		data["phone"] = *req.Phone
	}
	if req.AvatarURL != nil {
		data["avatar_url"] = *req.AvatarURL
	}
	if req.Bio != nil {
		data["bio"] = *req.Bio
	}

	updates := map[string]interface{}{"profile_data": data}
	if req.Name != nil {
		updates["name"] = *req.Name
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.getUser(userID)
}

// GetPreferences returns the preferences document, empty when never set.
func (s *ProfileService) GetPreferences(userID uuid.UUID) (models.JSONB, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	if prefs, ok := user.ProfileData["preferences"].(map[string]interface{}); ok {
		return models.JSONB(prefs), nil
	}
	return models.JSONB{}, nil
}

// UpdatePreferences replaces the preferences document wholesale.
func (s *ProfileService) UpdatePreferences(userID uuid.UUID, prefs models.JSONB) (models.JSONB, error) {
	user, err := s.getUser(userID)
	if err != nil {
		return nil, err
	}

	data := models.JSONB{}
	for k, v := range user.ProfileData {
		data[k] = v
	}
	data["preferences"] = map[string]interface{}(prefs)

	if err := s.db.Model(user).Update("profile_data", data).Error; err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return prefs, nil
}

// GetStats aggregates the user's order history for the account page.
func (s *ProfileService) GetStats(userID uuid.UUID) (*ProfileStats, error) {
	if _, err := s.getUser(userID); err != nil {
		return nil, err
	}

	var totals struct {
		TotalOrders int64
		TotalSpent  float64
		AvgOrder    float64
	}
	err := s.db.Model(&models.Order{}).
		Select("COUNT(*) AS total_orders, COALESCE(SUM(total), 0) AS total_spent, COALESCE(AVG(total), 0) AS avg_order").
		Where("user_id = ?", userID).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	var delivered int64
	err = s.db.Model(&models.Order{}).
		Where("user_id = ? AND status = ?", userID, models.OrderStatusDelivered).
		Count(&delivered).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &ProfileStats{
		TotalOrders:       totals.TotalOrders,
		TotalSpent:        round2(totals.TotalSpent),
		AverageOrderValue: round2(totals.AvgOrder),
		DeliveredOrders:   delivered,
	}, nil
}

// DeleteAccount deactivates and soft-deletes the account after verifying the
// password. Orders stay untouched; only the login goes away.
func (s *ProfileService) DeleteAccount(userID uuid.UUID, password string) error {
	user, err := s.getUser(userID)
	if err != nil {
		return err
	}
	if err := user.CheckPassword(password); err != nil {
		return ErrInvalidCredentials
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("status", models.UserStatusDeactivated).Error; err != nil {
			return fmt.Errorf("failed to deactivate account: %w", err)
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return err
	}

	logrus.WithField("user_id", userID).Info("Account deleted")
	return nil
}
