package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"remix-go/internal/models"
)

// FriendRequestRepository defines the interface for friend request data operations.
type FriendRequestRepository interface {
	// CreateIfAbsent inserts the request unless one is already pending for the
	// same unordered pair, in which case it returns false.
	CreateIfAbsent(ctx context.Context, request *models.FriendRequest) (bool, error)
	GetByID(ctx context.Context, requestID uint) (*models.FriendRequest, error)
	// Delete consumes the request and reports whether this call removed it.
	Delete(ctx context.Context, requestID uint) (bool, error)
	ListForRecipient(ctx context.Context, recipientUserID uint) ([]models.FriendRequest, error)
}

type gormFriendRequestRepository struct {
	db *gorm.DB
}

func NewGormFriendRequestRepository(db *gorm.DB) FriendRequestRepository {
	return &gormFriendRequestRepository{db: db}
}

func (r *gormFriendRequestRepository) CreateIfAbsent(ctx context.Context, request *models.FriendRequest) (bool, error) {
	request.PairKey = models.PairKey(request.FromUserID, request.ToUserID)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(request)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormFriendRequestRepository) GetByID(ctx context.Context, requestID uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	if err := r.db.WithContext(ctx).First(&request, requestID).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormFriendRequestRepository) Delete(ctx context.Context, requestID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", requestID).Delete(&models.FriendRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormFriendRequestRepository) ListForRecipient(ctx context.Context, recipientUserID uint) ([]models.FriendRequest, error) {
	requests := []models.FriendRequest{}
	err := r.db.WithContext(ctx).
		Where("to_user_id = ?", recipientUserID).
		Order("created_at ASC").Order("id ASC").
		Find(&requests).Error
	return requests, err
}
