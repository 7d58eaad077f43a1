package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"remix-go/internal/models"
)

// FriendshipRepository defines the interface for friendship data operations.
type FriendshipRepository interface {
	// CreateIfAbsent stores the pair in canonical order; false means the two
	// users were already friends.
	CreateIfAbsent(ctx context.Context, userID1, userID2 uint) (bool, error)
	AreUsersFriends(ctx context.Context, userID1, userID2 uint) (bool, error)
	// GetFriendIDs returns the friends of userID in ascending order.
	GetFriendIDs(ctx context.Context, userID uint) ([]uint, error)
}

type gormFriendshipRepository struct {
	db *gorm.DB
}

// NewGormFriendshipRepository creates a new GormFriendshipRepository.
func NewGormFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &gormFriendshipRepository{db: db}
}

func (r *gormFriendshipRepository) CreateIfAbsent(ctx context.Context, userID1, userID2 uint) (bool, error) {
	friendship := &models.Friendship{UserID1: userID1, UserID2: userID2}
	friendship.EnsureCanonicalOrder()
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(friendship)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AreUsersFriends checks if two users are already friends.
func (r *gormFriendshipRepository) AreUsersFriends(ctx context.Context, userID1, userID2 uint) (bool, error) {
	f := models.Friendship{UserID1: userID1, UserID2: userID2}
	f.EnsureCanonicalOrder()
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Friendship{}).
		Where("user_id1 = ? AND user_id2 = ?", f.UserID1, f.UserID2).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormFriendshipRepository) GetFriendIDs(ctx context.Context, userID uint) ([]uint, error) {
	var friendships []models.Friendship
	err := r.db.WithContext(ctx).
		Where("user_id1 = ? OR user_id2 = ?", userID, userID).
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	friendIDs := make([]uint, 0, len(friendships))
	for i := range friendships {
		friendIDs = append(friendIDs, friendships[i].Other(userID))
	}
	sortIDs(friendIDs)
	return friendIDs, nil
}
