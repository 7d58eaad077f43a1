package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"remix-go/internal/models"
)

// GroupRequestRepository 定义了入群申请与邀请的数据操作接口。
type GroupRequestRepository interface {
	CreateIfAbsent(ctx context.Context, request *models.GroupRequest) (bool, error)
	GetByID(ctx context.Context, id uint) (*models.GroupRequest, error)
	Delete(ctx context.Context, id uint) (bool, error)
	ListInvitationsFor(ctx context.Context, userID uint) ([]models.GroupRequest, error)
	ListJoinRequestsFor(ctx context.Context, groupID uint) ([]models.GroupRequest, error)
}

type gormGroupRequestRepository struct {
	db *gorm.DB
}

// NewGormGroupRequestRepository 创建一个新的基于 GORM 的 GroupRequestRepository。
func NewGormGroupRequestRepository(db *gorm.DB) GroupRequestRepository {
	return &gormGroupRequestRepository{db: db}
}

func (r *gormGroupRequestRepository) CreateIfAbsent(ctx context.Context, request *models.GroupRequest) (bool, error) {
	request.UniqueKey = models.GroupRequestKey(request.Kind, request.GroupID, request.ToUserID)
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(request)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormGroupRequestRepository) GetByID(ctx context.Context, id uint) (*models.GroupRequest, error) {
	var request models.GroupRequest
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *gormGroupRequestRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.GroupRequest{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormGroupRequestRepository) ListInvitationsFor(ctx context.Context, userID uint) ([]models.GroupRequest, error) {
	requests := []models.GroupRequest{}
	err := r.db.WithContext(ctx).
		Where("kind = ? AND to_user_id = ?", models.GroupInvitation, userID).
		Order("id ASC").
		Find(&requests).Error
	return requests, err
}

func (r *gormGroupRequestRepository) ListJoinRequestsFor(ctx context.Context, groupID uint) ([]models.GroupRequest, error) {
	requests := []models.GroupRequest{}
	err := r.db.WithContext(ctx).
		Where("kind = ? AND group_id = ?", models.GroupJoinRequest, groupID).
		Order("id ASC").
		Find(&requests).Error
	return requests, err
}
