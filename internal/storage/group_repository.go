package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"remix-go/internal/models"
)

// GroupRepository 定义了群组与成员关系的数据操作接口。
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	// CreateDirectGroupIfAbsent 按 DirectKey 插入私聊群组，已存在时返回 false。
	CreateDirectGroupIfAbsent(ctx context.Context, group *models.Group) (bool, error)
	GetGroupByID(ctx context.Context, id uint) (*models.Group, error)
	GetGroupByDirectKey(ctx context.Context, key string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)

	// AddMember 幂等地添加成员，返回本次调用是否新增了成员。
	AddMember(ctx context.Context, groupID, userID uint, role models.GroupMemberRole) (bool, error)
	RemoveMember(ctx context.Context, groupID, userID uint) (bool, error)
	IsMember(ctx context.Context, groupID, userID uint) (bool, error)
	CountMembers(ctx context.Context, groupID uint) (int64, error)
	GetMemberIDs(ctx context.Context, groupID uint) ([]uint, error)
	GetGroupMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error)
	GetUserGroups(ctx context.Context, userID uint) ([]models.Group, error)
	// GetCoMemberIDs 返回与 userID 至少同在一个群组的其他用户，升序且去重。
	GetCoMemberIDs(ctx context.Context, userID uint) ([]uint, error)
}

// gormGroupRepository 使用 GORM 实现 GroupRepository。
type gormGroupRepository struct {
	db *gorm.DB
}

// NewGormGroupRepository 创建一个新的基于 GORM 的 GroupRepository。
func NewGormGroupRepository(db *gorm.DB) GroupRepository {
	return &gormGroupRepository{db: db}
}

func (r *gormGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *gormGroupRepository) CreateDirectGroupIfAbsent(ctx context.Context, group *models.Group) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(group)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormGroupRepository) GetGroupByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *gormGroupRepository) GetGroupByDirectKey(ctx context.Context, key string) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("direct_key = ?", key).First(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *gormGroupRepository) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups := []models.Group{}
	err := r.db.WithContext(ctx).Order("id ASC").Find(&groups).Error
	return groups, err
}

func (r *gormGroupRepository) AddMember(ctx context.Context, groupID, userID uint, role models.GroupMemberRole) (bool, error) {
	member := &models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(member)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormGroupRepository) RemoveMember(ctx context.Context, groupID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.GroupMember{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *gormGroupRepository) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormGroupRepository) CountMembers(ctx context.Context, groupID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupMember{}).Where("group_id = ?", groupID).Count(&count).Error
	return count, err
}

func (r *gormGroupRepository) GetMemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// GetGroupMembers 获取群组的所有成员列表，按加入时间排序。
func (r *gormGroupRepository) GetGroupMembers(ctx context.Context, groupID uint) ([]models.GroupMember, error) {
	members := []models.GroupMember{}
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Preload("User").
		Order("joined_at ASC").Order("user_id ASC").
		Find(&members).Error
	return members, err
}

// GetUserGroups 获取用户加入的所有群组列表。
func (r *gormGroupRepository) GetUserGroups(ctx context.Context, userID uint) ([]models.Group, error) {
	groups := []models.Group{}
	memberships := r.db.WithContext(ctx).Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Where("id IN (?)", memberships).
		Order("id ASC").
		Find(&groups).Error
	return groups, err
}

func (r *gormGroupRepository) GetCoMemberIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	memberships := r.db.WithContext(ctx).Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Distinct("user_id").
		Where("group_id IN (?) AND user_id <> ?", memberships, userID).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
