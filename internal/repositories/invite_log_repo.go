package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gopher0727/DomainHub/internal/models"
)

// LogFilter 管理端日志搜索条件，空字段忽略
type LogFilter struct {
	Code          string
	RootDomain    string
	InviteeEmail  string
	InviterUserID uint
}

// InviteLogDetail 日志行附带邀请人/被邀请人账户邮箱（左连接 clients）
type InviteLogDetail struct {
	models.InviteLog
	InviterEmail        string `json:"inviter_email"`
	InviteeAccountEmail string `json:"invitee_account_email"`
}

func (r *InviteRepository) searchQuery(ctx context.Context, filter LogFilter) *gorm.DB {
	q := r.db.WithContext(ctx).
		Model(&models.InviteLog{}).
		Joins("LEFT JOIN clients AS inviter ON inviter.id = invite_logs.inviter_user_id").
		Joins("LEFT JOIN clients AS invitee ON invitee.id = invite_logs.invitee_user_id")

	if filter.Code != "" {
		q = q.Where("invite_logs.code LIKE ?", filter.Code+"%")
	}
	if filter.RootDomain != "" {
		q = q.Where("invite_logs.root_domain LIKE ?", "%"+filter.RootDomain+"%")
	}
	if filter.InviteeEmail != "" {
		like := "%" + filter.InviteeEmail + "%"
		q = q.Where("invite_logs.invitee_email LIKE ? OR inviter.email LIKE ? OR invitee.email LIKE ?", like, like, like)
	}
	if filter.InviterUserID > 0 {
		q = q.Where("invite_logs.inviter_user_id = ?", filter.InviterUserID)
	}
	return q
}

// SearchLogs 按条件分页查询邀请日志，按时间倒序
// page 从 1 开始，perPage 限制在 1..200
func (r *InviteRepository) SearchLogs(ctx context.Context, filter LogFilter, page, perPage int) ([]InviteLogDetail, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 200 {
		perPage = 200
	}

	var total int64
	if err := r.searchQuery(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []InviteLogDetail
	err := r.searchQuery(ctx, filter).
		Select("invite_logs.*, inviter.email AS inviter_email, invitee.email AS invitee_account_email").
		Order("invite_logs.id desc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Scan(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// UserInviteLogs 查询邀请人在指定根域名下的邀请历史，分页
func (r *InviteRepository) UserInviteLogs(ctx context.Context, userID uint, rootDomain string, page, perPage int) ([]models.InviteLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	userLogs := func() *gorm.DB {
		q := r.db.WithContext(ctx).
			Model(&models.InviteLog{}).
			Where("inviter_user_id = ?", userID)
		if rootDomain != "" {
			q = q.Where("root_domain = ?", rootDomain)
		}
		return q
	}

	var total int64
	if err := userLogs().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.InviteLog
	err := userLogs().
		Order("id desc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// DomainCount 按根域名聚合的邀请数量
type DomainCount struct {
	RootDomain string `json:"rootdomain"`
	Count      int64  `json:"count"`
}

// StatsByInviter 统计邀请人的总邀请数和按根域名的分布
// rootDomain 非空时总数只统计该根域名
func (r *InviteRepository) StatsByInviter(ctx context.Context, userID uint, rootDomain string) (int64, []DomainCount, error) {
	countQ := r.db.WithContext(ctx).
		Model(&models.InviteLog{}).
		Where("inviter_user_id = ?", userID)
	if rootDomain != "" {
		countQ = countQ.Where("root_domain = ?", rootDomain)
	}

	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var byDomain []DomainCount
	err := r.db.WithContext(ctx).
		Model(&models.InviteLog{}).
		Select("root_domain, COUNT(*) AS count").
		Where("inviter_user_id = ?", userID).
		Group("root_domain").
		Scan(&byDomain).Error
	if err != nil {
		return 0, nil, err
	}
	return total, byDomain, nil
}
