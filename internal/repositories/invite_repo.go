package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gopher0727/DomainHub/internal/models"
)

// InviteRepository 邀请码与邀请日志仓储
// 邀请码行和日志行只通过这里的事务性操作修改，上层不持有可变副本
type InviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository 创建邀请码仓储实例
func NewInviteRepository(db *gorm.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

// WithTx 在单个事务中执行 fn，fn 收到的仓储绑定在该事务上
func (r *InviteRepository) WithTx(ctx context.Context, fn func(tx *InviteRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&InviteRepository{db: tx})
	})
}

// LockCode 以行级排他锁重新读取邀请码（必须在 WithTx 内调用）
// SELECT ... FOR UPDATE 只在 postgres 方言下生效；测试用的 sqlite
// 单连接本身就串行化了写事务
func (r *InviteRepository) LockCode(ctx context.Context, id uint) (*models.InviteCode, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var code models.InviteCode
	if err := q.First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetUsableCode 查找计数模式下仍然可用的邀请码
// 可用 = active 且未过期且未用完
func (r *InviteRepository) GetUsableCode(ctx context.Context, userID uint, rootDomain string, now time.Time) (*models.InviteCode, error) {
	var code models.InviteCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND root_domain = ? AND status = ?", userID, rootDomain, models.InviteStatusActive).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Where("used_count < max_uses").
		Order("id").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetCurrentCode 查找轮换模式下 (userid, rootdomain) 的常驻邀请码行
func (r *InviteRepository) GetCurrentCode(ctx context.Context, userID uint, rootDomain string) (*models.InviteCode, error) {
	var code models.InviteCode
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND root_domain = ?", userID, rootDomain).
		Order("id").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &code, nil
}

// GetByCodeAndDomain 按码值和根域名查找邀请码
func (r *InviteRepository) GetByCodeAndDomain(ctx context.Context, code, rootDomain string) (*models.InviteCode, error) {
	var invite models.InviteCode
	err := r.db.WithContext(ctx).
		Where("code = ? AND root_domain = ?", code, rootDomain).
		First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invite, nil
}

// CodeExists 检查码值是否已被占用（全表唯一）
func (r *InviteRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InviteCode{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// Create 插入新的邀请码行
func (r *InviteRepository) Create(ctx context.Context, invite *models.InviteCode) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

// ListCodesByUser 列出用户所有根域名的邀请码
func (r *InviteRepository) ListCodesByUser(ctx context.Context, userID uint) ([]models.InviteCode, error) {
	var codes []models.InviteCode
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("root_domain asc").
		Find(&codes).Error
	return codes, err
}

// MarkStatus 更新邀请码状态（惰性过期/耗尽翻转）
func (r *InviteRepository) MarkStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.InviteCode{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateUsage 更新使用计数和状态（在行锁保护下调用）
func (r *InviteRepository) UpdateUsage(ctx context.Context, id uint, usedCount int, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.InviteCode{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"used_count": usedCount,
			"status":     status,
		}).Error
}

// RotateCode 原地更换码值并递增轮换计数，用量清零（在行锁保护下调用）
func (r *InviteRepository) RotateCode(ctx context.Context, id uint, newCode string) error {
	return r.db.WithContext(ctx).
		Model(&models.InviteCode{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"code":             newCode,
			"generation_count": gorm.Expr("generation_count + 1"),
			"used_count":       0,
			"status":           models.InviteStatusActive,
		}).Error
}

// CleanupExpired 批量把过期的 active 码翻转为 expired，返回翻转行数
// 幂等，可重复执行
func (r *InviteRepository) CleanupExpired(ctx context.Context, batchSize int) (int64, error) {
	sub := r.db.
		Model(&models.InviteCode{}).
		Select("id").
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.InviteStatusActive, time.Now()).
		Limit(batchSize)

	res := r.db.WithContext(ctx).
		Model(&models.InviteCode{}).
		Where("id IN (?)", sub).
		Update("status", models.InviteStatusExpired)
	return res.RowsAffected, res.Error
}

// CreateLog 追加一条邀请日志
// (invitee_userid, rootdomain) 唯一索引会拒绝同一被邀请人的第二条日志
func (r *InviteRepository) CreateLog(ctx context.Context, entry *models.InviteLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// CountLogsByInviter 统计邀请人的成功邀请数（配额检查用）
// rootDomain 为空时统计全部根域名
func (r *InviteRepository) CountLogsByInviter(ctx context.Context, inviterID uint, rootDomain string) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.InviteLog{}).
		Where("inviter_user_id = ?", inviterID)
	if rootDomain != "" {
		q = q.Where("root_domain = ?", rootDomain)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

// InviteeHasRedeemed 检查被邀请人在该根域名下是否已经使用过邀请码
func (r *InviteRepository) InviteeHasRedeemed(ctx context.Context, inviteeID uint, rootDomain string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InviteLog{}).
		Where("invitee_user_id = ? AND root_domain = ?", inviteeID, rootDomain).
		Count(&count).Error
	return count > 0, err
}
