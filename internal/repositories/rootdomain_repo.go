package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Gopher0727/DomainHub/internal/models"
)

type RootDomainRepository struct {
	db *gorm.DB
}

func NewRootDomainRepository(db *gorm.DB) *RootDomainRepository {
	return &RootDomainRepository{db: db}
}

// RequiresInvite 查询根域名是否开启邀请码注册，域名比较不区分大小写
// 未收录的根域名视为不需要邀请码
func (r *RootDomainRepository) RequiresInvite(ctx context.Context, domain string) (bool, error) {
	var rd models.RootDomain
	err := r.db.WithContext(ctx).
		Where("LOWER(domain) = LOWER(?)", domain).
		First(&rd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rd.RequireInviteCode, nil
}

// GetByDomain 按域名查询根域名记录，不存在返回 nil
func (r *RootDomainRepository) GetByDomain(ctx context.Context, domain string) (*models.RootDomain, error) {
	var rd models.RootDomain
	err := r.db.WithContext(ctx).
		Where("LOWER(domain) = LOWER(?)", domain).
		First(&rd).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rd, nil
}

// ListInviteRequired 列出所有开启邀请码注册的根域名
func (r *RootDomainRepository) ListInviteRequired(ctx context.Context) ([]models.RootDomain, error) {
	var domains []models.RootDomain
	err := r.db.WithContext(ctx).
		Where("require_invite_code = ?", true).
		Order("domain asc").
		Find(&domains).Error
	if err != nil {
		return nil, err
	}
	return domains, nil
}

func (r *RootDomainRepository) Create(ctx context.Context, rd *models.RootDomain) error {
	return r.db.WithContext(ctx).Create(rd).Error
}
