package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Gopher0727/DomainHub/internal/models"
)

var ErrClientNotFound = errors.New("客户不存在")

// DirectoryRepository 封装对账户目录（clients 表）的只读访问
type DirectoryRepository struct {
	db *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) getClient(ctx context.Context, userID uint) (*models.Client, error) {
	var c models.Client
	err := r.db.WithContext(ctx).First(&c, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetStatus 返回账户状态，账户不存在返回 ErrClientNotFound
func (r *DirectoryRepository) GetStatus(ctx context.Context, userID uint) (string, error) {
	c, err := r.getClient(ctx, userID)
	if err != nil {
		return "", err
	}
	return c.Status, nil
}

// IsBanned 返回账户是否被封禁
func (r *DirectoryRepository) IsBanned(ctx context.Context, userID uint) (bool, error) {
	c, err := r.getClient(ctx, userID)
	if err != nil {
		return false, err
	}
	return c.Banned, nil
}

// GetEmail 返回账户邮箱，不存在返回空串和 ErrClientNotFound
func (r *DirectoryRepository) GetEmail(ctx context.Context, userID uint) (string, error) {
	c, err := r.getClient(ctx, userID)
	if err != nil {
		return "", err
	}
	return c.Email, nil
}
