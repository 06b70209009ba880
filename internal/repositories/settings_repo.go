package repositories

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Gopher0727/DomainHub/internal/models"
)

const settingCachePrefix = "domainhub:setting:"

// SettingsRepository 模块配置读取，走 Redis 旁路缓存
// rdb 为 nil 时退化为直查数据库
type SettingsRepository struct {
	db       *gorm.DB
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewSettingsRepository(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration) *SettingsRepository {
	if cacheTTL <= 0 {
		cacheTTL = 60 * time.Second
	}
	return &SettingsRepository{db: db, rdb: rdb, cacheTTL: cacheTTL}
}

// GetString 读取配置项，不存在返回 defaultVal
// 缓存失败只影响性能，不影响正确性
func (r *SettingsRepository) GetString(ctx context.Context, key, defaultVal string) (string, error) {
	if r.rdb != nil {
		val, err := r.rdb.Get(ctx, settingCachePrefix+key).Result()
		if err == nil {
			return val, nil
		}
	}

	var s models.Setting
	err := r.db.WithContext(ctx).Where("setting = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaultVal, nil
	}
	if err != nil {
		return defaultVal, err
	}

	if r.rdb != nil {
		r.rdb.Set(ctx, settingCachePrefix+key, s.Value, r.cacheTTL)
	}
	return s.Value, nil
}

// GetInt 读取整型配置项，缺失或不可解析时返回 defaultVal
func (r *SettingsRepository) GetInt(ctx context.Context, key string, defaultVal int) (int, error) {
	raw, err := r.GetString(ctx, key, "")
	if err != nil {
		return defaultVal, err
	}
	if raw == "" {
		return defaultVal, nil
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if convErr != nil {
		return defaultVal, nil
	}
	return n, nil
}

// Set 写入配置项并让缓存失效
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	var s models.Setting
	err := r.db.WithContext(ctx).Where("setting = ?", key).First(&s).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		err = r.db.WithContext(ctx).Create(&models.Setting{Key: key, Value: value}).Error
	case err == nil:
		err = r.db.WithContext(ctx).Model(&s).Update("value", value).Error
	}
	if err != nil {
		return err
	}
	if r.rdb != nil {
		r.rdb.Del(ctx, settingCachePrefix+key)
	}
	return nil
}

// IsPrivileged 判断用户是否在豁免名单内（privileged_userids，逗号分隔）
func (r *SettingsRepository) IsPrivileged(ctx context.Context, userID uint) (bool, error) {
	raw, err := r.GetString(ctx, "privileged_userids", "")
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}
	want := strconv.FormatUint(uint64(userID), 10)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == want {
			return true, nil
		}
	}
	return false, nil
}
