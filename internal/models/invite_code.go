package models

import (
	"time"
)

// 邀请码状态
const (
	InviteStatusActive    = "active"
	InviteStatusExpired   = "expired"
	InviteStatusExhausted = "exhausted"
)

// InviteCode 根域名邀请码模型
// 同一张表承载两种生命周期：
//   - 计数模式：used_count/max_uses 计数，可设置过期时间，耗尽或过期后状态翻转
//   - 轮换模式：每个 (userid, rootdomain) 只有一行，每次使用成功后原地更换码值
//
// 轮换行上有 (user_id, root_domain) 的部分唯一索引，
// 存储层就保证每对只有一行常驻码；计数行不受限制，可批量发多个码
type InviteCode struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index:idx_invite_user_domain;uniqueIndex:idx_invite_rotating_pair,where:rotating" json:"userid"`
	RootDomain      string     `gorm:"size:255;not null;index:idx_invite_user_domain;uniqueIndex:idx_invite_rotating_pair;index" json:"rootdomain"`
	Code            string     `gorm:"uniqueIndex;size:10;not null" json:"code"`
	UsedCount       int        `gorm:"not null;default:0" json:"used_count"`
	MaxUses         int        `gorm:"not null;default:1" json:"max_uses"`
	GenerationCount int        `gorm:"not null;default:1" json:"generation_count"`
	Rotating        bool       `gorm:"not null;default:false" json:"rotating"`
	ExpiresAt       *time.Time `json:"expires_at"`
	Status          string     `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (InviteCode) TableName() string {
	return "invite_codes"
}
