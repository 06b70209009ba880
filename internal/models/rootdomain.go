package models

import (
	"time"
)

// RootDomain 根域名策略（对本模块只读）
// require_invite_code 决定该根域名下注册子域名是否必须提供邀请码
type RootDomain struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Domain            string    `gorm:"size:255;uniqueIndex;not null" json:"domain"`
	RequireInviteCode bool      `gorm:"not null;default:false" json:"require_invite_code"`
	Status            string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (RootDomain) TableName() string {
	return "rootdomains"
}
