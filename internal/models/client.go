package models

import (
	"time"
)

// 平台账户状态
const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
	ClientStatusClosed   = "closed"
)

// Client 平台账户目录（对本模块只读）
// 邀请校验时查询邀请人状态/封禁标记和被邀请人邮箱
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Status    string    `gorm:"size:16;not null;default:active" json:"status"`
	Banned    bool      `gorm:"not null;default:false" json:"banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}
