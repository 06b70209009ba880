package models

import (
	"time"
)

// InviteLog 邀请码使用日志（只追加，不更新不删除）
// 码值轮换后可能被复用，因此同时记录 invite_code_id 和使用时的码值
// (invitee_userid, rootdomain) 唯一索引保证同一被邀请人在同一根域名下只能成功使用一次
type InviteLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InviteCodeID  uint      `gorm:"not null;index" json:"invite_code_id"`
	Code          string    `gorm:"size:10;not null;index" json:"code"`
	InviterUserID uint      `gorm:"not null;index" json:"inviter_userid"`
	InviteeUserID *uint     `gorm:"uniqueIndex:idx_log_invitee_domain" json:"invitee_userid"`
	InviteeEmail  string    `gorm:"size:191;index" json:"invitee_email"`
	RootDomain    string    `gorm:"size:255;not null;index;uniqueIndex:idx_log_invitee_domain" json:"rootdomain"`
	Subdomain     string    `gorm:"size:255" json:"subdomain"`
	InviteeIP     string    `gorm:"size:64" json:"invitee_ip"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (InviteLog) TableName() string {
	return "invite_logs"
}
