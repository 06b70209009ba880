package kafka

import "time"

// RedemptionEvent 邀请码核销成功后发布的事件
type RedemptionEvent struct {
	Code          string    `json:"code"`
	RootDomain    string    `json:"rootdomain"`
	Subdomain     string    `json:"subdomain"`
	InviterUserID uint      `json:"inviter_userid"`
	InviteeUserID uint      `json:"invitee_userid"`
	InviteeEmail  string    `json:"invitee_email"`
	OccurredAt    time.Time `json:"occurred_at"`
}
