package services

import "errors"

// 邀请码校验与核销的错误分类
// 每个错误对应一种对外可见的失败原因，HTTP 层据此映射状态码
var (
	ErrInvalidInput        = errors.New("参数不合法")
	ErrInvalidCode         = errors.New("邀请码不存在")
	ErrCodeInactive        = errors.New("邀请码已停用")
	ErrCodeExpired         = errors.New("邀请码已过期")
	ErrCodeExhausted       = errors.New("邀请码使用次数已用完")
	ErrSelfRedemption      = errors.New("不能使用自己的邀请码")
	ErrInviterIneligible   = errors.New("邀请人账户状态异常")
	ErrInviterQuotaReached = errors.New("邀请人已达邀请上限")
	ErrAlreadyRedeemed     = errors.New("该账户在此根域名下已使用过邀请码")
	ErrCodeSpaceExhausted  = errors.New("生成邀请码失败，请稍后重试")
	ErrStorageUnavailable  = errors.New("存储暂时不可用")
)
