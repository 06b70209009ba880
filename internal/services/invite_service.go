package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/DomainHub/internal/models"
	"github.com/Gopher0727/DomainHub/internal/pkg/kafka"
	"github.com/Gopher0727/DomainHub/internal/repositories"
	log "github.com/Gopher0727/DomainHub/middleware/log"
	"github.com/Gopher0727/DomainHub/pkg/utils"
)

// 生成邀请码时的最大碰撞重试次数
const maxGenerateAttempts = 5

// 邀请上限对应的配置键
const (
	settingMaxInvites  = "max_invites_per_user"
	defaultMaxInvites  = 0 // 0 表示不限制
	defaultBatchLimit  = 100
	publishEventBudget = 10 * time.Second
)

// CodePolicy 控制邀请码的发放策略
// RotateOnSuccess 为 true 时每次核销后轮换出新码（每个用户每个根域名一行），
// 此时 MaxUses 和 TTL 不参与判定
type CodePolicy struct {
	MaxUses         int
	TTL             time.Duration
	RotateOnSuccess bool
}

// DirectoryGateway 账户目录的只读视图
// 邀请人资格校验依赖它，查询失败按放行处理
type DirectoryGateway interface {
	GetStatus(ctx context.Context, userID uint) (string, error)
	IsBanned(ctx context.Context, userID uint) (bool, error)
	GetEmail(ctx context.Context, userID uint) (string, error)
}

// SettingsGateway 运营配置读取，查询失败按默认值处理
type SettingsGateway interface {
	GetInt(ctx context.Context, key string, defaultVal int) (int, error)
	IsPrivileged(ctx context.Context, userID uint) (bool, error)
}

// EventPublisher 核销成功后的事件出口，发布失败不影响核销结果
type EventPublisher interface {
	PublishRedemption(ctx context.Context, event kafka.RedemptionEvent) error
}

// RedeemRequest 一次核销请求的完整输入
type RedeemRequest struct {
	Code          string
	RootDomain    string
	Subdomain     string
	InviteeUserID uint
	InviteeEmail  string
	InviteeIP     string
}

// InviteStats 邀请人的邀请统计
type InviteStats struct {
	TotalInvited int64                      `json:"total_invited"`
	ByDomain     []repositories.DomainCount `json:"by_domain"`
	MaxInvites   int                        `json:"max_invites"`
	Privileged   bool                       `json:"privileged"`
}

type InviteService struct {
	repo        *repositories.InviteRepository
	rootDomains *repositories.RootDomainRepository
	directory   DirectoryGateway
	settings    SettingsGateway
	publisher   EventPublisher
	logger      *log.Logger
	policy      CodePolicy
}

func NewInviteService(
	repo *repositories.InviteRepository,
	rootDomains *repositories.RootDomainRepository,
	directory DirectoryGateway,
	settings SettingsGateway,
	publisher EventPublisher,
	logger *log.Logger,
	policy CodePolicy,
) *InviteService {
	if policy.MaxUses < 1 {
		policy.MaxUses = 1
	}
	return &InviteService{
		repo:        repo,
		rootDomains: rootDomains,
		directory:   directory,
		settings:    settings,
		publisher:   publisher,
		logger:      logger,
		policy:      policy,
	}
}

// IsInviteRequired 查询根域名是否开启邀请码注册
// 查询失败时按不需要处理，避免配置层故障阻断注册
func (s *InviteService) IsInviteRequired(ctx context.Context, rootDomain string) bool {
	domain := utils.NormalizeRootDomain(rootDomain)
	if domain == "" {
		return false
	}
	required, err := s.rootDomains.RequiresInvite(ctx, domain)
	if err != nil {
		s.logger.WarnContext(ctx, "查询根域名邀请开关失败，按不需要处理",
			zap.String("rootdomain", domain), zap.Error(err))
		return false
	}
	return required
}

// InviteRequiredDomains 列出所有开启邀请码注册的根域名
func (s *InviteService) InviteRequiredDomains(ctx context.Context) ([]models.RootDomain, error) {
	return s.rootDomains.ListInviteRequired(ctx)
}

// GetOrCreateCode 返回用户在根域名下的当前可用邀请码，没有则生成
// 同一用户重复调用幂等：可用码存在时不会生成新码
func (s *InviteService) GetOrCreateCode(ctx context.Context, userID uint, rootDomain string) (*models.InviteCode, error) {
	domain := utils.NormalizeRootDomain(rootDomain)
	if userID == 0 || domain == "" {
		return nil, ErrInvalidInput
	}

	var existing *models.InviteCode
	var err error
	if s.policy.RotateOnSuccess {
		existing, err = s.repo.GetCurrentCode(ctx, userID, domain)
	} else {
		existing, err = s.repo.GetUsableCode(ctx, userID, domain, time.Now())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if existing != nil {
		return existing, nil
	}

	return s.generateCode(ctx, userID, domain)
}

func (s *InviteService) newCodeRow(userID uint, domain, code string) *models.InviteCode {
	row := &models.InviteCode{
		UserID:          userID,
		RootDomain:      domain,
		Code:            code,
		MaxUses:         s.policy.MaxUses,
		GenerationCount: 1,
		Rotating:        s.policy.RotateOnSuccess,
		Status:          models.InviteStatusActive,
	}
	if !s.policy.RotateOnSuccess && s.policy.TTL > 0 {
		expires := time.Now().Add(s.policy.TTL)
		row.ExpiresAt = &expires
	}
	return row
}

func (s *InviteService) generateCode(ctx context.Context, userID uint, domain string) (*models.InviteCode, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("生成邀请码失败: %w", err)
		}

		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if exists {
			continue
		}

		row := s.newCodeRow(userID, domain, code)
		err = s.repo.Create(ctx, row)
		if err == nil {
			return row, nil
		}
		if isDuplicateErr(err) {
			// 轮换模式下撞索引多半是并发抢建同一对的常驻码，直接用赢家那行
			if s.policy.RotateOnSuccess {
				current, curErr := s.repo.GetCurrentCode(ctx, userID, domain)
				if curErr != nil {
					return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, curErr)
				}
				if current != nil {
					return current, nil
				}
			}
			// 码值撞车，换一个重试
			continue
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil, ErrCodeSpaceExhausted
}

// BatchGenerateCodes 批量生成新邀请码（管理端），数量限制在 1..100
// 轮换模式每对用户和根域名只有一个常驻码，不支持批量发码
func (s *InviteService) BatchGenerateCodes(ctx context.Context, userID uint, rootDomain string, count int) ([]models.InviteCode, error) {
	if s.policy.RotateOnSuccess {
		return nil, ErrInvalidInput
	}
	domain := utils.NormalizeRootDomain(rootDomain)
	if userID == 0 || domain == "" || count < 1 || count > defaultBatchLimit {
		return nil, ErrInvalidInput
	}

	codes := make([]models.InviteCode, 0, count)
	for i := 0; i < count; i++ {
		row, err := s.generateCode(ctx, userID, domain)
		if err != nil {
			return codes, err
		}
		codes = append(codes, *row)
	}
	return codes, nil
}

// GetUserAllInviteCodes 返回用户名下所有邀请码
func (s *InviteService) GetUserAllInviteCodes(ctx context.Context, userID uint) ([]models.InviteCode, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.ListCodesByUser(ctx, userID)
}

// Validate 校验邀请码能否被 inviteeUserID 在 rootDomain 下使用
// 校验顺序固定：格式、存在性、状态、有效期、剩余次数、自用、邀请人资格、
// 邀请上限、被邀请人是否已用过。前五项失败时返回码级错误并惰性落库状态，
// 邀请人资格和上限的查询故障按放行处理
func (s *InviteService) Validate(ctx context.Context, code, rootDomain string, inviteeUserID uint) (*models.InviteCode, error) {
	normCode := utils.NormalizeCode(code)
	domain := utils.NormalizeRootDomain(rootDomain)
	if domain == "" || inviteeUserID == 0 {
		return nil, ErrInvalidInput
	}
	// 空码和长度不对的码一律算无效码，参数级错误只留给域名和用户
	if !utils.IsValidCode(normCode) {
		return nil, ErrInvalidCode
	}

	ic, err := s.repo.GetByCodeAndDomain(ctx, normCode, domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if ic == nil {
		return nil, ErrInvalidCode
	}

	if err := s.checkCodeState(ctx, ic, true); err != nil {
		return nil, err
	}

	if ic.UserID == inviteeUserID {
		return nil, ErrSelfRedemption
	}

	if err := s.checkInviterEligible(ctx, ic.UserID); err != nil {
		return nil, err
	}
	if err := s.checkInviterQuota(ctx, ic.UserID, domain); err != nil {
		return nil, err
	}

	redeemed, err := s.repo.InviteeHasRedeemed(ctx, inviteeUserID, domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if redeemed {
		return nil, ErrAlreadyRedeemed
	}

	return ic, nil
}

// checkCodeState 检查邀请码自身的状态、有效期和剩余次数
// persist 为 true 时把过期/耗尽的发现惰性写回，事务内复查时不写回
func (s *InviteService) checkCodeState(ctx context.Context, ic *models.InviteCode, persist bool) error {
	if ic.Status != models.InviteStatusActive {
		switch ic.Status {
		case models.InviteStatusExhausted:
			return ErrCodeExhausted
		case models.InviteStatusExpired:
			return ErrCodeExpired
		default:
			return ErrCodeInactive
		}
	}

	if !s.policy.RotateOnSuccess {
		if ic.ExpiresAt != nil && !ic.ExpiresAt.After(time.Now()) {
			if persist {
				s.markStatus(ctx, ic.ID, models.InviteStatusExpired)
			}
			return ErrCodeExpired
		}
		if ic.UsedCount >= ic.MaxUses {
			if persist {
				s.markStatus(ctx, ic.ID, models.InviteStatusExhausted)
			}
			return ErrCodeExhausted
		}
	}
	return nil
}

// markStatus 状态写回失败只记日志，下次校验还会再次发现
func (s *InviteService) markStatus(ctx context.Context, id uint, status string) {
	if err := s.repo.MarkStatus(ctx, id, status); err != nil {
		s.logger.WarnContext(ctx, "邀请码状态写回失败",
			zap.Uint("invite_id", id), zap.String("status", status), zap.Error(err))
	}
}

func (s *InviteService) checkInviterEligible(ctx context.Context, inviterID uint) error {
	status, err := s.directory.GetStatus(ctx, inviterID)
	if err != nil {
		if errors.Is(err, repositories.ErrClientNotFound) {
			return ErrInviterIneligible
		}
		s.logger.WarnContext(ctx, "查询邀请人状态失败，按放行处理",
			zap.Uint("inviter_id", inviterID), zap.Error(err))
		return nil
	}
	if status != models.ClientStatusActive {
		return ErrInviterIneligible
	}

	banned, err := s.directory.IsBanned(ctx, inviterID)
	if err != nil {
		s.logger.WarnContext(ctx, "查询邀请人封禁状态失败，按放行处理",
			zap.Uint("inviter_id", inviterID), zap.Error(err))
		return nil
	}
	if banned {
		return ErrInviterIneligible
	}
	return nil
}

func (s *InviteService) checkInviterQuota(ctx context.Context, inviterID uint, domain string) error {
	limit, err := s.settings.GetInt(ctx, settingMaxInvites, defaultMaxInvites)
	if err != nil {
		s.logger.WarnContext(ctx, "读取邀请上限配置失败，按不限制处理",
			zap.Uint("inviter_id", inviterID), zap.Error(err))
		return nil
	}
	if limit <= 0 {
		return nil
	}

	privileged, err := s.settings.IsPrivileged(ctx, inviterID)
	if err != nil {
		s.logger.WarnContext(ctx, "读取豁免名单失败，按非豁免处理",
			zap.Uint("inviter_id", inviterID), zap.Error(err))
		privileged = false
	}
	if privileged {
		return nil
	}

	count, err := s.repo.CountLogsByInviter(ctx, inviterID, domain)
	if err != nil {
		s.logger.WarnContext(ctx, "统计邀请次数失败，按放行处理",
			zap.Uint("inviter_id", inviterID), zap.Error(err))
		return nil
	}
	if count >= int64(limit) {
		return ErrInviterQuotaReached
	}
	return nil
}

// Redeem 原子核销邀请码并写入邀请日志
// 先走完整校验链，再在事务内对码行加锁复查，保证并发下恰好一次成功；
// 轮换策略下核销成功会在同一事务内换上新码
func (s *InviteService) Redeem(ctx context.Context, req RedeemRequest) (*models.InviteLog, error) {
	if req.Subdomain == "" || req.InviteeEmail == "" {
		return nil, ErrInvalidInput
	}

	ic, err := s.Validate(ctx, req.Code, req.RootDomain, req.InviteeUserID)
	if err != nil {
		return nil, err
	}

	domain := utils.NormalizeRootDomain(req.RootDomain)
	inviteeID := req.InviteeUserID

	// 日志里记账户目录里的邮箱，目录查不到才沿用请求里自报的
	inviteeEmail := req.InviteeEmail
	resolved, err := s.directory.GetEmail(ctx, inviteeID)
	switch {
	case err == nil && resolved != "":
		inviteeEmail = resolved
	case err != nil && !errors.Is(err, repositories.ErrClientNotFound):
		s.logger.WarnContext(ctx, "查询被邀请人邮箱失败，沿用请求里的邮箱",
			zap.Uint("invitee_id", inviteeID), zap.Error(err))
	}

	var entry *models.InviteLog
	var exhausted bool
	err = s.repo.WithTx(ctx, func(tx *repositories.InviteRepository) error {
		locked, err := tx.LockCode(ctx, ic.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if locked == nil {
			return ErrInvalidCode
		}

		// 持锁复查，防止校验到提交之间被并发核销；
		// 事务内发现过期/耗尽不写回状态，回滚会把写回一起撤掉
		if err := s.checkCodeState(ctx, locked, false); err != nil {
			return err
		}
		redeemed, err := tx.InviteeHasRedeemed(ctx, inviteeID, domain)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if redeemed {
			return ErrAlreadyRedeemed
		}

		if s.policy.RotateOnSuccess {
			if err := s.rotateLocked(ctx, tx, locked); err != nil {
				return err
			}
		} else {
			newUsed := locked.UsedCount + 1
			status := models.InviteStatusActive
			if newUsed >= locked.MaxUses {
				status = models.InviteStatusExhausted
				exhausted = true
			}
			if err := tx.UpdateUsage(ctx, locked.ID, newUsed, status); err != nil {
				return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
			}
		}

		entry = &models.InviteLog{
			InviteCodeID:  locked.ID,
			Code:          locked.Code,
			InviterUserID: locked.UserID,
			InviteeUserID: &inviteeID,
			InviteeEmail:  inviteeEmail,
			RootDomain:    domain,
			Subdomain:     req.Subdomain,
			InviteeIP:     req.InviteeIP,
		}
		if err := tx.CreateLog(ctx, entry); err != nil {
			// 唯一索引兜底：同一账户同一根域名只允许一条核销记录
			if isDuplicateErr(err) {
				return ErrAlreadyRedeemed
			}
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if exhausted {
		s.replenishCode(ctx, entry.InviterUserID, domain)
	}
	s.publishRedemption(ctx, entry)
	return entry, nil
}

// replenishCode 计数模式的码用完后异步补发一个新码，失败只记日志
// 邀请人下次查码时也会现场补发，这里只是提前一步
func (s *InviteService) replenishCode(ctx context.Context, inviterID uint, domain string) {
	traceID := log.GetTraceID(ctx)
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), publishEventBudget)
		defer cancel()
		bgCtx = log.WithTraceID(bgCtx, traceID)
		if _, err := s.generateCode(bgCtx, inviterID, domain); err != nil {
			s.logger.WarnContext(bgCtx, "补发邀请码失败",
				zap.Uint("inviter_id", inviterID), zap.String("rootdomain", domain), zap.Error(err))
		}
	}()
}

// rotateLocked 为持锁的码行生成新码并轮换
func (s *InviteService) rotateLocked(ctx context.Context, tx *repositories.InviteRepository, locked *models.InviteCode) error {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		newCode, err := utils.GenerateInviteCode()
		if err != nil {
			return fmt.Errorf("生成邀请码失败: %w", err)
		}
		exists, err := tx.CodeExists(ctx, newCode)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if exists {
			continue
		}
		if err := tx.RotateCode(ctx, locked.ID, newCode); err != nil {
			if isDuplicateErr(err) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return nil
	}
	return ErrCodeSpaceExhausted
}

// publishRedemption 异步发布核销事件，失败只记日志
func (s *InviteService) publishRedemption(ctx context.Context, entry *models.InviteLog) {
	if s.publisher == nil {
		return
	}
	event := kafka.RedemptionEvent{
		Code:          entry.Code,
		RootDomain:    entry.RootDomain,
		Subdomain:     entry.Subdomain,
		InviterUserID: entry.InviterUserID,
		InviteeEmail:  entry.InviteeEmail,
		OccurredAt:    time.Now().UTC(),
	}
	if entry.InviteeUserID != nil {
		event.InviteeUserID = *entry.InviteeUserID
	}
	traceID := log.GetTraceID(ctx)
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), publishEventBudget)
		defer cancel()
		pubCtx = log.WithTraceID(pubCtx, traceID)
		if err := s.publisher.PublishRedemption(pubCtx, event); err != nil {
			s.logger.ErrorContext(pubCtx, "发布核销事件失败",
				zap.String("code", event.Code), zap.Error(err))
		}
	}()
}

// CleanupExpiredCodes 把已过期但状态仍为 active 的码分批置为 expired
// 返回本次处理的总行数
func (s *InviteService) CleanupExpiredCodes(ctx context.Context, batchSize int) (int64, error) {
	if batchSize < 1 {
		batchSize = 100
	}
	var total int64
	for {
		n, err := s.repo.CleanupExpired(ctx, batchSize)
		total += n
		if err != nil {
			return total, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		if n < int64(batchSize) {
			return total, nil
		}
	}
}

// GetInviteLogs 管理端按条件分页查询邀请日志
func (s *InviteService) GetInviteLogs(ctx context.Context, filter repositories.LogFilter, page, perPage int) ([]repositories.InviteLogDetail, int64, error) {
	filter.Code = utils.NormalizeCode(filter.Code)
	filter.RootDomain = utils.NormalizeRootDomain(filter.RootDomain)
	return s.repo.SearchLogs(ctx, filter, page, perPage)
}

// UserInviteLogs 用户自己的邀请历史
func (s *InviteService) UserInviteLogs(ctx context.Context, userID uint, rootDomain string, page, perPage int) ([]models.InviteLog, int64, error) {
	if userID == 0 {
		return nil, 0, ErrInvalidInput
	}
	return s.repo.UserInviteLogs(ctx, userID, utils.NormalizeRootDomain(rootDomain), page, perPage)
}

// GetUserInviteStats 用户的邀请统计和配额信息
func (s *InviteService) GetUserInviteStats(ctx context.Context, userID uint, rootDomain string) (*InviteStats, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	domain := utils.NormalizeRootDomain(rootDomain)

	total, byDomain, err := s.repo.StatsByInviter(ctx, userID, domain)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	limit, err := s.settings.GetInt(ctx, settingMaxInvites, defaultMaxInvites)
	if err != nil {
		s.logger.WarnContext(ctx, "读取邀请上限配置失败", zap.Error(err))
		limit = defaultMaxInvites
	}
	privileged, err := s.settings.IsPrivileged(ctx, userID)
	if err != nil {
		privileged = false
	}

	return &InviteStats{
		TotalInvited: total,
		ByDomain:     byDomain,
		MaxInvites:   limit,
		Privileged:   privileged,
	}, nil
}

// isDuplicateErr 识别唯一索引冲突，兼容 postgres 和 sqlite 的报错文案
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}
