package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Gopher0727/DomainHub/internal/middlewares"
	"github.com/Gopher0727/DomainHub/internal/repositories"
	"github.com/Gopher0727/DomainHub/internal/services"
)

type InviteHandler struct {
	InviteService *services.InviteService
}

func NewInviteHandler(inviteService *services.InviteService) *InviteHandler {
	return &InviteHandler{
		InviteService: inviteService,
	}
}

// errStatus 把服务层的错误分类映射成 HTTP 状态码
func errStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCode):
		return http.StatusNotFound
	case errors.Is(err, services.ErrCodeInactive),
		errors.Is(err, services.ErrCodeExpired),
		errors.Is(err, services.ErrCodeExhausted),
		errors.Is(err, services.ErrSelfRedemption),
		errors.Is(err, services.ErrInviterIneligible),
		errors.Is(err, services.ErrInviterQuotaReached):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrAlreadyRedeemed):
		return http.StatusConflict
	case errors.Is(err, services.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWith(c *gin.Context, err error) {
	c.JSON(errStatus(err), gin.H{"error": err.Error()})
}

// GetCode 获取（或首次生成）当前用户在某根域名下的邀请码
func (h *InviteHandler) GetCode(c *gin.Context) {
	rootDomain := c.Query("rootdomain")
	userID := middlewares.CurrentUserID(c)

	ic, err := h.InviteService.GetOrCreateCode(c.Request.Context(), userID, rootDomain)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, ic)
}

// ListCodes 当前用户名下所有邀请码
func (h *InviteHandler) ListCodes(c *gin.Context) {
	userID := middlewares.CurrentUserID(c)

	codes, err := h.InviteService.GetUserAllInviteCodes(c.Request.Context(), userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": codes})
}

type validateRequest struct {
	Code       string `json:"code" binding:"required"`
	RootDomain string `json:"rootdomain" binding:"required"`
}

// ValidateCode 只校验不核销，注册页提交前的预检用
func (h *InviteHandler) ValidateCode(c *gin.Context) {
	req := validateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	userID := middlewares.CurrentUserID(c)
	ic, err := h.InviteService.Validate(c.Request.Context(), req.Code, req.RootDomain, userID)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "inviter_userid": ic.UserID})
}

type redeemRequest struct {
	Code       string `json:"code" binding:"required"`
	RootDomain string `json:"rootdomain" binding:"required"`
	Subdomain  string `json:"subdomain" binding:"required"`
	Email      string `json:"email" binding:"required"`
}

// Redeem 核销邀请码，注册子域名时调用
func (h *InviteHandler) Redeem(c *gin.Context) {
	req := redeemRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	entry, err := h.InviteService.Redeem(c.Request.Context(), services.RedeemRequest{
		Code:          req.Code,
		RootDomain:    req.RootDomain,
		Subdomain:     req.Subdomain,
		InviteeUserID: middlewares.CurrentUserID(c),
		InviteeEmail:  req.Email,
		InviteeIP:     c.ClientIP(),
	})
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Stats 当前用户的邀请统计
func (h *InviteHandler) Stats(c *gin.Context) {
	userID := middlewares.CurrentUserID(c)

	stats, err := h.InviteService.GetUserInviteStats(c.Request.Context(), userID, c.Query("rootdomain"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MyLogs 当前用户的邀请历史
func (h *InviteHandler) MyLogs(c *gin.Context) {
	userID := middlewares.CurrentUserID(c)
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 20)

	logs, total, err := h.InviteService.UserInviteLogs(c.Request.Context(), userID, c.Query("rootdomain"), page, perPage)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
		"page":  page,
	})
}

// InviteRequired 查询根域名是否需要邀请码，注册页据此决定是否展示输入框
func (h *InviteHandler) InviteRequired(c *gin.Context) {
	rootDomain := c.Query("rootdomain")
	if rootDomain != "" {
		c.JSON(http.StatusOK, gin.H{
			"rootdomain": rootDomain,
			"required":   h.InviteService.IsInviteRequired(c.Request.Context(), rootDomain),
		})
		return
	}

	domains, err := h.InviteService.InviteRequiredDomains(c.Request.Context())
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains})
}

type batchRequest struct {
	UserID     uint   `json:"userid" binding:"required"`
	RootDomain string `json:"rootdomain" binding:"required"`
	Count      int    `json:"count" binding:"required"`
}

// BatchGenerate 管理端批量发码
func (h *InviteHandler) BatchGenerate(c *gin.Context) {
	req := batchRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数格式错误"})
		return
	}

	codes, err := h.InviteService.BatchGenerateCodes(c.Request.Context(), req.UserID, req.RootDomain, req.Count)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"codes": codes})
}

// SearchLogs 管理端按条件搜索邀请日志
func (h *InviteHandler) SearchLogs(c *gin.Context) {
	filter := repositories.LogFilter{
		Code:         c.Query("code"),
		RootDomain:   c.Query("rootdomain"),
		InviteeEmail: c.Query("email"),
	}
	if raw := c.Query("inviter_userid"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "inviter_userid 必须是数字"})
			return
		}
		filter.InviterUserID = uint(id)
	}

	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 20)

	logs, total, err := h.InviteService.GetInviteLogs(c.Request.Context(), filter, page, perPage)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":     logs,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// Cleanup 管理端手动触发过期码清理
func (h *InviteHandler) Cleanup(c *gin.Context) {
	batchSize := queryInt(c, "batch_size", 100)

	total, err := h.InviteService.CleanupExpiredCodes(c.Request.Context(), batchSize)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": total})
}

func queryInt(c *gin.Context, key string, defaultVal int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return n
}
