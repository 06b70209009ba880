package main

import (
	"context"
	stdlog "log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/DomainHub/config"
	"github.com/Gopher0727/DomainHub/internal/handlers"
	"github.com/Gopher0727/DomainHub/internal/pkg/kafka"
	"github.com/Gopher0727/DomainHub/internal/repositories"
	"github.com/Gopher0727/DomainHub/internal/routers"
	"github.com/Gopher0727/DomainHub/internal/services"
	"github.com/Gopher0727/DomainHub/internal/storage"
	"github.com/Gopher0727/DomainHub/middleware/jwt"
	log "github.com/Gopher0727/DomainHub/middleware/log"
)

func main() {
	cfg, err := config.LoadConfig("./config.toml")
	if err != nil {
		stdlog.Fatalf("配置初始化失败: %v", err)
	}

	logger, err := log.NewLogger(&cfg.Logging)
	if err != nil {
		stdlog.Fatalf("日志初始化失败: %v", err)
	}
	defer logger.Close()

	// 初始化 PostgreSQL
	dsn := storage.BuildDSN(cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.DBName)
	postgres, err := storage.InitPostgres(dsn, cfg.Postgres.MaxIdleConns, cfg.Postgres.MaxOpenConns)
	if err != nil {
		logger.Fatal("postgres 初始化失败", zap.Error(err))
	}

	// 初始化 Redis（配置缓存用，连不上就不带缓存跑）
	redisClient, err := storage.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Warn("redis 初始化失败，配置读取退化为直查数据库", zap.Error(err))
		redisClient = nil
	}

	// 初始化仓储层
	inviteRepo := repositories.NewInviteRepository(postgres)
	rootDomainRepo := repositories.NewRootDomainRepository(postgres)
	directoryRepo := repositories.NewDirectoryRepository(postgres)
	settingsRepo := repositories.NewSettingsRepository(postgres, redisClient,
		time.Duration(cfg.Invite.SettingCacheSeconds)*time.Second)

	// 初始化 Kafka Producer（可选，不可用时降级为不发事件）
	var publisher services.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(&cfg.Kafka)
		if err != nil {
			logger.Warn("Kafka 生产者初始化失败，核销事件不再发布", zap.Error(err))
		} else {
			defer producer.Close()
			publisher = producer
		}
	}

	// 初始化服务层
	policy := services.CodePolicy{
		MaxUses:         cfg.Invite.DefaultMaxUses,
		TTL:             time.Duration(cfg.Invite.CodeTTLHours) * time.Hour,
		RotateOnSuccess: cfg.Invite.RotateOnSuccess,
	}
	inviteService := services.NewInviteService(
		inviteRepo,
		rootDomainRepo,
		directoryRepo,
		settingsRepo,
		publisher,
		logger,
		policy,
	)

	// 后台定时清理过期邀请码
	go runCleanupLoop(logger, inviteService, cfg.Invite)

	// 初始化处理器
	tokenManager := jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.ExpireHours, cfg.JWT.RefreshHours)
	inviteHandler := handlers.NewInviteHandler(inviteService)

	// 配置并创建 Gin 引擎
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// 设置路由
	routers.SetupRoutes(r, tokenManager, inviteHandler)

	// 启动服务器
	logger.Info("正在启动服务器", zap.Int("port", cfg.Server.Port))
	if err := r.Run(":" + strconv.FormatInt(int64(cfg.Server.Port), 10)); err != nil {
		logger.Fatal("启动服务器失败", zap.Error(err))
	}
}

// runCleanupLoop 按配置的间隔把过期邀请码的状态翻转落库
func runCleanupLoop(logger *log.Logger, svc *services.InviteService, cfg config.InviteConfig) {
	interval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		total, err := svc.CleanupExpiredCodes(ctx, cfg.CleanupBatchSize)
		cancel()
		if err != nil {
			logger.Warn("过期邀请码清理失败", zap.Int64("expired", total), zap.Error(err))
			continue
		}
		if total > 0 {
			logger.Info("过期邀请码清理完成", zap.Int64("expired", total))
		}
	}
}
