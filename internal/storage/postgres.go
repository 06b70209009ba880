package storage

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Gopher0727/DomainHub/internal/models"
)

// InitPostgres 初始化 PostgreSQL 连接
func InitPostgres(dsn string, maxIdleConns, maxOpenConns int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Printf("连接数据库失败: %v", err)
		return nil, err
	}

	// 获取底层 sql.DB 对象以设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("获取 sql.DB 失败: %v", err)
		return nil, err
	}

	// 设置连接池参数
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)

	if err := Migrate(db); err != nil {
		log.Printf("模型迁移失败: %v", err)
		return nil, err
	}
	return db, nil
}

// Migrate 自动迁移本模块的表结构
// invite_logs 上的 (invitee_userid, rootdomain) 唯一索引在此建立，
// 同一被邀请人在同一根域名下重复使用邀请码会被存储层拒绝
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Client{},
		&models.RootDomain{},
		&models.Setting{},
		&models.InviteCode{},
		&models.InviteLog{},
	)
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(host, port, user, password, dbname string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbname)
}
