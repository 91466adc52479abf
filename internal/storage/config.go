package storage

import (
	"time"

	"github.com/smartgrant-oss/app/internal/common"
	gormlogger "gorm.io/gorm/logger"
)

// Config는 GORM 데이터베이스 설정 값을 보관합니다.
// common.DatabaseConfig를 래핑하여 저장 계층이 common에 직접 의존하지 않도록 합니다.
type Config struct {
	DSN             string
	LogLevel        gormlogger.LogLevel
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SkipDefaultTxn  bool
	PrepareStmt     bool
}

// ConfigFromEnv는 중앙화된 설정에서 데이터베이스 설정을 구성합니다.
func ConfigFromEnv() (Config, error) {
	appConfig, err := common.LoadConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		DSN:             appConfig.Database.DSN,
		LogLevel:        appConfig.Database.LogLevel,
		MaxIdleConns:    appConfig.Database.MaxIdleConns,
		MaxOpenConns:    appConfig.Database.MaxOpenConns,
		ConnMaxLifetime: appConfig.Database.ConnMaxLifetime,
		SkipDefaultTxn:  appConfig.Database.SkipDefaultTxn,
		PrepareStmt:     appConfig.Database.PrepareStmt,
	}, nil
}
