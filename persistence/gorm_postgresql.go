// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// BlobModel is the GORM mapping for the game_blobs table shared with
// the database/sql backend.
type BlobModel struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte `gorm:"not null"`
	Version   int64  `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BlobModel) TableName() string {
	return "game_blobs"
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&BlobModel{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// IsAvailable reports whether the backing database answers a ping.
func (p *GormPostgreSQL) IsAvailable() bool {
	sqlDB, err := p.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

// GetData 读取数据
func (p *GormPostgreSQL) GetData(key string) ([]byte, error) {
	value, _, err := p.GetVersioned(key)
	return value, err
}

// GetVersioned reads a blob together with its version token.
func (p *GormPostgreSQL) GetVersioned(key string) ([]byte, int64, error) {
	var blob BlobModel
	if err := p.db.Where("key = ?", key).First(&blob).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []byte{}, 0, nil
		}
		return nil, 0, err
	}
	return blob.Value, blob.Version, nil
}

// SetData 保存数据, last write wins.
func (p *GormPostgreSQL) SetData(key string, value []byte) error {
	var blob BlobModel
	result := p.db.Where("key = ?", key).First(&blob)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		blob = BlobModel{Key: key, Value: value, Version: 1}
		return p.db.Create(&blob).Error
	} else if result.Error != nil {
		return result.Error
	}

	blob.Value = value
	blob.Version++
	blob.UpdatedAt = time.Now()
	return p.db.Save(&blob).Error
}

// SetVersioned writes a blob only if its current version still matches
// expect, returning ErrVersionConflict otherwise.
func (p *GormPostgreSQL) SetVersioned(key string, value []byte, expect int64) error {
	if expect == 0 {
		blob := BlobModel{Key: key, Value: value, Version: 1}
		err := p.db.Create(&blob).Error
		if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrVersionConflict
		}
		return err
	}

	result := p.db.Model(&BlobModel{}).
		Where("key = ? AND version = ?", key, expect).
		Updates(map[string]interface{}{
			"value":      value,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
