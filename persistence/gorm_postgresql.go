// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/matchserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
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
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// autoMigrate 自动迁移表结构
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormMatchRecord{},
		&models.GormRoomSnapshot{},
	)
}

// SaveMatchStart writes the match record and refreshes the room snapshot in
// one transaction.
func (p *GormPostgreSQL) SaveMatchStart(record *models.MatchRecord, snap *models.RoomSnapshot) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		row := models.GormMatchRecord{
			RoomID:      record.RoomID,
			Level:       record.Level,
			BluePlayer:  record.BluePlayer,
			GreenPlayer: record.GreenPlayer,
			BlueSpawn:   record.BlueSpawn,
			GreenSpawn:  record.GreenSpawn,
			StartedAt:   record.StartedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		var existing models.GormRoomSnapshot
		result := tx.Where("room_id = ?", snap.RoomID).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			existing = models.GormRoomSnapshot{
				RoomID:    snap.RoomID,
				Status:    snap.Status,
				Occupants: snap.Occupants,
			}
			return tx.Create(&existing).Error
		} else if result.Error != nil {
			return result.Error
		}

		existing.Status = snap.Status
		existing.Occupants = snap.Occupants
		return tx.Save(&existing).Error
	})
}

// ListMatchRecords 按时间倒序返回某房间的对局记录
func (p *GormPostgreSQL) ListMatchRecords(roomID, limit int) ([]models.MatchRecord, error) {
	var rows []models.GormMatchRecord
	err := p.db.Where("room_id = ?", roomID).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.MatchRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.MatchRecord{
			RoomID:      row.RoomID,
			Level:       row.Level,
			BluePlayer:  row.BluePlayer,
			GreenPlayer: row.GreenPlayer,
			BlueSpawn:   row.BlueSpawn,
			GreenSpawn:  row.GreenSpawn,
			StartedAt:   row.StartedAt,
		})
	}
	return records, nil
}

// GetRoomStats 获取单个房间的历史统计
func (p *GormPostgreSQL) GetRoomStats(roomID int) (*models.RoomStats, error) {
	stats := &models.RoomStats{RoomID: roomID}

	err := p.db.Raw(
		`SELECT COUNT(*) AS matches_started, MAX(started_at) AS last_started_at
         FROM gorm_match_records
         WHERE room_id = ? AND deleted_at IS NULL`,
		roomID,
	).Row().Scan(&stats.MatchesStarted, &stats.LastStartedAt)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
