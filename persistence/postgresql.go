// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/matchserver/models"
)

// PostgreSQL 数据库实现（database/sql 版本）
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            id SERIAL PRIMARY KEY,
            room_id INT NOT NULL,
            level INT NOT NULL,
            blue_player TEXT NOT NULL,
            green_player TEXT NOT NULL,
            blue_spawn INT NOT NULL,
            green_spawn INT NOT NULL,
            started_at TIMESTAMP NOT NULL
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_match_records_room_id ON match_records (room_id)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS room_snapshots (
            room_id INT PRIMARY KEY,
            status TEXT NOT NULL,
            occupants INT NOT NULL DEFAULT 0,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	return err
}

// SaveMatchStart 在同一事务中写入对局记录并刷新房间快照
func (p *PostgreSQL) SaveMatchStart(record *models.MatchRecord, snap *models.RoomSnapshot) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT INTO match_records (room_id, level, blue_player, green_player, blue_spawn, green_spawn, started_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.RoomID, record.Level, record.BluePlayer, record.GreenPlayer,
		record.BlueSpawn, record.GreenSpawn, record.StartedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
        INSERT INTO room_snapshots (room_id, status, occupants, updated_at)
        VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
        ON CONFLICT (room_id)
        DO UPDATE SET status = $2, occupants = $3, updated_at = CURRENT_TIMESTAMP`,
		snap.RoomID, snap.Status, snap.Occupants)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ListMatchRecords 按时间倒序返回某房间的对局记录
func (p *PostgreSQL) ListMatchRecords(roomID, limit int) ([]models.MatchRecord, error) {
	rows, err := p.db.Query(`
        SELECT room_id, level, blue_player, green_player, blue_spawn, green_spawn, started_at
        FROM match_records
        WHERE room_id = $1
        ORDER BY started_at DESC
        LIMIT $2`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MatchRecord
	for rows.Next() {
		var r models.MatchRecord
		if err := rows.Scan(&r.RoomID, &r.Level, &r.BluePlayer, &r.GreenPlayer,
			&r.BlueSpawn, &r.GreenSpawn, &r.StartedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRoomStats 获取单个房间的历史统计
func (p *PostgreSQL) GetRoomStats(roomID int) (*models.RoomStats, error) {
	stats := &models.RoomStats{RoomID: roomID}

	err := p.db.QueryRow(`
        SELECT COUNT(*), MAX(started_at)
        FROM match_records
        WHERE room_id = $1`, roomID).
		Scan(&stats.MatchesStarted, &stats.LastStartedAt)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
