// models/models.go
package models

import (
	"time"
)

// MatchRecord 对局开始记录
type MatchRecord struct {
	RoomID      int       `json:"room_id"`
	Level       int       `json:"level"`
	BluePlayer  string    `json:"blue_player"`
	GreenPlayer string    `json:"green_player"`
	BlueSpawn   int       `json:"blue_spawn"`
	GreenSpawn  int       `json:"green_spawn"`
	StartedAt   time.Time `json:"started_at"`
}

// RoomSnapshot 房间状态快照（用于运维视图，不用于恢复运行时状态）
type RoomSnapshot struct {
	RoomID    int       `json:"room_id"`
	Status    string    `json:"status"`
	Occupants int       `json:"occupants"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoomStats 单个房间的历史统计
type RoomStats struct {
	RoomID         int        `json:"room_id"`
	MatchesStarted int64      `json:"matches_started"`
	LastStartedAt  *time.Time `json:"last_started_at,omitempty"`
}
