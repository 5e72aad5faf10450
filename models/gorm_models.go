// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormMatchRecord 对局记录模型
type GormMatchRecord struct {
	gorm.Model
	RoomID      int    `gorm:"index;not null"`
	Level       int    `gorm:"not null"`
	BluePlayer  string `gorm:"not null"`
	GreenPlayer string `gorm:"not null"`
	BlueSpawn   int    `gorm:"not null"`
	GreenSpawn  int    `gorm:"not null"`
	StartedAt   time.Time
}

// GormRoomSnapshot 房间快照模型
type GormRoomSnapshot struct {
	gorm.Model
	RoomID    int    `gorm:"uniqueIndex;not null"`
	Status    string `gorm:"not null"`
	Occupants int    `gorm:"default:0"`
}
