// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/matchserver/models"
)

// Database 数据库接口
//
// Stores match history and operational snapshots only. Live room and player
// state is never loaded back from here; the lobby always boots empty.
type Database interface {
	SaveMatchStart(record *models.MatchRecord, snap *models.RoomSnapshot) error
	ListMatchRecords(roomID, limit int) ([]models.MatchRecord, error)
	GetRoomStats(roomID int) (*models.RoomStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
