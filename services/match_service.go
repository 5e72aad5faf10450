// services/match_service.go
package services

import (
	"fmt"
	"time"

	"github.com/wfunc/matchserver/models"
	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/persistence"
	"github.com/wfunc/matchserver/room"
)

// MatchService records match history. All writes are best-effort from the
// server's point of view: a storage failure never blocks matchmaking.
type MatchService struct {
	db persistence.Database
}

func NewMatchService(db persistence.Database) *MatchService {
	return &MatchService{db: db}
}

// RecordMatchStart writes a record for a room that just reached running,
// together with a snapshot of its new status.
func (s *MatchService) RecordMatchStart(r *room.Room, level int) error {
	occupants := r.Occupants()
	if len(occupants) != room.Capacity {
		return fmt.Errorf("room %d is not full", r.ID)
	}

	spawns, ok := r.Spawns()
	if !ok {
		return fmt.Errorf("room %d has no spawn assignment", r.ID)
	}

	record := &models.MatchRecord{
		RoomID:     r.ID,
		Level:      level,
		BlueSpawn:  spawns.Blue,
		GreenSpawn: spawns.Green,
		StartedAt:  time.Now(),
	}
	for _, occ := range occupants {
		switch occ.Color {
		case network.ColorBlue:
			record.BluePlayer = occ.ID
		case network.ColorGreen:
			record.GreenPlayer = occ.ID
		}
	}

	snap := &models.RoomSnapshot{
		RoomID:    r.ID,
		Status:    string(r.Status()),
		Occupants: len(occupants),
		UpdatedAt: record.StartedAt,
	}

	return s.db.SaveMatchStart(record, snap)
}

// RecentMatches returns the latest match records for one room.
func (s *MatchService) RecentMatches(roomID, limit int) ([]models.MatchRecord, error) {
	return s.db.ListMatchRecords(roomID, limit)
}

// RoomStats returns historical stats for one room.
func (s *MatchService) RoomStats(roomID int) (*models.RoomStats, error) {
	return s.db.GetRoomStats(roomID)
}
