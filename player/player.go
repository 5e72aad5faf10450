// player/player.go
package player

import (
	"sync"
	"time"

	"github.com/wfunc/matchserver/network"
)

// Player is one connected client. It owns its connection and holds at most a
// non-owning reference to its current room by numeric id. A player with
// RoomID == 0 is lobby-idle.
type Player struct {
	ID        string
	Conn      network.Connection
	RoomID    int
	Color     string
	Ready     bool
	CreatedAt time.Time
}

func New(id string, conn network.Connection) *Player {
	return &Player{
		ID:        id,
		Conn:      conn,
		CreatedAt: time.Now(),
	}
}

func (p *Player) Send(v interface{}) error {
	return p.Conn.Send(v)
}

func (p *Player) GetID() string {
	return p.ID
}

// InRoom reports whether the player currently occupies a room.
func (p *Player) InRoom() bool {
	return p.RoomID != 0
}

// ClearRoom resets all room-scoped attributes on departure.
func (p *Player) ClearRoom() {
	p.RoomID = 0
	p.Color = ""
	p.Ready = false
}

func (p *Player) Close() error {
	return p.Conn.Close()
}

// Registry tracks every currently connected player, keyed by id. Players are
// added on connection accept and removed on disconnect.
type Registry struct {
	players map[string]*Player
	mutex   sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
	}
}

func (r *Registry) Add(p *Player) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.players[p.ID] = p
}

func (r *Registry) Remove(playerID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.players, playerID)
}

func (r *Registry) Get(playerID string) (*Player, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	p, exists := r.players[playerID]
	return p, exists
}

// All returns a snapshot slice of the connected players.
func (r *Registry) All() []*Player {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	return players
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.players)
}
