// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/player"
	"github.com/wfunc/matchserver/room"
)

// Broadcaster fans messages out to one, several, or all connections. Sends
// are fire-and-forget: a failure on one connection never prevents delivery to
// the others.
type Broadcaster interface {
	BroadcastToAll(v interface{})
	BroadcastToRoom(roomID int, v interface{}) error
	SendTo(p *player.Player, v interface{})
}

// LobbyBroadcaster delivers over the connection registry and the room pool.
type LobbyBroadcaster struct {
	registry *player.Registry
	pool     *room.Pool
}

func NewLobbyBroadcaster(registry *player.Registry, pool *room.Pool) *LobbyBroadcaster {
	return &LobbyBroadcaster{
		registry: registry,
		pool:     pool,
	}
}

// BroadcastToAll sends v to every connected player, occupant or lobby-idle.
func (b *LobbyBroadcaster) BroadcastToAll(v interface{}) {
	for _, p := range b.registry.All() {
		if err := p.Send(v); err != nil {
			logger.Log.Warnf("Broadcast to player %s failed: %v", p.ID, err)
		}
	}
}

// BroadcastToRoom sends v to both occupants of the given room.
func (b *LobbyBroadcaster) BroadcastToRoom(roomID int, v interface{}) error {
	r, err := b.pool.FindByID(roomID)
	if err != nil {
		return err
	}

	for _, p := range r.Occupants() {
		if err := p.Send(v); err != nil {
			logger.Log.Warnf("Room %d send to player %s failed: %v", roomID, p.ID, err)
		}
	}
	return nil
}

// SendTo unicasts v to a single player.
func (b *LobbyBroadcaster) SendTo(p *player.Player, v interface{}) {
	if err := p.Send(v); err != nil {
		logger.Log.Warnf("Send to player %s failed: %v", p.ID, err)
	}
}
