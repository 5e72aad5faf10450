package client

import (
	"sync"

	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/network"
)

// Sender is the outbound half of a connection. The websocket client and the
// test doubles both satisfy it.
type Sender interface {
	Send(v interface{}) error
}

// RoomEntry is one row of the lobby list as a UI would render it.
type RoomEntry struct {
	ID         int
	Status     string
	Selectable bool
}

// Controller tracks a single client's session: the lobby room list, the room
// it currently occupies, and the level handshake. It replies with
// initialized_level only after both the server's init_level and the local
// asset loader have completed, in whichever order they happen.
type Controller struct {
	conn Sender

	rooms  []string
	roomID int
	color  string

	level        int
	spawns       network.SpawnAssignment
	loaderDone   bool
	initReceived bool
	replied      bool

	onStart func()

	mutex sync.Mutex
}

// NewController creates a controller bound to conn. onStart is invoked when
// the server announces start_game; it may be nil.
func NewController(conn Sender, onStart func()) *Controller {
	return &Controller{conn: conn, onStart: onStart}
}

// Join asks the server for a seat in room roomID.
func (c *Controller) Join(roomID int) error {
	return c.conn.Send(network.ClientMessage{Type: network.MsgTypeJoinRoom, RoomID: roomID})
}

// Leave gives up the seat in room roomID.
func (c *Controller) Leave(roomID int) error {
	return c.conn.Send(network.ClientMessage{Type: network.MsgTypeLeaveRoom, RoomID: roomID})
}

// AssetsLoaded marks the local level assets as ready. If init_level already
// arrived this completes the handshake.
func (c *Controller) AssetsLoaded() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.loaderDone = true
	c.maybeReply()
}

// HandleMessage consumes one server frame. Unparseable frames are dropped.
func (c *Controller) HandleMessage(data []byte) {
	env, err := network.DecodeServerMessage(data)
	if err != nil {
		logger.Log.Warnf("Dropping bad server frame: %v", err)
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch env.Type {
	case network.MsgTypeRoomList:
		c.rooms = env.Status
	case network.MsgTypeJoinedRoom:
		c.roomID = env.RoomID
		c.color = env.Color
		// A fresh seat starts a fresh handshake.
		c.initReceived = false
		c.replied = false
	case network.MsgTypeInitLevel:
		c.level = env.Level
		c.spawns = env.SpawnLocations
		c.initReceived = true
		c.maybeReply()
	case network.MsgTypeStartGame:
		if c.onStart != nil {
			c.onStart()
		}
	default:
		logger.Log.Debugf("Ignoring server message type %q", env.Type)
	}
}

// maybeReply sends initialized_level once both gates are open.
// Callers hold c.mutex.
func (c *Controller) maybeReply() {
	if !c.loaderDone || !c.initReceived || c.replied {
		return
	}
	c.replied = true
	if err := c.conn.Send(network.ClientMessage{Type: network.MsgTypeInitializedLevel}); err != nil {
		logger.Log.Warnf("Failed to send initialized_level: %v", err)
	}
}

// Rooms returns the lobby list. A room is selectable while it still has a
// free seat, that is while its status is empty or waiting.
func (c *Controller) Rooms() []RoomEntry {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entries := make([]RoomEntry, len(c.rooms))
	for i, status := range c.rooms {
		entries[i] = RoomEntry{
			ID:         i + 1,
			Status:     status,
			Selectable: status == "empty" || status == "waiting",
		}
	}
	return entries
}

// RoomID returns the room this client occupies, or 0 when idle.
func (c *Controller) RoomID() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.roomID
}

// Color returns the color assigned by the server for the current room.
func (c *Controller) Color() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.color
}

// Level returns the level index announced by init_level.
func (c *Controller) Level() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.level
}

// Spawns returns the spawn slots announced by init_level.
func (c *Controller) Spawns() network.SpawnAssignment {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.spawns
}
