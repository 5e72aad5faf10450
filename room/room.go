// room/room.go
package room

import (
	"errors"
	"sync"

	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/player"
	"github.com/wfunc/matchserver/state"
)

// Capacity is the fixed number of occupants per room.
const Capacity = 2

// spawnSlotCount is the size of the fixed pool of starting positions a level
// offers. Two distinct slots are drawn from it when a room fills up.
const spawnSlotCount = 4

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrAlreadyOccupant = errors.New("player already occupies a room")
	ErrNotOccupant     = errors.New("player is not an occupant of this room")
	ErrNotStarting     = errors.New("room is not in starting status")
)

// Rand is the source of randomness for spawn selection. Injected so tests
// can fix the sequence.
type Rand interface {
	Intn(n int) int
}

// Room is one matchmaking slot. Its status is always exactly the value
// implied by occupancy and readiness:
//
//	0 occupants            -> empty
//	1 occupant             -> waiting
//	2 occupants, not ready -> starting
//	2 occupants, all ready -> running
//
// Rooms are created once at pool construction and never destroyed.
type Room struct {
	ID        int
	machine   *state.Machine
	occupants []*player.Player
	spawns    *network.SpawnAssignment
	mutex     sync.RWMutex
}

func newRoom(id int) *Room {
	return &Room{
		ID:        id,
		machine:   state.NewMachine(state.StatusEmpty),
		occupants: make([]*player.Player, 0, Capacity),
	}
}

func (r *Room) Status() state.Status {
	return r.machine.Current()
}

// Join appends p to the room and assigns its color by arrival position: the
// first occupant is always blue, the second always green. The current
// occupant count decides the color, not join history.
func (r *Room) Join(p *player.Player) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if p.InRoom() {
		return ErrAlreadyOccupant
	}
	if len(r.occupants) >= Capacity {
		return ErrRoomFull
	}

	r.occupants = append(r.occupants, p)
	p.RoomID = r.ID
	p.Ready = false

	switch len(r.occupants) {
	case 1:
		p.Color = network.ColorBlue
		return r.machine.Transition(state.StatusWaiting)
	default:
		p.Color = network.ColorGreen
		return r.machine.Transition(state.StatusStarting)
	}
}

// Leave removes p from the room, located by its id rather than by reference.
// Readiness of any remaining occupant is reset: a vacated starting or running
// room falls back to waiting and initializes again from scratch on rejoin.
func (r *Room) Leave(p *player.Player) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idx := -1
	for i, occ := range r.occupants {
		if occ.ID == p.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotOccupant
	}

	r.occupants = append(r.occupants[:idx], r.occupants[idx+1:]...)
	p.ClearRoom()
	r.spawns = nil
	for _, occ := range r.occupants {
		occ.Ready = false
	}

	if len(r.occupants) == 0 {
		return r.machine.Transition(state.StatusEmpty)
	}
	return r.machine.Transition(state.StatusWaiting)
}

// MarkInitialized records that p finished loading the level. It only counts
// while the room is starting; repeats from the same player and messages after
// the room is already running are no-ops, so the ready count stays bounded at
// capacity and start_game can never fire twice. Returns true when the second
// confirmation arrives and the room moves to running.
func (r *Room) MarkInitialized(p *player.Player) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.machine.Current() != state.StatusStarting {
		return false, ErrNotStarting
	}

	var occupant *player.Player
	for _, occ := range r.occupants {
		if occ.ID == p.ID {
			occupant = occ
			break
		}
	}
	if occupant == nil {
		return false, ErrNotOccupant
	}
	if occupant.Ready {
		return false, nil
	}
	occupant.Ready = true

	ready := 0
	for _, occ := range r.occupants {
		if occ.Ready {
			ready++
		}
	}
	if ready < Capacity {
		return false, nil
	}
	return true, r.machine.Transition(state.StatusRunning)
}

// Occupants returns an ordered snapshot of the room's occupants.
func (r *Room) Occupants() []*player.Player {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	occupants := make([]*player.Player, len(r.occupants))
	copy(occupants, r.occupants)
	return occupants
}

func (r *Room) OccupantCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.occupants)
}

// SetSpawns stashes the spawn assignment chosen when the room filled, so the
// match record written on start carries it.
func (r *Room) SetSpawns(spawns network.SpawnAssignment) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	s := spawns
	r.spawns = &s
}

func (r *Room) Spawns() (network.SpawnAssignment, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.spawns == nil {
		return network.SpawnAssignment{}, false
	}
	return *r.spawns, true
}

// PickSpawns draws two distinct spawn slots without replacement from the
// fixed pool, one per color.
func PickSpawns(rng Rand) network.SpawnAssignment {
	slots := make([]int, spawnSlotCount)
	for i := range slots {
		slots[i] = i
	}

	i := rng.Intn(len(slots))
	blue := slots[i]
	slots = append(slots[:i], slots[i+1:]...)

	j := rng.Intn(len(slots))
	green := slots[j]

	return network.SpawnAssignment{Blue: blue, Green: green}
}

// Pool is the fixed set of rooms, indexed by identity 1..N. It is built once
// at process start; only occupancy and status mutate afterwards.
type Pool struct {
	rooms []*Room
}

func NewPool(n int) *Pool {
	rooms := make([]*Room, n)
	for i := range rooms {
		rooms[i] = newRoom(i + 1)
	}
	return &Pool{rooms: rooms}
}

// FindByID resolves a room by its 1-based identity. Room ids are
// client-supplied, so an out-of-range id must fail cleanly instead of
// corrupting pool indexing.
func (p *Pool) FindByID(id int) (*Room, error) {
	if id < 1 || id > len(p.rooms) {
		return nil, ErrRoomNotFound
	}
	return p.rooms[id-1], nil
}

// StatusList is the ordered status snapshot, index-aligned with room
// identity. This literal ordering is the wire contract consumed by clients.
func (p *Pool) StatusList() []string {
	status := make([]string, len(p.rooms))
	for i, r := range p.rooms {
		status[i] = string(r.Status())
	}
	return status
}

func (p *Pool) Size() int {
	return len(p.rooms)
}

// OccupiedCount reports how many rooms have at least one occupant.
func (p *Pool) OccupiedCount() int {
	count := 0
	for _, r := range p.rooms {
		if r.OccupantCount() > 0 {
			count++
		}
	}
	return count
}
