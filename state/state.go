package state

import (
	"errors"
	"sync"
)

// Status is the lifecycle status of a room. The string values are the wire
// contract: room_list broadcasts carry them verbatim.
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusWaiting  Status = "waiting"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
)

// ErrTransitionNotAllowed is returned when a status transition is not allowed.
var ErrTransitionNotAllowed = errors.New("status transition not allowed")

// transitions holds the allowed edges of the room lifecycle. Occupancy only
// changes one player at a time, so every legal transition is between
// neighboring statuses.
var transitions = map[Status][]Status{
	StatusEmpty:    {StatusWaiting},
	StatusWaiting:  {StatusEmpty, StatusStarting},
	StatusStarting: {StatusWaiting, StatusRunning},
	StatusRunning:  {StatusWaiting},
}

// Machine validates lifecycle transitions for a single room. It carries no
// room data itself; occupancy lives with the room, which drives the machine.
type Machine struct {
	current Status
	mutex   sync.RWMutex
}

func NewMachine(initial Status) *Machine {
	return &Machine{current: initial}
}

func (m *Machine) Current() Status {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

// Transition moves the machine to next if the edge exists in the transition
// table, otherwise returns ErrTransitionNotAllowed and leaves the machine
// unchanged.
func (m *Machine) Transition(next Status) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			return nil
		}
	}
	return ErrTransitionNotAllowed
}

// Is reports whether the machine currently holds the given status.
func (m *Machine) Is(status Status) bool {
	return m.Current() == status
}
