package player

import (
	"net"
	"testing"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	Sent []interface{}
}

func (m *MockConnection) Send(v interface{}) error        { m.Sent = append(m.Sent, v); return nil }
func (m *MockConnection) ReadMessage() ([]byte, error)    { return nil, nil }
func (m *MockConnection) Close() error                    { return nil }
func (m *MockConnection) RemoteAddr() net.Addr            { return &net.TCPAddr{} }

func TestRegistry_AddAndGet(t *testing.T) {
	registry := NewRegistry()
	p := New("player1", &MockConnection{})

	registry.Add(p)

	got, exists := registry.Get("player1")
	if !exists {
		t.Fatal("Get should find the registered player")
	}
	if got != p {
		t.Error("Get should return the same player instance")
	}
	if registry.Count() != 1 {
		t.Errorf("Expected count 1, got %d", registry.Count())
	}
}

func TestRegistry_Remove(t *testing.T) {
	registry := NewRegistry()
	registry.Add(New("player1", &MockConnection{}))

	registry.Remove("player1")

	if _, exists := registry.Get("player1"); exists {
		t.Error("Player should be gone after Remove")
	}
	if registry.Count() != 0 {
		t.Errorf("Expected count 0, got %d", registry.Count())
	}
}

func TestRegistry_All(t *testing.T) {
	registry := NewRegistry()
	registry.Add(New("player1", &MockConnection{}))
	registry.Add(New("player2", &MockConnection{}))

	all := registry.All()
	if len(all) != 2 {
		t.Fatalf("Expected 2 players, got %d", len(all))
	}
	seen := make(map[string]bool)
	for _, p := range all {
		seen[p.ID] = true
	}
	if !seen["player1"] || !seen["player2"] {
		t.Errorf("Snapshot is missing players: %v", seen)
	}
}

func TestPlayer_ClearRoom(t *testing.T) {
	p := New("player1", &MockConnection{})
	p.RoomID = 3
	p.Color = "blue"
	p.Ready = true

	p.ClearRoom()

	if p.InRoom() {
		t.Error("Player should be lobby-idle after ClearRoom")
	}
	if p.Color != "" || p.Ready {
		t.Error("Room-scoped attributes should be reset")
	}
}
